package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
	pkgerrors "ams-server/pkg/errors"
)

// ── 内存 mock 仓库 ──
//
// 读取时返回副本，写入需显式调用 Update，与 GORM 实现的语义一致。

func newMockRepository() *repository.Repository {
	return &repository.Repository{
		Academy:     newMockAcademyRepo(),
		User:        newMockUserRepo(),
		Batch:       newMockBatchRepo(),
		Player:      newMockPlayerRepo(),
		Session:     newMockSessionRepo(),
		CoachRating: newMockCoachRatingRepo(),
		Credential:  newMockCredentialRepo(),
		Injury:      newMockInjuryRepo(),
		Finance:     newMockFinanceRepo(),
	}
}

// ── Academy ──

type mockAcademyRepo struct {
	academies map[string]*model.Academy
	seq       int
}

func newMockAcademyRepo() *mockAcademyRepo {
	return &mockAcademyRepo{academies: make(map[string]*model.Academy)}
}

func (m *mockAcademyRepo) Create(_ context.Context, academy *model.Academy) error {
	if academy.AcademyID == "" {
		m.seq++
		academy.AcademyID = fmt.Sprintf("academy-%d", m.seq)
	}
	academy.Version = 1
	cp := *academy
	m.academies[academy.AcademyID] = &cp
	return nil
}

func (m *mockAcademyRepo) GetByID(_ context.Context, id string) (*model.Academy, error) {
	if a, ok := m.academies[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAcademyRepo) GetByCode(_ context.Context, code string) (*model.Academy, error) {
	for _, a := range m.academies {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAcademyRepo) List(_ context.Context) ([]model.Academy, error) {
	var result []model.Academy
	for _, a := range m.academies {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockAcademyRepo) Update(_ context.Context, academy *model.Academy) error {
	cp := *academy
	m.academies[academy.AcademyID] = &cp
	return nil
}

// ── User ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.Version = 1
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filter.AcademyID != "" && u.AcademyID != filter.AcademyID {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.Username, filter.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })

	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, academyID string, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.AcademyID == academyID {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Batch ──

type mockBatchRepo struct {
	batches map[string]*model.Batch
	seq     int
}

func newMockBatchRepo() *mockBatchRepo {
	return &mockBatchRepo{batches: make(map[string]*model.Batch)}
}

func (m *mockBatchRepo) Create(_ context.Context, batch *model.Batch) error {
	if batch.BatchID == "" {
		m.seq++
		batch.BatchID = fmt.Sprintf("batch-%d", m.seq)
	}
	batch.Version = 1
	cp := *batch
	m.batches[batch.BatchID] = &cp
	return nil
}

func (m *mockBatchRepo) GetByID(_ context.Context, academyID, id string) (*model.Batch, error) {
	if b, ok := m.batches[id]; ok && b.AcademyID == academyID {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBatchRepo) List(_ context.Context, academyID string) ([]model.Batch, error) {
	var result []model.Batch
	for _, b := range m.batches {
		if b.AcademyID == academyID {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockBatchRepo) Update(_ context.Context, batch *model.Batch) error {
	stored, ok := m.batches[batch.BatchID]
	if !ok || stored.Version != batch.Version {
		return pkgerrors.ErrOptimisticLock
	}
	batch.Version++
	cp := *batch
	m.batches[batch.BatchID] = &cp
	return nil
}

func (m *mockBatchRepo) Delete(_ context.Context, academyID, id, _ string) error {
	if b, ok := m.batches[id]; ok && b.AcademyID == academyID {
		delete(m.batches, id)
	}
	return nil
}

// ── Player ──

type mockPlayerRepo struct {
	players      map[string]*model.Player
	performances []model.PlayerPerformance
	seq          int
}

func newMockPlayerRepo() *mockPlayerRepo {
	return &mockPlayerRepo{players: make(map[string]*model.Player)}
}

func (m *mockPlayerRepo) Create(_ context.Context, player *model.Player) error {
	if player.PlayerID == "" {
		m.seq++
		player.PlayerID = fmt.Sprintf("player-%d", m.seq)
	}
	player.Version = 1
	cp := *player
	m.players[player.PlayerID] = &cp
	return nil
}

func (m *mockPlayerRepo) GetByID(_ context.Context, academyID, id string) (*model.Player, error) {
	if p, ok := m.players[id]; ok && p.AcademyID == academyID {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlayerRepo) List(_ context.Context, academyID string, ids []string) ([]model.Player, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var result []model.Player
	for _, p := range m.players {
		if p.AcademyID != academyID {
			continue
		}
		if ids != nil && !want[p.PlayerID] {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockPlayerRepo) Update(_ context.Context, player *model.Player) error {
	stored, ok := m.players[player.PlayerID]
	if !ok || stored.Version != player.Version {
		return pkgerrors.ErrOptimisticLock
	}
	player.Version++
	cp := *player
	m.players[player.PlayerID] = &cp
	return nil
}

func (m *mockPlayerRepo) Delete(_ context.Context, academyID, id, _ string) error {
	if p, ok := m.players[id]; ok && p.AcademyID == academyID {
		delete(m.players, id)
	}
	return nil
}

func (m *mockPlayerRepo) AppendPerformance(_ context.Context, entry *model.PlayerPerformance) error {
	if entry.PerformanceID == "" {
		entry.PerformanceID = fmt.Sprintf("perf-%d", len(m.performances)+1)
	}
	m.performances = append(m.performances, *entry)
	return nil
}

// ListPerformance 追加顺序的逆序即创建时间倒序
func (m *mockPlayerRepo) ListPerformance(_ context.Context, playerID string, limit int) ([]model.PlayerPerformance, error) {
	var result []model.PlayerPerformance
	for i := len(m.performances) - 1; i >= 0; i-- {
		if m.performances[i].PlayerID != playerID {
			continue
		}
		result = append(result, m.performances[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ── Session ──

type mockSessionRepo struct {
	sessions      map[string]*model.TrainingSession
	statusUpdates int
	seq           int
	// beforeCreateOccurrences 模拟并发写入
	beforeCreateOccurrences func()
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.TrainingSession)}
}

func (m *mockSessionRepo) nextID() string {
	m.seq++
	return fmt.Sprintf("session-%d", m.seq)
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.TrainingSession) error {
	if session.SessionID == "" {
		session.SessionID = m.nextID()
	}
	if _, ok := m.sessions[session.SessionID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) CreateOccurrences(_ context.Context, occurrences []model.TrainingSession) (int64, error) {
	if hook := m.beforeCreateOccurrences; hook != nil {
		m.beforeCreateOccurrences = nil
		hook()
	}
	keys := make(map[string]bool)
	for _, s := range m.sessions {
		if s.Kind == schedule.KindOccurrence {
			keys[model.StrVal(s.ParentSessionID)+"|"+s.SessionDate.String()] = true
		}
	}

	var created int64
	for _, o := range occurrences {
		key := model.StrVal(o.ParentSessionID) + "|" + o.SessionDate.String()
		if keys[key] {
			continue
		}
		if o.SessionID == "" {
			o.SessionID = m.nextID()
		}
		keys[key] = true
		cp := o
		m.sessions[o.SessionID] = &cp
		created++
	}
	return created, nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, academyID, id string) (*model.TrainingSession, error) {
	if s, ok := m.sessions[id]; ok && s.AcademyID == academyID {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) List(_ context.Context, academyID string, filter repository.SessionFilter) ([]model.TrainingSession, error) {
	var result []model.TrainingSession
	for _, s := range m.sessions {
		if s.AcademyID != academyID {
			continue
		}
		if filter.BatchID != "" && model.StrVal(s.AssignedBatchID) != filter.BatchID {
			continue
		}
		if filter.PlayerID != "" && !s.HasPlayer(filter.PlayerID) {
			continue
		}
		if filter.CoachID != "" && !containsID(s.CoachIDs, filter.CoachID) {
			continue
		}
		last := s.SessionDate
		if s.Kind == schedule.KindTemplate {
			last = s.RecurringEndDate
		}
		if !filter.From.IsZero() && last.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.SessionDate.After(filter.To) {
			continue
		}
		result = append(result, *s)
	}
	sortRows(result)
	return result, nil
}

func (m *mockSessionRepo) ListByParent(_ context.Context, academyID, parentID string) ([]model.TrainingSession, error) {
	var result []model.TrainingSession
	for _, s := range m.sessions {
		if s.AcademyID == academyID && s.Kind == schedule.KindOccurrence && model.StrVal(s.ParentSessionID) == parentID {
			result = append(result, *s)
		}
	}
	sortRows(result)
	return result, nil
}

func (m *mockSessionRepo) ListByParents(ctx context.Context, academyID string, parentIDs []string) ([]model.TrainingSession, error) {
	var result []model.TrainingSession
	for _, id := range parentIDs {
		rows, _ := m.ListByParent(ctx, academyID, id)
		result = append(result, rows...)
	}
	sortRows(result)
	return result, nil
}

func (m *mockSessionRepo) ListUnfinished(_ context.Context, until schedule.Date) ([]model.TrainingSession, error) {
	var result []model.TrainingSession
	for _, s := range m.sessions {
		if s.Kind == schedule.KindTemplate || s.Status == schedule.StatusFinished || s.SessionDate.After(until) {
			continue
		}
		result = append(result, *s)
	}
	sortRows(result)
	return result, nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.TrainingSession) error {
	if _, ok := m.sessions[session.SessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id string, status schedule.Status) error {
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		m.statusUpdates++
	}
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, academyID, id, _ string) error {
	if s, ok := m.sessions[id]; ok && s.AcademyID == academyID {
		delete(m.sessions, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByParent(_ context.Context, academyID, parentID, _ string) error {
	for id, s := range m.sessions {
		if s.AcademyID == academyID && model.StrVal(s.ParentSessionID) == parentID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteOccurrences(_ context.Context, academyID string, ids []string, _ string) error {
	for _, id := range ids {
		if s, ok := m.sessions[id]; ok && s.AcademyID == academyID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// count 按类型统计
func (m *mockSessionRepo) count(kind schedule.Kind) int {
	n := 0
	for _, s := range m.sessions {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func sortRows(rows []model.TrainingSession) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].SessionDate.Compare(rows[j].SessionDate); c != 0 {
			return c < 0
		}
		return rows[i].StartTime.Compare(rows[j].StartTime) < 0
	})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ── CoachRating ──

type mockCoachRatingRepo struct {
	ratings []model.CoachRating
}

func newMockCoachRatingRepo() *mockCoachRatingRepo {
	return &mockCoachRatingRepo{}
}

func (m *mockCoachRatingRepo) Create(_ context.Context, rating *model.CoachRating) error {
	if rating.RatingID == "" {
		rating.RatingID = fmt.Sprintf("rating-%d", len(m.ratings)+1)
	}
	m.ratings = append(m.ratings, *rating)
	return nil
}

func (m *mockCoachRatingRepo) ListByCoach(_ context.Context, academyID, coachID string) ([]model.CoachRating, error) {
	var result []model.CoachRating
	for i := len(m.ratings) - 1; i >= 0; i-- {
		r := m.ratings[i]
		if r.AcademyID == academyID && r.CoachID == coachID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockCoachRatingRepo) Average(ctx context.Context, academyID, coachID string) (float64, int64, error) {
	ratings, _ := m.ListByCoach(ctx, academyID, coachID)
	if len(ratings) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(ratings)), int64(len(ratings)), nil
}

// ── Credential ──

type mockCredentialRepo struct {
	credentials map[string]*model.Credential
	seq         int
}

func newMockCredentialRepo() *mockCredentialRepo {
	return &mockCredentialRepo{credentials: make(map[string]*model.Credential)}
}

func (m *mockCredentialRepo) Create(_ context.Context, c *model.Credential) error {
	if c.CredentialID == "" {
		m.seq++
		c.CredentialID = fmt.Sprintf("cred-%d", m.seq)
	}
	cp := *c
	m.credentials[c.CredentialID] = &cp
	return nil
}

func (m *mockCredentialRepo) GetByID(_ context.Context, academyID, id string) (*model.Credential, error) {
	if c, ok := m.credentials[id]; ok && c.AcademyID == academyID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCredentialRepo) ListByUser(_ context.Context, academyID, userID string) ([]model.Credential, error) {
	var result []model.Credential
	for _, c := range m.credentials {
		if c.AcademyID == academyID && c.UserID == userID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCredentialRepo) Delete(_ context.Context, academyID, id, _ string) error {
	if c, ok := m.credentials[id]; ok && c.AcademyID == academyID {
		delete(m.credentials, id)
	}
	return nil
}

// ── Injury ──

type mockInjuryRepo struct {
	injuries map[string]*model.Injury
	seq      int
}

func newMockInjuryRepo() *mockInjuryRepo {
	return &mockInjuryRepo{injuries: make(map[string]*model.Injury)}
}

func (m *mockInjuryRepo) Create(_ context.Context, injury *model.Injury) error {
	if injury.InjuryID == "" {
		m.seq++
		injury.InjuryID = fmt.Sprintf("injury-%d", m.seq)
	}
	cp := *injury
	m.injuries[injury.InjuryID] = &cp
	return nil
}

func (m *mockInjuryRepo) GetByID(_ context.Context, academyID, id string) (*model.Injury, error) {
	if i, ok := m.injuries[id]; ok && i.AcademyID == academyID {
		cp := *i
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInjuryRepo) List(_ context.Context, academyID, playerID string) ([]model.Injury, error) {
	var result []model.Injury
	for _, i := range m.injuries {
		if i.AcademyID != academyID || (playerID != "" && i.PlayerID != playerID) {
			continue
		}
		result = append(result, *i)
	}
	return result, nil
}

func (m *mockInjuryRepo) Update(_ context.Context, injury *model.Injury) error {
	cp := *injury
	m.injuries[injury.InjuryID] = &cp
	return nil
}

func (m *mockInjuryRepo) Delete(_ context.Context, academyID, id, _ string) error {
	if i, ok := m.injuries[id]; ok && i.AcademyID == academyID {
		delete(m.injuries, id)
	}
	return nil
}

// ── Finance ──

type mockFinanceRepo struct {
	txs []model.FinanceTransaction
}

func newMockFinanceRepo() *mockFinanceRepo {
	return &mockFinanceRepo{}
}

func (m *mockFinanceRepo) Create(_ context.Context, tx *model.FinanceTransaction) error {
	if tx.TransactionID == "" {
		tx.TransactionID = fmt.Sprintf("tx-%d", len(m.txs)+1)
	}
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *mockFinanceRepo) match(academyID string, f repository.FinanceFilter, tx model.FinanceTransaction) bool {
	switch {
	case tx.AcademyID != academyID:
		return false
	case f.Type != "" && tx.Type != f.Type:
		return false
	case f.Category != "" && tx.Category != f.Category:
		return false
	case !f.From.IsZero() && tx.OccurredOn.Before(f.From):
		return false
	case !f.To.IsZero() && tx.OccurredOn.After(f.To):
		return false
	}
	return true
}

func (m *mockFinanceRepo) List(_ context.Context, academyID string, filter repository.FinanceFilter, offset, limit int) ([]model.FinanceTransaction, int64, error) {
	var all []model.FinanceTransaction
	for _, tx := range m.txs {
		if m.match(academyID, filter, tx) {
			all = append(all, tx)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockFinanceRepo) Totals(_ context.Context, academyID string, filter repository.FinanceFilter) ([]repository.FinanceTotal, error) {
	index := make(map[string]int)
	var result []repository.FinanceTotal
	for _, tx := range m.txs {
		if !m.match(academyID, filter, tx) {
			continue
		}
		key := tx.Type + "/" + tx.Category
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, repository.FinanceTotal{Type: tx.Type, Category: tx.Category})
		}
		result[i].Total += tx.Amount
	}
	return result, nil
}
