package service

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ams-server/config"
	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
)

// ── 训练会话模块业务错误 ──

var (
	ErrSessionNotFound      = errors.New("训练会话不存在")
	ErrInvalidTime          = errors.New("日期或时间格式无效")
	ErrInvalidRecurrence    = errors.New("循环设置无效：需选择星期且结束日期不早于开始日期")
	ErrNoOccurrences        = errors.New("所选日期范围内没有匹配的训练日")
	ErrNotTemplate          = errors.New("该会话不是循环会话")
	ErrTemplateNoAttendance = errors.New("循环会话本身不记录出勤与评分，请在具体场次上操作")
	ErrPlayerNotAssigned    = errors.New("球员未分配到该训练")
	ErrOccurrenceDateFixed  = errors.New("循环场次的日期不可修改")
	ErrInvalidImport        = errors.New("导入数据必须是 JSON 数组")
)

// SessionService 训练会话业务接口
type SessionService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateSessionRequest, callerID string) (*dto.SessionViewResponse, error)
	// Get 获取会话；模板没有任何实例时按定义重新生成
	Get(ctx context.Context, academyID, id string) (*dto.SessionViewResponse, error)
	List(ctx context.Context, academyID string, req *dto.SessionListRequest) (*dto.SessionListResponse, error)
	ListOccurrences(ctx context.Context, academyID, templateID string) ([]dto.SessionResponse, error)
	// SyncOccurrences 补齐缺失实例，并删除不再匹配模板且尚未开始的实例
	SyncOccurrences(ctx context.Context, academyID, templateID, callerID string) (*dto.SyncResult, error)
	Update(ctx context.Context, academyID, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionViewResponse, error)
	Delete(ctx context.Context, academyID, id, callerID string) error

	MarkAttendance(ctx context.Context, academyID, id string, req *dto.MarkAttendanceRequest, callerID string) (*dto.SessionResponse, error)
	BulkMarkAttendance(ctx context.Context, academyID, id string, req *dto.BulkAttendanceRequest, callerID string) (*dto.SessionResponse, error)
	UpdateMetrics(ctx context.Context, academyID, id string, req *dto.SessionMetricsRequest, callerID string) (*dto.SessionResponse, error)

	Import(ctx context.Context, academyID string, body []byte, callerID string) (*dto.ImportResult, error)
	// ImportCalendar 将 iCalendar 事件导入为单次或循环会话
	ImportCalendar(ctx context.Context, academyID string, reader io.Reader, batchID, callerID string) (*dto.ImportResult, error)
	// SyncStatuses 推进所有学院未结束会话的状态，返回更新行数
	SyncStatuses(ctx context.Context) (int, error)
}

type sessionService struct {
	repo         *repository.Repository
	players      PlayerService
	expander     *schedule.Expander
	loc          *time.Location
	deletePolicy string
	clock        func() time.Time
	logger       *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(cfg *config.ScheduleConfig, repo *repository.Repository, players PlayerService, logger *zap.Logger) SessionService {
	return &sessionService{
		repo:         repo,
		players:      players,
		expander:     schedule.NewExpander(cfg.MaxOccurrences),
		loc:          cfg.Location(),
		deletePolicy: cfg.TemplateDeletePolicy,
		clock:        time.Now,
		logger:       logger,
	}
}

// now 学院时区的当前时间
func (s *sessionService) now() time.Time {
	return s.clock().In(s.loc)
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *sessionService) Create(ctx context.Context, academyID string, req *dto.CreateSessionRequest, callerID string) (*dto.SessionViewResponse, error) {
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidTime
	}
	start, end, err := parseTimes(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	common := schedule.Session{
		ID:        uuid.NewString(),
		AcademyID: academyID,
		Name:      req.Name,
		StartTime: start,
		EndTime:   end,
		BatchID:   req.AssignedBatchID,
		PlayerIDs: req.AssignedPlayers,
		CoachIDs:  req.CoachIDs,
	}
	if err := s.fillFromBatch(ctx, academyID, &common); err != nil {
		return nil, err
	}

	now := s.now()

	if !req.IsRecurring {
		r := &schedule.Regular{Session: common, Date: date}
		r.Status = schedule.Classify(r, now)
		row := fromRecord(r)
		row.CreatedBy = model.StrPtr(callerID)
		if err := s.repo.Session.Create(ctx, row); err != nil {
			s.logger.Error("创建训练会话失败", zap.Error(err))
			return nil, err
		}
		return s.viewOf([]model.TrainingSession{*row}, row.SessionID, now)
	}

	endDate, err := schedule.ParseDate(req.RecurringEndDate)
	if err != nil {
		return nil, ErrInvalidRecurrence
	}
	days, err := schedule.ParseDays(req.SelectedDays)
	if err != nil {
		return nil, ErrInvalidRecurrence
	}
	excluded, err := schedule.ParseDates(req.ExcludedDates)
	if err != nil {
		return nil, ErrInvalidRecurrence
	}
	t := &schedule.Template{Session: common, StartDate: date, EndDate: endDate, Days: days, ExcludedDates: excluded}
	if !t.Valid() {
		return nil, ErrInvalidRecurrence
	}

	occs, truncated := s.expander.ExpandTemplate(t)
	if len(occs) == 0 {
		return nil, ErrNoOccurrences
	}
	if truncated {
		s.logger.Warn("循环会话实例数达到上限，已截断",
			zap.String("session_id", t.ID), zap.Int("count", len(occs)))
	}
	for _, o := range occs {
		o.Status = schedule.Classify(o, now)
	}
	t.TotalOccurrences = len(occs)
	t.Status = schedule.Classify(t, now)

	row := fromRecord(t)
	row.CreatedBy = model.StrPtr(callerID)
	occRows := occurrenceRows(occs, callerID)

	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Session.Create(ctx, row); err != nil {
			return err
		}
		_, err := txRepo.Session.CreateOccurrences(ctx, occRows)
		return err
	})
	if err != nil {
		s.logger.Error("创建循环会话失败", zap.String("session_id", t.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("循环会话已创建",
		zap.String("session_id", t.ID), zap.Int("occurrences", len(occRows)))
	return s.viewOf(append([]model.TrainingSession{*row}, occRows...), row.SessionID, now)
}

// fillFromBatch 指定了分组时校验分组存在；未指定球员/教练则沿用分组成员
func (s *sessionService) fillFromBatch(ctx context.Context, academyID string, c *schedule.Session) error {
	if c.BatchID == "" {
		return nil
	}
	batch, err := s.repo.Batch.GetByID(ctx, academyID, c.BatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBatchNotFound
		}
		s.logger.Error("查询分组失败", zap.Error(err))
		return err
	}
	if len(c.PlayerIDs) == 0 {
		c.PlayerIDs = append([]string(nil), batch.PlayerIDs...)
	}
	if len(c.CoachIDs) == 0 {
		c.CoachIDs = append([]string(nil), batch.CoachIDs...)
	}
	return nil
}

func parseTimes(startStr, endStr string) (schedule.TimeOfDay, schedule.TimeOfDay, error) {
	start, err := schedule.ParseTimeOfDay(startStr)
	if err != nil {
		return schedule.TimeOfDay{}, schedule.TimeOfDay{}, ErrInvalidTime
	}
	end, err := schedule.ParseTimeOfDay(endStr)
	if err != nil {
		return schedule.TimeOfDay{}, schedule.TimeOfDay{}, ErrInvalidTime
	}
	return start, end, nil
}

// ════════════════════════════════════════════════════════════
// Read
// ════════════════════════════════════════════════════════════

func (s *sessionService) Get(ctx context.Context, academyID, id string) (*dto.SessionViewResponse, error) {
	now := s.now()
	row, err := s.getRow(ctx, academyID, id)
	if errors.Is(err, ErrSessionNotFound) {
		return s.virtualView(ctx, academyID, id, now)
	}
	if err != nil {
		return nil, err
	}

	switch row.Kind {
	case schedule.KindOccurrence:
		return s.singleView(ctx, *row, now), nil
	case schedule.KindRegular:
		s.persistStatuses(ctx, []model.TrainingSession{*row}, now)
		return s.viewOf([]model.TrainingSession{*row}, id, now)
	}

	occRows, err := s.repo.Session.ListByParent(ctx, academyID, id)
	if err != nil {
		s.logger.Error("查询循环实例失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	if len(occRows) == 0 {
		t := toRecord(row).(*schedule.Template)
		occs, _ := s.expander.ExpandTemplate(t)
		for _, o := range occs {
			o.Status = schedule.Classify(o, now)
		}
		created, err := s.repo.Session.CreateOccurrences(ctx, occurrenceRows(occs, ""))
		if err != nil {
			s.logger.Error("重新生成循环实例失败", zap.String("session_id", id), zap.Error(err))
			return nil, err
		}
		s.logger.Info("循环实例缺失，已重新生成",
			zap.String("session_id", id), zap.Int64("created", created))
		// 并发读取时部分行可能由其他请求写入，以库中实际的行为准
		if occRows, err = s.repo.Session.ListByParent(ctx, academyID, id); err != nil {
			s.logger.Error("查询循环实例失败", zap.String("session_id", id), zap.Error(err))
			return nil, err
		}
	} else {
		s.persistStatuses(ctx, occRows, now)
	}

	return s.viewOf(append([]model.TrainingSession{*row}, occRows...), id, now)
}

// orphanRows 查询父模板已不存在的实例；id 不是任何实例的父 id 时返回 ErrSessionNotFound
func (s *sessionService) orphanRows(ctx context.Context, academyID, parentID string) ([]model.TrainingSession, error) {
	if _, err := uuid.Parse(parentID); err != nil {
		return nil, ErrSessionNotFound
	}
	occRows, err := s.repo.Session.ListByParent(ctx, academyID, parentID)
	if err != nil {
		s.logger.Error("查询循环实例失败", zap.String("session_id", parentID), zap.Error(err))
		return nil, err
	}
	if len(occRows) == 0 {
		return nil, ErrSessionNotFound
	}
	return occRows, nil
}

// virtualView 列表中补出的虚拟模板没有对应行，按其实例重建视图
func (s *sessionService) virtualView(ctx context.Context, academyID, id string, now time.Time) (*dto.SessionViewResponse, error) {
	occRows, err := s.orphanRows(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	s.persistStatuses(ctx, occRows, now)
	return s.viewOf(occRows, id, now)
}

func (s *sessionService) List(ctx context.Context, academyID string, req *dto.SessionListRequest) (*dto.SessionListResponse, error) {
	filter := repository.SessionFilter{
		BatchID:  req.BatchID,
		PlayerID: req.PlayerID,
		CoachID:  req.CoachID,
	}
	if req.From != "" {
		d, err := schedule.ParseDate(req.From)
		if err != nil {
			return nil, ErrInvalidTime
		}
		filter.From = d
	}
	if req.To != "" {
		d, err := schedule.ParseDate(req.To)
		if err != nil {
			return nil, ErrInvalidTime
		}
		filter.To = d
	}

	rows, err := s.repo.Session.List(ctx, academyID, filter)
	if err != nil {
		s.logger.Error("查询训练会话列表失败", zap.Error(err))
		return nil, err
	}
	if filter != (repository.SessionFilter{}) {
		if rows, err = s.withFullGroups(ctx, academyID, rows); err != nil {
			s.logger.Error("查询循环实例失败", zap.Error(err))
			return nil, err
		}
	}

	now := s.now()
	records, byID := toRecords(rows)
	schedule.Reclassify(records, now)
	views := schedule.BuildViews(records, now)
	sortViews(views)

	filtered := views[:0]
	for _, v := range views {
		if req.Status != "" && string(v.Status) != req.Status {
			continue
		}
		if req.Kind != "" && string(v.Record.Kind()) != req.Kind {
			continue
		}
		filtered = append(filtered, v)
	}

	resp := &dto.SessionListResponse{
		Sessions: make([]dto.SessionViewResponse, 0, len(filtered)),
		Summary:  schedule.Summarize(filtered),
	}
	for _, v := range filtered {
		resp.Sessions = append(resp.Sessions, toViewResponse(v, byID))
	}
	return resp, nil
}

// withFullGroups 筛选只作用于顶层会话：命中的模板（含孤儿实例的虚拟父模板）换成完整的实例集合，
// 使总数、已完成数与最近结束日期不受时间窗口影响
func (s *sessionService) withFullGroups(ctx context.Context, academyID string, rows []model.TrainingSession) ([]model.TrainingSession, error) {
	seen := make(map[string]bool)
	var parentIDs []string
	out := make([]model.TrainingSession, 0, len(rows))
	for _, row := range rows {
		parentID := row.SessionID
		switch row.Kind {
		case schedule.KindRegular:
			out = append(out, row)
			continue
		case schedule.KindTemplate:
			out = append(out, row)
		case schedule.KindOccurrence:
			parentID = model.StrVal(row.ParentSessionID)
		}
		if !seen[parentID] {
			seen[parentID] = true
			parentIDs = append(parentIDs, parentID)
		}
	}

	occRows, err := s.repo.Session.ListByParents(ctx, academyID, parentIDs)
	if err != nil {
		return nil, err
	}
	return append(out, occRows...), nil
}

func (s *sessionService) ListOccurrences(ctx context.Context, academyID, templateID string) ([]dto.SessionResponse, error) {
	row, err := s.getRow(ctx, academyID, templateID)
	var occRows []model.TrainingSession
	switch {
	case errors.Is(err, ErrSessionNotFound):
		occRows, err = s.orphanRows(ctx, academyID, templateID)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case row.Kind != schedule.KindTemplate:
		return nil, ErrNotTemplate
	default:
		occRows, err = s.repo.Session.ListByParent(ctx, academyID, templateID)
		if err != nil {
			s.logger.Error("查询循环实例失败", zap.String("session_id", templateID), zap.Error(err))
			return nil, err
		}
	}

	records, byID := toRecords(occRows)
	schedule.Reclassify(records, s.now())
	result := make([]dto.SessionResponse, 0, len(records))
	for _, r := range records {
		result = append(result, toSessionResponse(r, byID[r.Common().ID]))
	}
	return result, nil
}

// viewOf 由一组行构建聚合视图并返回顶层会话 id 对应的视图
func (s *sessionService) viewOf(rows []model.TrainingSession, id string, now time.Time) (*dto.SessionViewResponse, error) {
	records, byID := toRecords(rows)
	schedule.Reclassify(records, now)
	for _, v := range schedule.BuildViews(records, now) {
		if v.Record.Common().ID == id {
			resp := toViewResponse(v, byID)
			return &resp, nil
		}
	}
	return nil, ErrSessionNotFound
}

// singleView 单个实例的视图
func (s *sessionService) singleView(ctx context.Context, row model.TrainingSession, now time.Time) *dto.SessionViewResponse {
	s.persistStatuses(ctx, []model.TrainingSession{row}, now)
	r := toRecord(&row)
	schedule.Reclassify([]schedule.Record{r}, now)

	resp := &dto.SessionViewResponse{
		SessionResponse: toSessionResponse(r, &row),
		Total:           1,
	}
	switch r.Common().Status {
	case schedule.StatusUpcoming:
		resp.Counts.Upcoming = 1
	case schedule.StatusOngoing:
		resp.Counts.Ongoing = 1
	case schedule.StatusFinished:
		resp.Counts.Finished = 1
	}
	if schedule.Ended(r, now) {
		resp.Completed = 1
		resp.LastFinishedDate = r.SessionDate().String()
	}
	return resp
}

// persistStatuses 将读取时推进的状态写回，失败只记录日志
func (s *sessionService) persistStatuses(ctx context.Context, rows []model.TrainingSession, now time.Time) {
	records, _ := toRecords(rows)
	for _, r := range schedule.Reclassify(records, now) {
		c := r.Common()
		if err := s.repo.Session.UpdateStatus(ctx, c.ID, c.Status); err != nil {
			s.logger.Warn("写回会话状态失败", zap.String("session_id", c.ID), zap.Error(err))
		}
	}
}

func (s *sessionService) getRow(ctx context.Context, academyID, id string) (*model.TrainingSession, error) {
	row, err := s.repo.Session.GetByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询训练会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return row, nil
}

// ════════════════════════════════════════════════════════════
// Sync / Update / Delete
// ════════════════════════════════════════════════════════════

func (s *sessionService) SyncOccurrences(ctx context.Context, academyID, templateID, callerID string) (*dto.SyncResult, error) {
	row, err := s.getRow(ctx, academyID, templateID)
	if err != nil {
		return nil, err
	}
	if row.Kind != schedule.KindTemplate {
		return nil, ErrNotTemplate
	}

	var result *dto.SyncResult
	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		var err error
		result, err = s.syncTemplate(ctx, txRepo, row, callerID)
		return err
	})
	if err != nil {
		s.logger.Error("同步循环实例失败", zap.String("session_id", templateID), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// syncTemplate 按模板当前定义调整实例：补齐缺失日期，删除不再匹配且未开始的实例
func (s *sessionService) syncTemplate(ctx context.Context, repo *repository.Repository, row *model.TrainingSession, callerID string) (*dto.SyncResult, error) {
	now := s.now()
	t := toRecord(row).(*schedule.Template)

	existingRows, err := repo.Session.ListByParent(ctx, row.AcademyID, row.SessionID)
	if err != nil {
		return nil, err
	}
	records, _ := toRecords(existingRows)
	schedule.Reclassify(records, now)
	_, _, existing := schedule.Partition(records)

	fresh, truncated := s.expander.ExpandTemplate(t)
	if truncated {
		s.logger.Warn("循环会话实例数达到上限，已截断",
			zap.String("session_id", t.ID), zap.Int("count", len(fresh)))
	}
	missing := schedule.Missing(existing, fresh)
	for _, o := range missing {
		o.Status = schedule.Classify(o, now)
	}

	var stale []string
	for _, o := range existing {
		if t.Matches(o.Date) || o.Status != schedule.StatusUpcoming {
			continue
		}
		stale = append(stale, o.ID)
	}

	created, err := repo.Session.CreateOccurrences(ctx, occurrenceRows(missing, callerID))
	if err != nil {
		return nil, err
	}
	if err := repo.Session.DeleteOccurrences(ctx, row.AcademyID, stale, callerID); err != nil {
		return nil, err
	}

	total := len(existing) - len(stale) + int(created)
	if row.TotalOccurrences != total {
		row.TotalOccurrences = total
		if err := repo.Session.Update(ctx, row); err != nil {
			return nil, err
		}
	}

	return &dto.SyncResult{Created: int(created), Removed: len(stale), Truncated: truncated}, nil
}

func (s *sessionService) Update(ctx context.Context, academyID, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionViewResponse, error) {
	row, err := s.getRow(ctx, academyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.StartTime != nil || req.EndTime != nil {
		startStr, endStr := row.StartTime.String(), row.EndTime.String()
		if req.StartTime != nil {
			startStr = *req.StartTime
		}
		if req.EndTime != nil {
			endStr = *req.EndTime
		}
		row.StartTime, row.EndTime, err = parseTimes(startStr, endStr)
		if err != nil {
			return nil, err
		}
	}
	if req.AssignedBatchID != nil {
		row.AssignedBatchID = model.StrPtr(*req.AssignedBatchID)
		if *req.AssignedBatchID != "" {
			if _, err := s.repo.Batch.GetByID(ctx, academyID, *req.AssignedBatchID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrBatchNotFound
				}
				return nil, err
			}
		}
	}
	if req.AssignedPlayers != nil {
		row.AssignedPlayers = nonNil(*req.AssignedPlayers)
	}
	if req.CoachIDs != nil {
		row.CoachIDs = nonNil(*req.CoachIDs)
	}

	if err := s.applyDates(row, req); err != nil {
		return nil, err
	}

	now := s.now()
	if row.Kind != schedule.KindTemplate {
		// 显式修改时间后按当前时刻重新判定
		row.Status = schedule.Classify(toRecord(row), now)
	}
	row.UpdatedBy = model.StrPtr(callerID)

	if row.Kind != schedule.KindTemplate {
		if err := s.repo.Session.Update(ctx, row); err != nil {
			s.logger.Error("更新训练会话失败", zap.String("session_id", id), zap.Error(err))
			return nil, err
		}
		if row.Kind == schedule.KindOccurrence {
			return s.singleView(ctx, *row, now), nil
		}
		return s.viewOf([]model.TrainingSession{*row}, id, now)
	}

	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Session.Update(ctx, row); err != nil {
			return err
		}
		if err := s.propagateToUpcoming(ctx, txRepo, row, now); err != nil {
			return err
		}
		_, err := s.syncTemplate(ctx, txRepo, row, callerID)
		return err
	})
	if err != nil {
		s.logger.Error("更新循环会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return s.Get(ctx, academyID, id)
}

// applyDates 处理日期字段：单次会话可改日期，模板可改起止日期、星期与排除日期，实例日期不可改
func (s *sessionService) applyDates(row *model.TrainingSession, req *dto.UpdateSessionRequest) error {
	switch row.Kind {
	case schedule.KindOccurrence:
		if req.Date != nil || req.RecurringEndDate != nil || req.SelectedDays != nil || req.ExcludedDates != nil {
			return ErrOccurrenceDateFixed
		}
	case schedule.KindRegular:
		if req.Date != nil {
			d, err := schedule.ParseDate(*req.Date)
			if err != nil {
				return ErrInvalidTime
			}
			row.SessionDate = d
		}
	case schedule.KindTemplate:
		if req.Date != nil {
			d, err := schedule.ParseDate(*req.Date)
			if err != nil {
				return ErrInvalidRecurrence
			}
			row.SessionDate = d
		}
		if req.RecurringEndDate != nil {
			d, err := schedule.ParseDate(*req.RecurringEndDate)
			if err != nil {
				return ErrInvalidRecurrence
			}
			row.RecurringEndDate = d
		}
		if req.SelectedDays != nil {
			days, err := schedule.ParseDays(*req.SelectedDays)
			if err != nil {
				return ErrInvalidRecurrence
			}
			row.SelectedDays = days
		}
		if req.ExcludedDates != nil {
			excluded, err := schedule.ParseDates(*req.ExcludedDates)
			if err != nil {
				return ErrInvalidRecurrence
			}
			row.ExcludedDates = excluded
		}
		t := toRecord(row).(*schedule.Template)
		if !t.Valid() {
			return ErrInvalidRecurrence
		}
		if occs, _ := s.expander.ExpandTemplate(t); len(occs) == 0 {
			return ErrNoOccurrences
		}
	}
	return nil
}

// propagateToUpcoming 将模板的公共字段同步到尚未开始的实例，出勤与评分保持不变
func (s *sessionService) propagateToUpcoming(ctx context.Context, repo *repository.Repository, tpl *model.TrainingSession, now time.Time) error {
	occRows, err := repo.Session.ListByParent(ctx, tpl.AcademyID, tpl.SessionID)
	if err != nil {
		return err
	}
	for i := range occRows {
		occ := &occRows[i]
		if occ.Status.Advance(schedule.Classify(toRecord(occ), now)) != schedule.StatusUpcoming {
			continue
		}
		occ.Name = tpl.Name
		occ.StartTime = tpl.StartTime
		occ.EndTime = tpl.EndTime
		occ.AssignedBatchID = tpl.AssignedBatchID
		occ.AssignedPlayers = tpl.AssignedPlayers
		occ.CoachIDs = tpl.CoachIDs
		occ.Status = schedule.Classify(toRecord(occ), now)
		occ.UpdatedBy = tpl.UpdatedBy
		if err := repo.Session.Update(ctx, occ); err != nil {
			return err
		}
	}
	return nil
}

func (s *sessionService) Delete(ctx context.Context, academyID, id, callerID string) error {
	row, err := s.getRow(ctx, academyID, id)
	if err != nil {
		return err
	}

	if row.Kind != schedule.KindTemplate || s.deletePolicy != config.DeletePolicyCascade {
		if err := s.repo.Session.Delete(ctx, academyID, id, callerID); err != nil {
			s.logger.Error("删除训练会话失败", zap.String("session_id", id), zap.Error(err))
			return err
		}
		return nil
	}

	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.Session.DeleteByParent(ctx, academyID, id, callerID); err != nil {
			return err
		}
		return txRepo.Session.Delete(ctx, academyID, id, callerID)
	})
	if err != nil {
		s.logger.Error("级联删除循环会话失败", zap.String("session_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// Attendance / Metrics
// ════════════════════════════════════════════════════════════

func (s *sessionService) MarkAttendance(ctx context.Context, academyID, id string, req *dto.MarkAttendanceRequest, callerID string) (*dto.SessionResponse, error) {
	return s.BulkMarkAttendance(ctx, academyID, id, &dto.BulkAttendanceRequest{
		Entries: []dto.MarkAttendanceRequest{*req},
	}, callerID)
}

func (s *sessionService) BulkMarkAttendance(ctx context.Context, academyID, id string, req *dto.BulkAttendanceRequest, callerID string) (*dto.SessionResponse, error) {
	row, err := s.datedRow(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	for _, e := range req.Entries {
		if !row.HasPlayer(e.PlayerID) {
			return nil, ErrPlayerNotAssigned
		}
	}

	markedAt := s.clock().UTC()
	attendance := model.Attendance{}
	for k, v := range row.Attendance.Data() {
		attendance[k] = v
	}
	for _, e := range req.Entries {
		attendance[e.PlayerID] = model.AttendanceEntry{
			Status:   e.Status,
			MarkedAt: markedAt,
			MarkedBy: callerID,
		}
	}
	row.Attendance = datatypes.NewJSONType(attendance)
	row.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Session.Update(ctx, row); err != nil {
		s.logger.Error("保存出勤失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	resp := toSessionResponse(toRecord(row), row)
	return &resp, nil
}

func (s *sessionService) UpdateMetrics(ctx context.Context, academyID, id string, req *dto.SessionMetricsRequest, callerID string) (*dto.SessionResponse, error) {
	row, err := s.datedRow(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	if !row.HasPlayer(req.PlayerID) {
		return nil, ErrPlayerNotAssigned
	}

	attrs := clampAttributes(req.Attributes.ToModel())
	rating := clamp(req.SessionRating, 0, 10)
	entry := model.SessionMetrics{
		Attributes:    attrs,
		SessionRating: rating,
		Overall:       math.Round(attrs.Sum() / 6),
		UpdatedAt:     s.clock().UTC(),
		UpdatedBy:     callerID,
	}

	metrics := model.SessionMetricsMap{}
	for k, v := range row.PlayerMetrics.Data() {
		metrics[k] = v
	}
	metrics[req.PlayerID] = entry
	row.PlayerMetrics = datatypes.NewJSONType(metrics)
	row.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Session.Update(ctx, row); err != nil {
		s.logger.Error("保存训练评分失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	err = s.players.RecordTraining(ctx, academyID, req.PlayerID, TrainingEntry{
		SessionID:     row.SessionID,
		Date:          row.SessionDate,
		Attributes:    attrs,
		SessionRating: rating,
		Overall:       entry.Overall,
	}, callerID)
	if err != nil {
		s.logger.Error("写入球员成绩历史失败",
			zap.String("session_id", id), zap.String("player_id", req.PlayerID), zap.Error(err))
		return nil, err
	}

	resp := toSessionResponse(toRecord(row), row)
	return &resp, nil
}

// datedRow 返回可记录出勤/评分的会话（单次会话或实例）
func (s *sessionService) datedRow(ctx context.Context, academyID, id string) (*model.TrainingSession, error) {
	row, err := s.getRow(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	if row.Kind == schedule.KindTemplate {
		return nil, ErrTemplateNoAttendance
	}
	return row, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func clampAttributes(a model.PlayerAttributes) model.PlayerAttributes {
	return model.PlayerAttributes{
		Shooting:    clamp(a.Shooting, 0, 10),
		Pace:        clamp(a.Pace, 0, 10),
		Positioning: clamp(a.Positioning, 0, 10),
		Passing:     clamp(a.Passing, 0, 10),
		BallControl: clamp(a.BallControl, 0, 10),
		Crossing:    clamp(a.Crossing, 0, 10),
	}
}

// ════════════════════════════════════════════════════════════
// Status sync
// ════════════════════════════════════════════════════════════

func (s *sessionService) SyncStatuses(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.repo.Session.ListUnfinished(ctx, schedule.DateOf(now))
	if err != nil {
		s.logger.Error("查询未结束会话失败", zap.Error(err))
		return 0, err
	}

	records, _ := toRecords(rows)
	updated := 0
	for _, r := range schedule.Reclassify(records, now) {
		c := r.Common()
		if err := s.repo.Session.UpdateStatus(ctx, c.ID, c.Status); err != nil {
			s.logger.Error("更新会话状态失败", zap.String("session_id", c.ID), zap.Error(err))
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// ── 事务辅助 ──

// withTx 在事务中执行 fn；fn 返回错误或 panic 时回滚
func (s *sessionService) withTx(ctx context.Context, fn func(txRepo *repository.Repository) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(s.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}
