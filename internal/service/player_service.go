package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
	"ams-server/pkg/cache"
)

// ── 球员模块业务错误 ──

var (
	ErrPlayerNotFound = errors.New("球员不存在")
)

// recentPerformanceWindow 平均表现取最近的成绩条数
const recentPerformanceWindow = 5

// TrainingEntry 一场训练中某球员的评分，写入成绩历史
type TrainingEntry struct {
	SessionID     string
	Date          schedule.Date
	Attributes    model.PlayerAttributes
	SessionRating float64
	Overall       float64
}

// PlayerService 球员业务接口
type PlayerService interface {
	Create(ctx context.Context, academyID string, req *dto.CreatePlayerRequest, callerID string) (*dto.PlayerResponse, error)
	// Get 读取球员档案（经缓存）
	Get(ctx context.Context, academyID, id string) (*dto.PlayerResponse, error)
	List(ctx context.Context, academyID string) ([]dto.PlayerResponse, error)
	Update(ctx context.Context, academyID, id string, req *dto.UpdatePlayerRequest, callerID string) (*dto.PlayerResponse, error)
	Delete(ctx context.Context, academyID, id, callerID string) error

	UpdateMetrics(ctx context.Context, academyID, id string, req *dto.UpdateMetricsRequest, callerID string) (*dto.PlayerResponse, error)
	UpdateMatchPoints(ctx context.Context, academyID, id string, req *dto.UpdateMatchPointsRequest, callerID string) (*dto.PlayerResponse, error)
	ListPerformance(ctx context.Context, academyID, id string, limit int) ([]dto.PerformanceResponse, error)
	// RecordTraining 以训练评分更新球员能力项并追加成绩历史
	RecordTraining(ctx context.Context, academyID, playerID string, entry TrainingEntry, callerID string) error
}

type playerService struct {
	repo   *repository.Repository
	cache  cache.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewPlayerService 创建 PlayerService 实例
func NewPlayerService(repo *repository.Repository, store cache.Store, logger *zap.Logger) PlayerService {
	return &playerService{repo: repo, cache: store, clock: time.Now, logger: logger}
}

func playerCacheKey(academyID, id string) string {
	return "player:" + academyID + ":" + id
}

// ── 计算 ──

// overallRating 六项能力之和折算为百分制，保留一位小数
func overallRating(a model.PlayerAttributes) float64 {
	return round1(a.Sum() / 60 * 100)
}

// averagePerformance 最近若干条成绩 (训练评分 + 训练积分 + 比赛积分) / 3 的均值，保留一位小数
func averagePerformance(history []model.PlayerPerformance) float64 {
	if len(history) == 0 {
		return 0
	}
	if len(history) > recentPerformanceWindow {
		history = history[:recentPerformanceWindow]
	}
	var sum float64
	for _, p := range history {
		sum += (p.SessionRating + p.TrainingPoints + p.MatchPoints) / 3
	}
	return round1(sum / float64(len(history)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ════════════════════════════════════════════════════════════
// CRUD
// ════════════════════════════════════════════════════════════

func (s *playerService) Create(ctx context.Context, academyID string, req *dto.CreatePlayerRequest, callerID string) (*dto.PlayerResponse, error) {
	player := &model.Player{
		AcademyID:  academyID,
		UserID:     model.StrPtr(req.UserID),
		Name:       req.Name,
		Position:   req.Position,
		PhotoURL:   req.PhotoURL,
		Attributes: datatypes.NewJSONType(model.PlayerAttributes{}),
	}
	player.CreatedBy = model.StrPtr(callerID)

	if err := s.repo.Player.Create(ctx, player); err != nil {
		s.logger.Error("创建球员失败", zap.Error(err))
		return nil, err
	}
	resp := toPlayerResponse(player, nil)
	return &resp, nil
}

func (s *playerService) Get(ctx context.Context, academyID, id string) (*dto.PlayerResponse, error) {
	key := playerCacheKey(academyID, id)
	if cached, ok, err := cache.GetJSON[dto.PlayerResponse](ctx, s.cache, key); err != nil {
		s.logger.Warn("读取球员缓存失败", zap.String("key", key), zap.Error(err))
	} else if ok {
		return &cached, nil
	}

	player, err := s.getPlayer(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	batches, err := s.repo.Batch.List(ctx, academyID)
	if err != nil {
		s.logger.Error("查询分组失败", zap.Error(err))
		return nil, err
	}

	resp := toPlayerResponse(player, batchesOf(batches)[id])
	if err := cache.SetJSON(ctx, s.cache, key, resp); err != nil {
		s.logger.Warn("写入球员缓存失败", zap.String("key", key), zap.Error(err))
	}
	return &resp, nil
}

func (s *playerService) List(ctx context.Context, academyID string) ([]dto.PlayerResponse, error) {
	players, err := s.repo.Player.List(ctx, academyID, nil)
	if err != nil {
		s.logger.Error("查询球员列表失败", zap.Error(err))
		return nil, err
	}
	batches, err := s.repo.Batch.List(ctx, academyID)
	if err != nil {
		s.logger.Error("查询分组失败", zap.Error(err))
		return nil, err
	}

	membership := batchesOf(batches)
	result := make([]dto.PlayerResponse, 0, len(players))
	for i := range players {
		result = append(result, toPlayerResponse(&players[i], membership[players[i].PlayerID]))
	}
	return result, nil
}

func (s *playerService) Update(ctx context.Context, academyID, id string, req *dto.UpdatePlayerRequest, callerID string) (*dto.PlayerResponse, error) {
	player, err := s.getPlayer(ctx, academyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		player.Name = *req.Name
	}
	if req.Position != nil {
		player.Position = *req.Position
	}
	if req.PhotoURL != nil {
		player.PhotoURL = *req.PhotoURL
	}
	if req.UserID != nil {
		player.UserID = model.StrPtr(*req.UserID)
	}
	player.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Player.Update(ctx, player); err != nil {
		s.logger.Error("更新球员失败", zap.String("player_id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, academyID, id)
	return s.Get(ctx, academyID, id)
}

func (s *playerService) Delete(ctx context.Context, academyID, id, callerID string) error {
	if _, err := s.getPlayer(ctx, academyID, id); err != nil {
		return err
	}
	if err := s.repo.Player.Delete(ctx, academyID, id, callerID); err != nil {
		s.logger.Error("删除球员失败", zap.String("player_id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx, academyID, id)
	return nil
}

// ════════════════════════════════════════════════════════════
// Metrics / History
// ════════════════════════════════════════════════════════════

func (s *playerService) UpdateMetrics(ctx context.Context, academyID, id string, req *dto.UpdateMetricsRequest, callerID string) (*dto.PlayerResponse, error) {
	attrs := clampAttributes(req.Attributes.ToModel())
	entry := &model.PlayerPerformance{
		Type:           model.PerformanceTraining,
		Date:           schedule.DateOf(s.clock()),
		Attributes:     datatypes.NewJSONType(attrs),
		SessionRating:  clamp(req.SessionRating, 0, 10),
		TrainingPoints: clamp(req.TrainingPoints, 0, 10),
		Overall:        math.Round(attrs.Sum() / 6),
	}
	err := s.record(ctx, academyID, id, entry, callerID, func(p *model.Player) {
		p.Attributes = datatypes.NewJSONType(attrs)
		p.OverallRating = overallRating(attrs)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, academyID, id)
}

func (s *playerService) UpdateMatchPoints(ctx context.Context, academyID, id string, req *dto.UpdateMatchPointsRequest, callerID string) (*dto.PlayerResponse, error) {
	date := schedule.DateOf(s.clock())
	if req.Date != "" {
		d, err := schedule.ParseDate(req.Date)
		if err != nil {
			return nil, ErrInvalidTime
		}
		date = d
	}

	entry := &model.PlayerPerformance{
		Type:        model.PerformanceMatch,
		MatchID:     req.MatchID,
		Date:        date,
		Attributes:  datatypes.NewJSONType(model.PlayerAttributes{}),
		MatchPoints: req.Points,
	}
	err := s.record(ctx, academyID, id, entry, callerID, func(p *model.Player) {
		entry.PreviousMatchPoints = p.MatchPoints
		p.MatchPoints = req.Points
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, academyID, id)
}

func (s *playerService) RecordTraining(ctx context.Context, academyID, playerID string, e TrainingEntry, callerID string) error {
	entry := &model.PlayerPerformance{
		SessionID:     model.StrPtr(e.SessionID),
		Type:          model.PerformanceTraining,
		Date:          e.Date,
		Attributes:    datatypes.NewJSONType(e.Attributes),
		SessionRating: e.SessionRating,
		Overall:       e.Overall,
	}
	return s.record(ctx, academyID, playerID, entry, callerID, func(p *model.Player) {
		p.Attributes = datatypes.NewJSONType(e.Attributes)
		p.OverallRating = overallRating(e.Attributes)
	})
}

// record 在事务中追加成绩历史、更新球员并重算平均表现
func (s *playerService) record(ctx context.Context, academyID, id string, entry *model.PlayerPerformance, callerID string, apply func(p *model.Player)) error {
	player, err := s.getPlayer(ctx, academyID, id)
	if err != nil {
		return err
	}

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
	txRepo := s.repo.WithTx(tx)

	fail := func(msg string, err error) error {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error(msg, zap.String("player_id", id), zap.Error(err))
		return err
	}

	apply(player)
	entry.PlayerID = player.PlayerID
	entry.AcademyID = academyID
	entry.CreatedBy = model.StrPtr(callerID)
	if err := txRepo.Player.AppendPerformance(ctx, entry); err != nil {
		return fail("追加成绩历史失败", err)
	}

	history, err := txRepo.Player.ListPerformance(ctx, player.PlayerID, recentPerformanceWindow)
	if err != nil {
		return fail("查询成绩历史失败", err)
	}
	now := s.clock()
	player.AveragePerformance = averagePerformance(history)
	player.LastUpdated = &now
	player.UpdatedBy = model.StrPtr(callerID)
	if err := txRepo.Player.Update(ctx, player); err != nil {
		return fail("更新球员失败", err)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	s.invalidate(ctx, academyID, id)
	return nil
}

func (s *playerService) ListPerformance(ctx context.Context, academyID, id string, limit int) ([]dto.PerformanceResponse, error) {
	if _, err := s.getPlayer(ctx, academyID, id); err != nil {
		return nil, err
	}
	history, err := s.repo.Player.ListPerformance(ctx, id, limit)
	if err != nil {
		s.logger.Error("查询成绩历史失败", zap.String("player_id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PerformanceResponse, 0, len(history))
	for _, p := range history {
		result = append(result, dto.PerformanceResponse{
			ID:                  p.PerformanceID,
			Type:                p.Type,
			Date:                p.Date.String(),
			SessionID:           model.StrVal(p.SessionID),
			MatchID:             p.MatchID,
			Attributes:          toAttributesDTO(p.Attributes.Data()),
			SessionRating:       p.SessionRating,
			Overall:             p.Overall,
			TrainingPoints:      p.TrainingPoints,
			MatchPoints:         p.MatchPoints,
			PreviousMatchPoints: p.PreviousMatchPoints,
			CreatedAt:           p.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

// ── 辅助 ──

func (s *playerService) getPlayer(ctx context.Context, academyID, id string) (*model.Player, error) {
	player, err := s.repo.Player.GetByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		s.logger.Error("查询球员失败", zap.String("player_id", id), zap.Error(err))
		return nil, err
	}
	return player, nil
}

func (s *playerService) invalidate(ctx context.Context, academyID, id string) {
	if err := s.cache.Delete(ctx, playerCacheKey(academyID, id)); err != nil {
		s.logger.Warn("清除球员缓存失败", zap.String("player_id", id), zap.Error(err))
	}
}

// batchesOf 球员ID → 所属分组
func batchesOf(batches []model.Batch) map[string][]dto.BatchBrief {
	out := make(map[string][]dto.BatchBrief)
	for _, b := range batches {
		for _, pid := range b.PlayerIDs {
			out[pid] = append(out[pid], dto.BatchBrief{ID: b.BatchID, Name: b.Name})
		}
	}
	return out
}

func toAttributesDTO(a model.PlayerAttributes) dto.AttributesInput {
	return dto.AttributesInput{
		Shooting:    a.Shooting,
		Pace:        a.Pace,
		Positioning: a.Positioning,
		Passing:     a.Passing,
		BallControl: a.BallControl,
		Crossing:    a.Crossing,
	}
}

func toPlayerResponse(p *model.Player, batches []dto.BatchBrief) dto.PlayerResponse {
	if batches == nil {
		batches = []dto.BatchBrief{}
	}
	resp := dto.PlayerResponse{
		ID:                 p.PlayerID,
		UserID:             model.StrVal(p.UserID),
		Name:               p.Name,
		Position:           p.Position,
		PhotoURL:           p.PhotoURL,
		Attributes:         toAttributesDTO(p.Attributes.Data()),
		OverallRating:      p.OverallRating,
		AveragePerformance: p.AveragePerformance,
		MatchPoints:        p.MatchPoints,
		Batches:            batches,
		Version:            p.Version,
	}
	if p.LastUpdated != nil {
		resp.LastUpdated = p.LastUpdated.Format(time.RFC3339)
	}
	return resp
}
