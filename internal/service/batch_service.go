package service

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/pkg/cache"
)

// ── 分组模块业务错误 ──

var (
	ErrBatchNotFound = errors.New("分组不存在")
	ErrInvalidCoach  = errors.New("指定教练不存在或不是教练角色")
)

// BatchService 训练分组业务接口
type BatchService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateBatchRequest, callerID string) (*dto.BatchResponse, error)
	Get(ctx context.Context, academyID, id string) (*dto.BatchResponse, error)
	List(ctx context.Context, academyID string) ([]dto.BatchResponse, error)
	Update(ctx context.Context, academyID, id string, req *dto.UpdateBatchRequest, callerID string) (*dto.BatchResponse, error)
	Delete(ctx context.Context, academyID, id, callerID string) error
	// ListPlayers 分组内的球员档案
	ListPlayers(ctx context.Context, academyID, id string) ([]dto.PlayerResponse, error)
}

type batchService struct {
	repo   *repository.Repository
	cache  cache.Store
	logger *zap.Logger
}

// NewBatchService 创建 BatchService 实例
func NewBatchService(repo *repository.Repository, store cache.Store, logger *zap.Logger) BatchService {
	return &batchService{repo: repo, cache: store, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *batchService) Create(ctx context.Context, academyID string, req *dto.CreateBatchRequest, callerID string) (*dto.BatchResponse, error) {
	if err := s.checkMembers(ctx, academyID, req.CoachIDs, req.PlayerIDs); err != nil {
		return nil, err
	}

	batch := &model.Batch{
		AcademyID: academyID,
		Name:      req.Name,
		CoachIDs:  pq.StringArray(nonNil(req.CoachIDs)),
		PlayerIDs: pq.StringArray(nonNil(req.PlayerIDs)),
	}
	batch.CreatedBy = model.StrPtr(callerID)
	batch.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Batch.Create(ctx, batch); err != nil {
		s.logger.Error("创建分组失败", zap.Error(err))
		return nil, err
	}
	s.invalidatePlayers(ctx, academyID, batch.PlayerIDs)
	return toBatchResponse(batch), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *batchService) Get(ctx context.Context, academyID, id string) (*dto.BatchResponse, error) {
	batch, err := s.getBatch(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	return toBatchResponse(batch), nil
}

func (s *batchService) List(ctx context.Context, academyID string) ([]dto.BatchResponse, error) {
	batches, err := s.repo.Batch.List(ctx, academyID)
	if err != nil {
		s.logger.Error("列出分组失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.BatchResponse, 0, len(batches))
	for i := range batches {
		result = append(result, *toBatchResponse(&batches[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *batchService) Update(ctx context.Context, academyID, id string, req *dto.UpdateBatchRequest, callerID string) (*dto.BatchResponse, error) {
	batch, err := s.getBatch(ctx, academyID, id)
	if err != nil {
		return nil, err
	}

	var coachIDs, playerIDs []string
	if req.CoachIDs != nil {
		coachIDs = *req.CoachIDs
	}
	if req.PlayerIDs != nil {
		playerIDs = *req.PlayerIDs
	}
	if err := s.checkMembers(ctx, academyID, coachIDs, playerIDs); err != nil {
		return nil, err
	}

	// 成员变动前后的球员档案都需失效
	affected := append([]string{}, batch.PlayerIDs...)

	if req.Name != nil {
		batch.Name = *req.Name
	}
	if req.CoachIDs != nil {
		batch.CoachIDs = pq.StringArray(nonNil(coachIDs))
	}
	if req.PlayerIDs != nil {
		batch.PlayerIDs = pq.StringArray(nonNil(playerIDs))
	}
	batch.Version = req.Version
	batch.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Batch.Update(ctx, batch); err != nil {
		s.logger.Error("更新分组失败", zap.String("batch_id", id), zap.Error(err))
		return nil, err
	}
	s.invalidatePlayers(ctx, academyID, append(affected, batch.PlayerIDs...))
	return toBatchResponse(batch), nil
}

// ────────────────────── Delete ──────────────────────

func (s *batchService) Delete(ctx context.Context, academyID, id, callerID string) error {
	batch, err := s.getBatch(ctx, academyID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Batch.Delete(ctx, academyID, id, callerID); err != nil {
		s.logger.Error("删除分组失败", zap.String("batch_id", id), zap.Error(err))
		return err
	}
	s.invalidatePlayers(ctx, academyID, batch.PlayerIDs)
	return nil
}

func (s *batchService) ListPlayers(ctx context.Context, academyID, id string) ([]dto.PlayerResponse, error) {
	batch, err := s.getBatch(ctx, academyID, id)
	if err != nil {
		return nil, err
	}
	if len(batch.PlayerIDs) == 0 {
		return []dto.PlayerResponse{}, nil
	}

	players, err := s.repo.Player.List(ctx, academyID, batch.PlayerIDs)
	if err != nil {
		s.logger.Error("查询分组球员失败", zap.String("batch_id", id), zap.Error(err))
		return nil, err
	}
	brief := []dto.BatchBrief{{ID: batch.BatchID, Name: batch.Name}}
	result := make([]dto.PlayerResponse, 0, len(players))
	for i := range players {
		result = append(result, toPlayerResponse(&players[i], brief))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *batchService) getBatch(ctx context.Context, academyID, id string) (*model.Batch, error) {
	batch, err := s.repo.Batch.GetByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		s.logger.Error("查询分组失败", zap.String("batch_id", id), zap.Error(err))
		return nil, err
	}
	return batch, nil
}

// checkMembers 校验教练与球员均属于本学院
func (s *batchService) checkMembers(ctx context.Context, academyID string, coachIDs, playerIDs []string) error {
	if len(coachIDs) > 0 {
		users, err := s.repo.User.ListByIDs(ctx, academyID, coachIDs)
		if err != nil {
			return err
		}
		coaches := make(map[string]bool, len(users))
		for _, u := range users {
			if u.Role == model.RoleCoach {
				coaches[u.UserID] = true
			}
		}
		for _, id := range coachIDs {
			if !coaches[id] {
				return ErrInvalidCoach
			}
		}
	}

	if len(playerIDs) > 0 {
		players, err := s.repo.Player.List(ctx, academyID, playerIDs)
		if err != nil {
			return err
		}
		found := make(map[string]bool, len(players))
		for _, p := range players {
			found[p.PlayerID] = true
		}
		for _, id := range playerIDs {
			if !found[id] {
				return ErrPlayerNotFound
			}
		}
	}
	return nil
}

func (s *batchService) invalidatePlayers(ctx context.Context, academyID string, playerIDs []string) {
	if len(playerIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		keys = append(keys, playerCacheKey(academyID, id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("清除球员缓存失败", zap.Error(err))
	}
}

func toBatchResponse(b *model.Batch) *dto.BatchResponse {
	return &dto.BatchResponse{
		ID:        b.BatchID,
		Name:      b.Name,
		CoachIDs:  nonNil(b.CoachIDs),
		PlayerIDs: nonNil(b.PlayerIDs),
		Version:   b.Version,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}
