package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
	pkgerrors "ams-server/pkg/errors"
)

// PlayerRepository 球员数据访问接口
type PlayerRepository interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, academyID, id string) (*model.Player, error)
	List(ctx context.Context, academyID string, ids []string) ([]model.Player, error)
	// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, player *model.Player) error
	Delete(ctx context.Context, academyID, id, deletedBy string) error

	AppendPerformance(ctx context.Context, entry *model.PlayerPerformance) error
	// ListPerformance 按创建时间倒序返回成绩历史，limit<=0 表示全部
	ListPerformance(ctx context.Context, playerID string, limit int) ([]model.PlayerPerformance, error)
}

// playerRepo PlayerRepository 的 GORM 实现
type playerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo 创建 PlayerRepository 实例
func NewPlayerRepo(db *gorm.DB) PlayerRepository {
	return &playerRepo{db: db}
}

func (r *playerRepo) Create(ctx context.Context, player *model.Player) error {
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *playerRepo) GetByID(ctx context.Context, academyID, id string) (*model.Player, error) {
	var player model.Player
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND player_id = ?", academyID, id).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// List ids 为空时返回学院全部球员
func (r *playerRepo) List(ctx context.Context, academyID string, ids []string) ([]model.Player, error) {
	var players []model.Player
	db := r.db.WithContext(ctx).Where("academy_id = ?", academyID)
	if len(ids) > 0 {
		db = db.Where("player_id IN ?", ids)
	}
	err := db.Order("name ASC").Find(&players).Error
	return players, err
}

func (r *playerRepo) Update(ctx context.Context, player *model.Player) error {
	oldVersion := player.Version
	result := r.db.WithContext(ctx).
		Model(player).
		Where("player_id = ? AND version = ?", player.PlayerID, oldVersion).
		Updates(map[string]interface{}{
			"name":                player.Name,
			"position":            player.Position,
			"photo_url":           player.PhotoURL,
			"user_id":             player.UserID,
			"attributes":          player.Attributes,
			"overall_rating":      player.OverallRating,
			"average_performance": player.AveragePerformance,
			"match_points":        player.MatchPoints,
			"last_updated":        player.LastUpdated,
			"updated_by":          player.UpdatedBy,
			"version":             oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	player.Version = oldVersion + 1
	return nil
}

func (r *playerRepo) Delete(ctx context.Context, academyID, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Player{}).
		Where("academy_id = ? AND player_id = ?", academyID, id).
		Updates(deleteColumns(deletedBy)).Error
}

func (r *playerRepo) AppendPerformance(ctx context.Context, entry *model.PlayerPerformance) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *playerRepo) ListPerformance(ctx context.Context, playerID string, limit int) ([]model.PlayerPerformance, error) {
	var entries []model.PlayerPerformance
	db := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&entries).Error
	return entries, err
}
