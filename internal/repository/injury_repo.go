package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
)

// InjuryRepository 伤病记录数据访问接口
type InjuryRepository interface {
	Create(ctx context.Context, injury *model.Injury) error
	GetByID(ctx context.Context, academyID, id string) (*model.Injury, error)
	// List playerID 为空时返回学院全部伤病记录
	List(ctx context.Context, academyID, playerID string) ([]model.Injury, error)
	Update(ctx context.Context, injury *model.Injury) error
	Delete(ctx context.Context, academyID, id, deletedBy string) error
}

// injuryRepo InjuryRepository 的 GORM 实现
type injuryRepo struct {
	db *gorm.DB
}

// NewInjuryRepo 创建 InjuryRepository 实例
func NewInjuryRepo(db *gorm.DB) InjuryRepository {
	return &injuryRepo{db: db}
}

func (r *injuryRepo) Create(ctx context.Context, injury *model.Injury) error {
	return r.db.WithContext(ctx).Create(injury).Error
}

func (r *injuryRepo) GetByID(ctx context.Context, academyID, id string) (*model.Injury, error) {
	var injury model.Injury
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND injury_id = ?", academyID, id).
		First(&injury).Error
	if err != nil {
		return nil, err
	}
	return &injury, nil
}

func (r *injuryRepo) List(ctx context.Context, academyID, playerID string) ([]model.Injury, error) {
	var injuries []model.Injury
	db := r.db.WithContext(ctx).Where("academy_id = ?", academyID)
	if playerID != "" {
		db = db.Where("player_id = ?", playerID)
	}
	err := db.Order("injured_on DESC").Find(&injuries).Error
	return injuries, err
}

func (r *injuryRepo) Update(ctx context.Context, injury *model.Injury) error {
	return r.db.WithContext(ctx).
		Omit("created_at", "created_by").
		Save(injury).Error
}

func (r *injuryRepo) Delete(ctx context.Context, academyID, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Injury{}).
		Where("academy_id = ? AND injury_id = ?", academyID, id).
		Updates(deleteColumns(deletedBy)).Error
}
