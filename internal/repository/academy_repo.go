package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
)

// AcademyRepository 学院数据访问接口
type AcademyRepository interface {
	Create(ctx context.Context, academy *model.Academy) error
	GetByID(ctx context.Context, id string) (*model.Academy, error)
	GetByCode(ctx context.Context, code string) (*model.Academy, error)
	List(ctx context.Context) ([]model.Academy, error)
	Update(ctx context.Context, academy *model.Academy) error
}

// academyRepo AcademyRepository 的 GORM 实现
type academyRepo struct {
	db *gorm.DB
}

// NewAcademyRepo 创建 AcademyRepository 实例
func NewAcademyRepo(db *gorm.DB) AcademyRepository {
	return &academyRepo{db: db}
}

func (r *academyRepo) Create(ctx context.Context, academy *model.Academy) error {
	return r.db.WithContext(ctx).Create(academy).Error
}

func (r *academyRepo) GetByID(ctx context.Context, id string) (*model.Academy, error) {
	var academy model.Academy
	err := r.db.WithContext(ctx).
		Where("academy_id = ?", id).
		First(&academy).Error
	if err != nil {
		return nil, err
	}
	return &academy, nil
}

func (r *academyRepo) GetByCode(ctx context.Context, code string) (*model.Academy, error) {
	var academy model.Academy
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&academy).Error
	if err != nil {
		return nil, err
	}
	return &academy, nil
}

func (r *academyRepo) List(ctx context.Context) ([]model.Academy, error) {
	var academies []model.Academy
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&academies).Error
	return academies, err
}

func (r *academyRepo) Update(ctx context.Context, academy *model.Academy) error {
	return r.db.WithContext(ctx).Save(academy).Error
}
