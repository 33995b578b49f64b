package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
	pkgerrors "ams-server/pkg/errors"
)

// BatchRepository 训练分组数据访问接口
type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	GetByID(ctx context.Context, academyID, id string) (*model.Batch, error)
	List(ctx context.Context, academyID string) ([]model.Batch, error)
	// Update 乐观锁更新，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, batch *model.Batch) error
	Delete(ctx context.Context, academyID, id, deletedBy string) error
}

// batchRepo BatchRepository 的 GORM 实现
type batchRepo struct {
	db *gorm.DB
}

// NewBatchRepo 创建 BatchRepository 实例
func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepo) GetByID(ctx context.Context, academyID, id string) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND batch_id = ?", academyID, id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepo) List(ctx context.Context, academyID string) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).
		Where("academy_id = ?", academyID).
		Order("name ASC").
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) Update(ctx context.Context, batch *model.Batch) error {
	oldVersion := batch.Version
	result := r.db.WithContext(ctx).
		Model(batch).
		Where("batch_id = ? AND version = ?", batch.BatchID, oldVersion).
		Updates(map[string]interface{}{
			"name":       batch.Name,
			"coach_ids":  batch.CoachIDs,
			"player_ids": batch.PlayerIDs,
			"updated_by": batch.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	batch.Version = oldVersion + 1
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, academyID, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Batch{}).
		Where("academy_id = ? AND batch_id = ?", academyID, id).
		Updates(deleteColumns(deletedBy)).Error
}
