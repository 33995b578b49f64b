package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
	"ams-server/internal/schedule"
)

// FinanceFilter 收支流水筛选条件
type FinanceFilter struct {
	Type     string
	Category string
	From     schedule.Date
	To       schedule.Date
}

// FinanceTotal 按类型与分类的金额汇总
type FinanceTotal struct {
	Type     string
	Category string
	Total    float64
}

// FinanceRepository 收支流水数据访问接口
type FinanceRepository interface {
	Create(ctx context.Context, tx *model.FinanceTransaction) error
	List(ctx context.Context, academyID string, filter FinanceFilter, offset, limit int) ([]model.FinanceTransaction, int64, error)
	Totals(ctx context.Context, academyID string, filter FinanceFilter) ([]FinanceTotal, error)
}

// financeRepo FinanceRepository 的 GORM 实现
type financeRepo struct {
	db *gorm.DB
}

// NewFinanceRepo 创建 FinanceRepository 实例
func NewFinanceRepo(db *gorm.DB) FinanceRepository {
	return &financeRepo{db: db}
}

func (r *financeRepo) Create(ctx context.Context, tx *model.FinanceTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *financeRepo) scoped(ctx context.Context, academyID string, filter FinanceFilter) *gorm.DB {
	db := r.db.WithContext(ctx).
		Model(&model.FinanceTransaction{}).
		Where("academy_id = ?", academyID)
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if !filter.From.IsZero() {
		db = db.Where("occurred_on >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("occurred_on <= ?", filter.To)
	}
	return db
}

func (r *financeRepo) List(ctx context.Context, academyID string, filter FinanceFilter, offset, limit int) ([]model.FinanceTransaction, int64, error) {
	var txs []model.FinanceTransaction
	var total int64

	db := r.scoped(ctx, academyID, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("occurred_on DESC, created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (r *financeRepo) Totals(ctx context.Context, academyID string, filter FinanceFilter) ([]FinanceTotal, error) {
	var totals []FinanceTotal
	err := r.scoped(ctx, academyID, filter).
		Select("type, category, COALESCE(SUM(amount), 0) AS total").
		Group("type, category").
		Order("type, category").
		Scan(&totals).Error
	return totals, err
}
