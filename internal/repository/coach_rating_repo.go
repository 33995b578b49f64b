package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
)

// CoachRatingRepository 教练评分数据访问接口
type CoachRatingRepository interface {
	Create(ctx context.Context, rating *model.CoachRating) error
	// ListByCoach 按时间倒序返回评分，并预加载评分学员
	ListByCoach(ctx context.Context, academyID, coachID string) ([]model.CoachRating, error)
	// Average 返回平均分与评分数量
	Average(ctx context.Context, academyID, coachID string) (float64, int64, error)
}

// coachRatingRepo CoachRatingRepository 的 GORM 实现
type coachRatingRepo struct {
	db *gorm.DB
}

// NewCoachRatingRepo 创建 CoachRatingRepository 实例
func NewCoachRatingRepo(db *gorm.DB) CoachRatingRepository {
	return &coachRatingRepo{db: db}
}

func (r *coachRatingRepo) Create(ctx context.Context, rating *model.CoachRating) error {
	return r.db.WithContext(ctx).Omit("Student").Create(rating).Error
}

func (r *coachRatingRepo) ListByCoach(ctx context.Context, academyID, coachID string) ([]model.CoachRating, error) {
	var ratings []model.CoachRating
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("academy_id = ? AND coach_id = ?", academyID, coachID).
		Order("created_at DESC").
		Find(&ratings).Error
	return ratings, err
}

func (r *coachRatingRepo) Average(ctx context.Context, academyID, coachID string) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.CoachRating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("academy_id = ? AND coach_id = ?", academyID, coachID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}
