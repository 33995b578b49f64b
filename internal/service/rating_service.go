package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
)

// RatingService 学员评价教练
type RatingService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateRatingRequest, studentID string) (*dto.RatingResponse, error)
	// Summary 教练的评分列表与平均分（一位小数）
	Summary(ctx context.Context, academyID, coachID string) (*dto.CoachRatingSummary, error)
}

type ratingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRatingService 创建 RatingService 实例
func NewRatingService(repo *repository.Repository, logger *zap.Logger) RatingService {
	return &ratingService{repo: repo, logger: logger}
}

func (s *ratingService) Create(ctx context.Context, academyID string, req *dto.CreateRatingRequest, studentID string) (*dto.RatingResponse, error) {
	if err := s.checkCoach(ctx, academyID, req.CoachID); err != nil {
		return nil, err
	}

	rating := &model.CoachRating{
		AcademyID: academyID,
		CoachID:   req.CoachID,
		StudentID: studentID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	rating.CreatedBy = model.StrPtr(studentID)

	if err := s.repo.CoachRating.Create(ctx, rating); err != nil {
		s.logger.Error("保存教练评分失败", zap.Error(err))
		return nil, err
	}
	resp := toRatingResponse(rating)
	return &resp, nil
}

func (s *ratingService) Summary(ctx context.Context, academyID, coachID string) (*dto.CoachRatingSummary, error) {
	if err := s.checkCoach(ctx, academyID, coachID); err != nil {
		return nil, err
	}

	ratings, err := s.repo.CoachRating.ListByCoach(ctx, academyID, coachID)
	if err != nil {
		s.logger.Error("查询教练评分失败", zap.Error(err))
		return nil, err
	}
	avg, count, err := s.repo.CoachRating.Average(ctx, academyID, coachID)
	if err != nil {
		s.logger.Error("统计教练评分失败", zap.Error(err))
		return nil, err
	}

	summary := &dto.CoachRatingSummary{
		CoachID: coachID,
		Average: round1(avg),
		Count:   count,
		Ratings: make([]dto.RatingResponse, 0, len(ratings)),
	}
	for i := range ratings {
		summary.Ratings = append(summary.Ratings, toRatingResponse(&ratings[i]))
	}
	return summary, nil
}

func (s *ratingService) checkCoach(ctx context.Context, academyID, coachID string) error {
	users, err := s.repo.User.ListByIDs(ctx, academyID, []string{coachID})
	if err != nil {
		return err
	}
	if len(users) == 0 || users[0].Role != model.RoleCoach {
		return ErrInvalidCoach
	}
	return nil
}

func toRatingResponse(r *model.CoachRating) dto.RatingResponse {
	resp := dto.RatingResponse{
		ID:        r.RatingID,
		CoachID:   r.CoachID,
		StudentID: r.StudentID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.Student != nil {
		resp.StudentName = r.Student.Name
	}
	return resp
}
