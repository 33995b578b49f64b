package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"ams-server/internal/dto"
	"ams-server/internal/model"
)

func TestRatingService_CreateAndSummary(t *testing.T) {
	repo := newMockRepository()
	svc := NewRatingService(repo, zap.NewNop())
	ctx := context.Background()

	coach := &model.User{AcademyID: testAcademy, Username: "coach01", Name: "王教练", Role: model.RoleCoach}
	_ = repo.User.Create(ctx, coach)

	for _, r := range []int{8, 7, 10} {
		if _, err := svc.Create(ctx, testAcademy, &dto.CreateRatingRequest{CoachID: coach.UserID, Rating: r}, "stu-1"); err != nil {
			t.Fatalf("Create 应成功: %v", err)
		}
	}

	summary, err := svc.Summary(ctx, testAcademy, coach.UserID)
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if summary.Count != 3 || summary.Average != 8.3 {
		t.Errorf("期望 3 条 平均 8.3，实际 %d / %v", summary.Count, summary.Average)
	}
	if summary.Ratings[0].Rating != 10 {
		t.Errorf("期望最新评分在前，实际 %d", summary.Ratings[0].Rating)
	}
}

func TestRatingService_InvalidCoach(t *testing.T) {
	repo := newMockRepository()
	svc := NewRatingService(repo, zap.NewNop())
	ctx := context.Background()

	student := &model.User{AcademyID: testAcademy, Username: "stu01", Name: "学员", Role: model.RoleStudent}
	_ = repo.User.Create(ctx, student)

	tests := []struct {
		name    string
		coachID string
	}{
		{"不存在", "ghost"},
		{"非教练", student.UserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, testAcademy, &dto.CreateRatingRequest{CoachID: tt.coachID, Rating: 5}, "stu-1")
			if !errors.Is(err, ErrInvalidCoach) {
				t.Errorf("期望 ErrInvalidCoach，实际: %v", err)
			}
		})
	}

	if _, err := svc.Summary(ctx, "other-academy", student.UserID); !errors.Is(err, ErrInvalidCoach) {
		t.Errorf("期望 ErrInvalidCoach，实际: %v", err)
	}
}
