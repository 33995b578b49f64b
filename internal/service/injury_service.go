package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
)

var ErrInjuryNotFound = errors.New("伤病记录不存在")

// InjuryService 球员伤病记录
type InjuryService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateInjuryRequest, callerID string) (*dto.InjuryResponse, error)
	// List playerID 为空时返回全学院记录
	List(ctx context.Context, academyID, playerID string) ([]dto.InjuryResponse, error)
	Update(ctx context.Context, academyID, id string, req *dto.UpdateInjuryRequest, callerID string) (*dto.InjuryResponse, error)
	Delete(ctx context.Context, academyID, id, callerID string) error
}

type injuryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewInjuryService 创建 InjuryService 实例
func NewInjuryService(repo *repository.Repository, logger *zap.Logger) InjuryService {
	return &injuryService{repo: repo, logger: logger}
}

func (s *injuryService) Create(ctx context.Context, academyID string, req *dto.CreateInjuryRequest, callerID string) (*dto.InjuryResponse, error) {
	if _, err := s.repo.Player.GetByID(ctx, academyID, req.PlayerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	injuredOn, err := schedule.ParseDate(req.InjuredOn)
	if err != nil {
		return nil, ErrInvalidTime
	}
	var expected schedule.Date
	if req.ExpectedReturn != "" {
		if expected, err = schedule.ParseDate(req.ExpectedReturn); err != nil {
			return nil, ErrInvalidTime
		}
	}

	injury := &model.Injury{
		AcademyID:      academyID,
		PlayerID:       req.PlayerID,
		InjuryType:     req.InjuryType,
		BodyPart:       req.BodyPart,
		Severity:       req.Severity,
		Description:    req.Description,
		InjuredOn:      injuredOn,
		ExpectedReturn: expected,
		Status:         model.InjuryActive,
	}
	injury.CreatedBy = model.StrPtr(callerID)

	if err := s.repo.Injury.Create(ctx, injury); err != nil {
		s.logger.Error("登记伤病失败", zap.Error(err))
		return nil, err
	}
	resp := toInjuryResponse(injury)
	return &resp, nil
}

func (s *injuryService) List(ctx context.Context, academyID, playerID string) ([]dto.InjuryResponse, error) {
	injuries, err := s.repo.Injury.List(ctx, academyID, playerID)
	if err != nil {
		s.logger.Error("查询伤病记录失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.InjuryResponse, 0, len(injuries))
	for i := range injuries {
		result = append(result, toInjuryResponse(&injuries[i]))
	}
	return result, nil
}

func (s *injuryService) Update(ctx context.Context, academyID, id string, req *dto.UpdateInjuryRequest, callerID string) (*dto.InjuryResponse, error) {
	injury, err := s.getInjury(ctx, academyID, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		injury.Status = *req.Status
	}
	if req.Severity != nil {
		injury.Severity = *req.Severity
	}
	if req.Description != nil {
		injury.Description = *req.Description
	}
	if req.ExpectedReturn != nil {
		d, err := schedule.ParseDate(*req.ExpectedReturn)
		if err != nil {
			return nil, ErrInvalidTime
		}
		injury.ExpectedReturn = d
	}
	injury.UpdatedBy = model.StrPtr(callerID)

	if err := s.repo.Injury.Update(ctx, injury); err != nil {
		s.logger.Error("更新伤病记录失败", zap.String("injury_id", id), zap.Error(err))
		return nil, err
	}
	resp := toInjuryResponse(injury)
	return &resp, nil
}

func (s *injuryService) Delete(ctx context.Context, academyID, id, callerID string) error {
	if _, err := s.getInjury(ctx, academyID, id); err != nil {
		return err
	}
	if err := s.repo.Injury.Delete(ctx, academyID, id, callerID); err != nil {
		s.logger.Error("删除伤病记录失败", zap.String("injury_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *injuryService) getInjury(ctx context.Context, academyID, id string) (*model.Injury, error) {
	injury, err := s.repo.Injury.GetByID(ctx, academyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInjuryNotFound
		}
		s.logger.Error("查询伤病记录失败", zap.String("injury_id", id), zap.Error(err))
		return nil, err
	}
	return injury, nil
}

func toInjuryResponse(i *model.Injury) dto.InjuryResponse {
	resp := dto.InjuryResponse{
		ID:          i.InjuryID,
		PlayerID:    i.PlayerID,
		InjuryType:  i.InjuryType,
		BodyPart:    i.BodyPart,
		Severity:    i.Severity,
		Description: i.Description,
		InjuredOn:   i.InjuredOn.String(),
		Status:      i.Status,
	}
	if !i.ExpectedReturn.IsZero() {
		resp.ExpectedReturn = i.ExpectedReturn.String()
	}
	return resp
}
