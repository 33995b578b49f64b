package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
)

var (
	ErrAcademyNotFound   = errors.New("学院不存在")
	ErrAcademyCodeExists = errors.New("学院编码已存在")
)

// AcademyService 学院（租户）业务接口，仅 owner 可调用
type AcademyService interface {
	Create(ctx context.Context, req *dto.CreateAcademyRequest, callerID string) (*dto.AcademyResponse, error)
	Get(ctx context.Context, id string) (*dto.AcademyResponse, error)
	List(ctx context.Context) ([]dto.AcademyResponse, error)
}

type academyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAcademyService 创建 AcademyService 实例
func NewAcademyService(repo *repository.Repository, logger *zap.Logger) AcademyService {
	return &academyService{repo: repo, logger: logger}
}

func (s *academyService) Create(ctx context.Context, req *dto.CreateAcademyRequest, callerID string) (*dto.AcademyResponse, error) {
	code := strings.ToUpper(req.Code)
	if _, err := s.repo.Academy.GetByCode(ctx, code); err == nil {
		return nil, ErrAcademyCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学院失败", zap.Error(err))
		return nil, err
	}

	academy := &model.Academy{
		Code:         code,
		Name:         req.Name,
		Location:     req.Location,
		ContactEmail: req.ContactEmail,
		IsActive:     true,
	}
	academy.CreatedBy = model.StrPtr(callerID)

	if err := s.repo.Academy.Create(ctx, academy); err != nil {
		s.logger.Error("创建学院失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("学院已创建", zap.String("academy_id", academy.AcademyID), zap.String("code", code))
	return toAcademyResponse(academy), nil
}

func (s *academyService) Get(ctx context.Context, id string) (*dto.AcademyResponse, error) {
	academy, err := s.repo.Academy.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAcademyNotFound
		}
		s.logger.Error("查询学院失败", zap.String("academy_id", id), zap.Error(err))
		return nil, err
	}
	return toAcademyResponse(academy), nil
}

func (s *academyService) List(ctx context.Context) ([]dto.AcademyResponse, error) {
	academies, err := s.repo.Academy.List(ctx)
	if err != nil {
		s.logger.Error("列出学院失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.AcademyResponse, 0, len(academies))
	for i := range academies {
		result = append(result, *toAcademyResponse(&academies[i]))
	}
	return result, nil
}

func toAcademyResponse(a *model.Academy) *dto.AcademyResponse {
	return &dto.AcademyResponse{
		ID:           a.AcademyID,
		Code:         a.Code,
		Name:         a.Name,
		Location:     a.Location,
		ContactEmail: a.ContactEmail,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}
