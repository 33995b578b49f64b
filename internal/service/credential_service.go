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

var ErrCredentialNotFound = errors.New("证书不存在")

// CredentialService 教练/员工资质证书
type CredentialService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateCredentialRequest, callerID string) (*dto.CredentialResponse, error)
	ListByUser(ctx context.Context, academyID, userID string) ([]dto.CredentialResponse, error)
	Delete(ctx context.Context, academyID, id, callerID string) error
}

type credentialService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCredentialService 创建 CredentialService 实例
func NewCredentialService(repo *repository.Repository, logger *zap.Logger) CredentialService {
	return &credentialService{repo: repo, logger: logger}
}

func (s *credentialService) Create(ctx context.Context, academyID string, req *dto.CreateCredentialRequest, callerID string) (*dto.CredentialResponse, error) {
	users, err := s.repo.User.ListByIDs(ctx, academyID, []string{req.UserID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	issued, err := schedule.ParseDate(req.IssuedOn)
	if err != nil {
		return nil, ErrInvalidTime
	}

	credential := &model.Credential{
		AcademyID:   academyID,
		UserID:      req.UserID,
		Title:       req.Title,
		Issuer:      req.Issuer,
		IssuedOn:    issued,
		DocumentURL: req.DocumentURL,
	}
	credential.CreatedBy = model.StrPtr(callerID)

	if err := s.repo.Credential.Create(ctx, credential); err != nil {
		s.logger.Error("创建证书失败", zap.Error(err))
		return nil, err
	}
	resp := toCredentialResponse(credential)
	return &resp, nil
}

func (s *credentialService) ListByUser(ctx context.Context, academyID, userID string) ([]dto.CredentialResponse, error) {
	credentials, err := s.repo.Credential.ListByUser(ctx, academyID, userID)
	if err != nil {
		s.logger.Error("查询证书失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.CredentialResponse, 0, len(credentials))
	for i := range credentials {
		result = append(result, toCredentialResponse(&credentials[i]))
	}
	return result, nil
}

func (s *credentialService) Delete(ctx context.Context, academyID, id, callerID string) error {
	if _, err := s.repo.Credential.GetByID(ctx, academyID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCredentialNotFound
		}
		return err
	}
	if err := s.repo.Credential.Delete(ctx, academyID, id, callerID); err != nil {
		s.logger.Error("删除证书失败", zap.String("credential_id", id), zap.Error(err))
		return err
	}
	return nil
}

func toCredentialResponse(c *model.Credential) dto.CredentialResponse {
	return dto.CredentialResponse{
		ID:          c.CredentialID,
		UserID:      c.UserID,
		Title:       c.Title,
		Issuer:      c.Issuer,
		IssuedOn:    c.IssuedOn.String(),
		DocumentURL: c.DocumentURL,
	}
}
