package repository

import (
	"context"

	"gorm.io/gorm"

	"ams-server/internal/model"
)

// CredentialRepository 资质证书数据访问接口
type CredentialRepository interface {
	Create(ctx context.Context, credential *model.Credential) error
	GetByID(ctx context.Context, academyID, id string) (*model.Credential, error)
	ListByUser(ctx context.Context, academyID, userID string) ([]model.Credential, error)
	Delete(ctx context.Context, academyID, id, deletedBy string) error
}

// credentialRepo CredentialRepository 的 GORM 实现
type credentialRepo struct {
	db *gorm.DB
}

// NewCredentialRepo 创建 CredentialRepository 实例
func NewCredentialRepo(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) Create(ctx context.Context, credential *model.Credential) error {
	return r.db.WithContext(ctx).Create(credential).Error
}

func (r *credentialRepo) GetByID(ctx context.Context, academyID, id string) (*model.Credential, error) {
	var credential model.Credential
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND credential_id = ?", academyID, id).
		First(&credential).Error
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

func (r *credentialRepo) ListByUser(ctx context.Context, academyID, userID string) ([]model.Credential, error) {
	var credentials []model.Credential
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND user_id = ?", academyID, userID).
		Order("issued_on DESC").
		Find(&credentials).Error
	return credentials, err
}

func (r *credentialRepo) Delete(ctx context.Context, academyID, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Credential{}).
		Where("academy_id = ? AND credential_id = ?", academyID, id).
		Updates(deleteColumns(deletedBy)).Error
}
