package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Academy     AcademyRepository
	User        UserRepository
	Batch       BatchRepository
	Player      PlayerRepository
	Session     SessionRepository
	CoachRating CoachRatingRepository
	Credential  CredentialRepository
	Injury      InjuryRepository
	Finance     FinanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		Academy:     NewAcademyRepo(db),
		User:        NewUserRepo(db),
		Batch:       NewBatchRepo(db),
		Player:      NewPlayerRepo(db),
		Session:     NewSessionRepo(db),
		CoachRating: NewCoachRatingRepo(db),
		Credential:  NewCredentialRepo(db),
		Injury:      NewInjuryRepo(db),
		Finance:     NewFinanceRepo(db),
	}
}

// BeginTx 开启事务；未持有数据库连接时（单元测试中的 mock 聚合）返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
