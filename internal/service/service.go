package service

import (
	"go.uber.org/zap"

	"ams-server/config"
	"ams-server/internal/repository"
	"ams-server/pkg/cache"
	"ams-server/pkg/jwt"
	"ams-server/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Academy    AcademyService
	User       UserService
	Batch      BatchService
	Player     PlayerService
	Session    SessionService
	Rating     RatingService
	Credential CredentialService
	Injury     InjuryService
	Finance    FinanceService
	Export     ExportService
}

// NewService 创建 Service 聚合；rdb 可为 nil（无黑名单与登录限流）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	store cache.Store,
	logger *zap.Logger,
) *Service {
	players := NewPlayerService(repo, store, logger)
	sessions := NewSessionService(&cfg.Schedule, repo, players, logger)

	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Academy:    NewAcademyService(repo, logger),
		User:       NewUserService(repo, logger),
		Batch:      NewBatchService(repo, store, logger),
		Player:     players,
		Session:    sessions,
		Rating:     NewRatingService(repo, logger),
		Credential: NewCredentialService(repo, logger),
		Injury:     NewInjuryService(repo, logger),
		Finance:    NewFinanceService(repo, logger),
		Export:     NewExportService(repo, sessions, cfg.Schedule.Location(), logger),
	}
}
