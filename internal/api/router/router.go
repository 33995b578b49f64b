package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ams-server/config"
	"ams-server/internal/api/handler"
	"ams-server/internal/api/middleware"
	"ams-server/internal/model"
	"ams-server/pkg/jwt"
	"ams-server/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.BodyLimit > 0 {
		r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 角色分组：owner 拥有全部管理权限
	managers := middleware.RoleAuth(model.RoleOwner, model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleOwner, model.RoleAdmin, model.RoleCoach)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）；登录限流在 AuthService 内按 IP 计数
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow), h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 学院模块（仅 owner）
			academies := authorized.Group("/academies", middleware.RoleAuth(model.RoleOwner))
			{
				academies.GET("", h.Academy.ListAcademies)
				academies.GET("/:id", h.Academy.GetAcademy)
				academies.POST("", h.Academy.CreateAcademy)
			}

			// 用户模块
			users := authorized.Group("/users", managers)
			{
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
				users.POST("", h.User.CreateUser)
				users.PUT("/:id", h.User.UpdateUser)
				users.DELETE("/:id", h.User.DeleteUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
				users.POST("/import", h.User.ImportUsers)
			}

			// 训练分组
			batches := authorized.Group("/batches")
			{
				batches.GET("", h.Batch.ListBatches)
				batches.GET("/:id", h.Batch.GetBatch)
				batches.GET("/:id/players", h.Batch.ListBatchPlayers)
				batches.POST("", managers, h.Batch.CreateBatch)
				batches.PUT("/:id", managers, h.Batch.UpdateBatch)
				batches.DELETE("/:id", managers, h.Batch.DeleteBatch)
			}

			// 球员档案
			players := authorized.Group("/players")
			{
				players.GET("", h.Player.ListPlayers)
				players.GET("/:id", h.Player.GetPlayer)
				players.GET("/:id/performance", h.Player.ListPerformance)
				players.POST("", managers, h.Player.CreatePlayer)
				players.PUT("/:id", managers, h.Player.UpdatePlayer)
				players.DELETE("/:id", managers, h.Player.DeletePlayer)
				players.PUT("/:id/metrics", staff, h.Player.UpdateMetrics)
				players.PUT("/:id/match-points", staff, h.Player.UpdateMatchPoints)
			}

			// 训练会话
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("", h.Session.ListSessions)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.GET("/:id/occurrences", h.Session.ListOccurrences)
				sessions.POST("", staff, h.Session.CreateSession)
				sessions.PUT("/:id", staff, h.Session.UpdateSession)
				sessions.DELETE("/:id", staff, h.Session.DeleteSession)
				sessions.POST("/:id/sync", staff, h.Session.SyncOccurrences)
				sessions.PUT("/:id/attendance", staff, h.Session.MarkAttendance)
				sessions.PUT("/:id/attendance/bulk", staff, h.Session.BulkMarkAttendance)
				sessions.PUT("/:id/metrics", staff, h.Session.UpdateMetrics)
				sessions.POST("/import", managers, h.Session.ImportSessions)
				sessions.POST("/import/ics", managers, h.Session.ImportCalendar)
			}

			// 教练评分：学员评价，管理者与教练查看
			ratings := authorized.Group("/ratings")
			{
				ratings.POST("", middleware.RoleAuth(model.RoleStudent), h.Records.CreateRating)
				ratings.GET("/coach/:coach_id", staff, h.Records.GetCoachRatings)
			}

			// 资质证书
			credentials := authorized.Group("/credentials", staff)
			{
				credentials.GET("/user/:user_id", h.Records.ListUserCredentials)
				credentials.POST("", managers, h.Records.CreateCredential)
				credentials.DELETE("/:id", managers, h.Records.DeleteCredential)
			}

			// 伤病记录
			injuries := authorized.Group("/injuries", staff)
			{
				injuries.GET("", h.Records.ListInjuries)
				injuries.POST("", h.Records.CreateInjury)
				injuries.PUT("/:id", h.Records.UpdateInjury)
				injuries.DELETE("/:id", managers, h.Records.DeleteInjury)
			}

			// 收支
			finance := authorized.Group("/finance", managers)
			{
				finance.GET("/transactions", h.Records.ListTransactions)
				finance.POST("/transactions", h.Records.CreateTransaction)
				finance.GET("/summary", h.Records.GetFinanceSummary)
			}

			// 导出
			export := authorized.Group("/export", staff)
			{
				export.GET("/sessions", h.Export.ExportSessions)
				export.GET("/calendar", h.Export.ExportCalendar)
			}
		}
	}

	return r
}
