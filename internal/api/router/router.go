package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farewell-duty/backend/config"
	"farewell-duty/backend/internal/api/handler"
	"farewell-duty/backend/internal/api/middleware"
	"farewell-duty/backend/pkg/jwt"
	"farewell-duty/backend/pkg/redis"
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
	r.Use(middleware.BodyLimit(1 << 20)) // 1 MiB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 任务模块
			duties := authorized.Group("/duties")
			{
				duties.GET("", h.Duty.ListDuties)
				duties.GET("/:id", h.Duty.GetDuty)
				duties.GET("/:id/claims", h.Duty.ListClaims)
				duties.GET("/:id/activities", h.Duty.ListActivities)
				duties.GET("/:id/settlements", h.Verification.ListSettlements)
				duties.POST("/:id/claims", h.Duty.SubmitClaim) // 分配校验在 Service 层
				duties.POST("", middleware.RoleAuth("admin"), h.Duty.CreateDuty)
				duties.POST("/:id/assignees", middleware.RoleAuth("admin"), h.Duty.AssignMembers)
				duties.DELETE("/:id/assignees/:user_id", middleware.RoleAuth("admin"), h.Duty.UnassignMember)
				duties.POST("/:id/approve", middleware.RoleAuth("admin"), h.Verification.ApproveDuty)
				duties.DELETE("/:id", middleware.RoleAuth("admin"), h.Duty.DeleteDuty)
			}

			// 报销单验证与结算模块
			claims := authorized.Group("/claims")
			{
				claims.POST("/:id/votes", h.Verification.CastVote)
				claims.GET("/:id/votes", h.Verification.ListVotes)
				claims.GET("/:id/settlement", h.Verification.GetSettlement)
				claims.POST("/:id/settle", middleware.RoleAuth("admin"), h.Verification.SettleClaim)
				claims.POST("/:id/reject", middleware.RoleAuth("admin"), h.Verification.RejectClaim)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/:id/read", h.Notification.MarkNotificationRead)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/settlements", middleware.RoleAuth("admin"), h.Export.ExportSettlements)
				export.GET("/calendar", h.Export.ExportDutyCalendar)
			}
		}
	}

	return r
}
