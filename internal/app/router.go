package app

import (
	"suggestion_backend/internal/config"
	"suggestion_backend/internal/middleware"
	"suggestion_backend/internal/model"
	"suggestion_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		// 建议生命周期
		suggestions := authGroup.Group("/suggestions")
		{
			suggestions.POST("", c.suggestion.Create)
			suggestions.GET("", c.suggestion.List)
			suggestions.POST("/review", c.suggestion.Review)
			suggestions.GET("/:id", c.suggestion.Get)
			suggestions.PUT("/:id", c.suggestion.Edit)
			suggestions.DELETE("/:id", c.suggestion.Delete)
			suggestions.PUT("/:id/implementation", c.suggestion.UpdateImplementation)
			suggestions.POST("/:id/score", c.suggestion.Score)
			suggestions.POST("/:id/comments", c.suggestion.AddComment)
			suggestions.POST("/:id/attachments", c.suggestion.UploadAttachment)
			suggestions.GET("/:id/attachments/:attachmentId", c.suggestion.DownloadAttachment)
		}

		// 用户管理（部门经理）
		admin := authGroup.Group("")
		admin.Use(middleware.RoleMiddleware(model.RoleDepartmentManager))
		{
			admin.GET("/users", c.auth.ListUsers)
		}
	}
}
