package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/quill/internal/api/handler"
	"github.com/timmy/quill/internal/api/middleware"
	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(orch *service.Orchestrator, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(orch)
	articleHandler := handler.NewArticleHandler(orch)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/models", healthHandler.Models)

		articles := v1.Group("/articles")
		articles.POST("", articleHandler.Create)
		articles.GET("", articleHandler.List)
		articles.GET("/:id", articleHandler.Get)
		articles.GET("/:id/status", articleHandler.Status)
		articles.POST("/:id/cancel", articleHandler.Cancel)
		articles.POST("/:id/complete", articleHandler.Complete)
		articles.GET("/:id/recommendations", articleHandler.Recommendations)
		articles.DELETE("/:id", articleHandler.Delete)
	}

	return r
}
