package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/api/handlers"
	"github.com/yourusername/link-resolve-go/api/middleware"
	"github.com/yourusername/link-resolve-go/internal/app"
	"github.com/yourusername/link-resolve-go/internal/download"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	service *app.ResolverService,
	downloader *download.Manager,
	log *zap.Logger,
) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(service)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		resolveHandler := handlers.NewResolveHandler(service, downloader, log)
		v1.POST("/resolve", resolveHandler.Resolve)

		v1.GET("/platforms", func(c *gin.Context) {
			c.JSON(http.StatusOK, service.Platforms())
		})

		historyHandler := handlers.NewHistoryHandler(service, log)
		history := v1.Group("/history")
		{
			history.GET("", historyHandler.GetHistory)
			history.GET("/stats", historyHandler.GetStats)
		}
	}

	return router
}
