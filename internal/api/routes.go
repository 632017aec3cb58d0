package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, log *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(log))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("", handler.Sync)
			sync.GET("/runs", handler.ListSyncRuns)
		}

		months := v1.Group("/months/:month")
		{
			months.GET("/leaderboard", handler.GetLeaderboard)
			months.GET("/members/:handle", handler.GetMemberActivities)
			months.GET("/members/:handle/performance", handler.GetMemberPerformance)
		}

		members := v1.Group("/members")
		{
			members.GET("", handler.ListMembers)
			members.PUT("/:handle", handler.PutMember)
		}
	}

	return router
}
