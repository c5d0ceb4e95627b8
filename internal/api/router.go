package api

import (
	"github.com/gin-gonic/gin"
	"github.com/grantwell/grantwell/internal/api/handler"
	"github.com/grantwell/grantwell/internal/api/middleware"
	"github.com/grantwell/grantwell/internal/manager"
	"github.com/grantwell/grantwell/internal/metrics"
	"github.com/grantwell/grantwell/internal/repository"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	m *manager.Manager,
	savedGrants *repository.SavedGrantRepository,
	collector *metrics.Collector,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	sourcesHandler := handler.NewSourcesHandler(m.Registry())
	grantsHandler := handler.NewGrantsHandler(m)
	breakersHandler := handler.NewBreakersHandler(m)
	savedHandler := handler.NewSavedGrantsHandler(savedGrants)

	// Health check
	r.GET("/health", healthHandler.Health)

	// Prometheus metrics
	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Source catalog
		v1.GET("/sources", sourcesHandler.ListSources)
		v1.GET("/sources/validate", sourcesHandler.Validate)
		v1.GET("/sources/:id/grants", grantsHandler.SourceGrants)

		// Cross-source search and details
		v1.POST("/search", grantsHandler.Search)
		v1.GET("/grants/:id", grantsHandler.GrantDetails)

		// Circuit breaker status and recovery
		v1.GET("/status/breakers", breakersHandler.ListStatus)
		v1.GET("/status/breakers/:id", breakersHandler.Status)
		v1.POST("/status/breakers/:id/reset", breakersHandler.Reset)

		// Tracked grants
		v1.POST("/saved-grants", savedHandler.Save)
		v1.GET("/saved-grants", savedHandler.List)
		v1.PATCH("/saved-grants/:id", savedHandler.UpdateStatus)
		v1.DELETE("/saved-grants/:id", savedHandler.Delete)
	}

	return r
}
