package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tessa/caseload/internal/api/handler"
	"github.com/tessa/caseload/internal/api/middleware"
	"github.com/tessa/caseload/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	caseloadService *service.CaseloadService,
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
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	caseloadHandler := handler.NewCaseloadHandler(caseloadService)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		caseload := v1.Group("/reports/caseload")
		{
			caseload.POST("", caseloadHandler.Create)
			caseload.POST("/:id/step", caseloadHandler.Step)
			caseload.GET("/:id", caseloadHandler.Status)
			caseload.GET("/:id/results", caseloadHandler.Results)
			caseload.POST("/:id/cancel", caseloadHandler.Cancel)
			caseload.DELETE("/:id", caseloadHandler.Cleanup)
		}
	}

	return r
}
