package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/config"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/handler"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/middleware"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/service"
)

// SetupRouter wires repositories, services, and handlers onto a gin engine.
// The audit middleware wraps auth so rejected requests are recorded too.
func SetupRouter(cfg *config.Config, db *sql.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(300, 60, time.Minute))

	measurementRepo := repository.NewMeasurementRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	measurementHandler := handler.NewMeasurementHandler(service.NewMeasurementService(measurementRepo))
	packageHandler := handler.NewPackageHandler(service.NewPackageService(packageRepo, measurementRepo))
	reportHandler := handler.NewReportHandler(service.NewReportService(reportRepo))
	auditHandler := handler.NewAuditHandler(auditRepo)
	sessionHandler := handler.NewSessionHandler(service.NewSessionService())
	gateHandler := handler.NewGateHandler(service.NewGateService())

	r.Use(middleware.Audit(auditRepo))
	r.Use(middleware.Auth(cfg.JWTSecret))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		measurements := api.Group("/paired-measurements")
		{
			measurements.POST("", measurementHandler.Create)
			measurements.GET("", measurementHandler.List)
			measurements.GET("/summary", measurementHandler.Summary)
			measurements.GET("/:id", measurementHandler.GetByID)
		}

		packages := api.Group("/capture-packages")
		{
			packages.POST("", packageHandler.Create)
			packages.GET("", packageHandler.List)
			packages.GET("/:id", packageHandler.GetByID)
		}

		reports := api.Group("/pilot-reports")
		{
			reports.POST("", reportHandler.Create)
			reports.GET("", reportHandler.List)
			reports.GET("/:id", reportHandler.GetByID)
		}

		api.GET("/audit-events", auditHandler.List)
		api.POST("/sessions/analyze", sessionHandler.Analyze)
		api.POST("/gates/evaluate", gateHandler.Evaluate)
	}

	return r
}
