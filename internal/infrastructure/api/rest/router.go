package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/producer"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage"
)

// RouterConfig bundles everything the REST edge needs to build its route
// table.
type RouterConfig struct {
	DB       *bun.DB
	Store    *artifact.Store
	Log      *logger.Logger
	CORS     bool
	MaxBody  int64
	RateRPS  int

	Templates           repository.TemplateRepository
	TemplateConfigJobs  repository.TemplateConfigJobRepository
	MarkingConfigJobs   repository.MarkingConfigJobRepository
	MarkingJobs         repository.MarkingJobRepository

	TemplateConfigProducer *producer.TemplateConfigProducer
	MarkingConfigProducer  *producer.MarkingConfigProducer
	MarkingJobProducer     *producer.MarkingJobProducer
}

// NewRouter builds the gin engine for cmd/apiserver: health/ready/metrics
// probes, then the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.MaxBody == 0 {
		cfg.MaxBody = 32 << 20
	}

	router := gin.New()

	recovery := NewRecoveryMiddleware(cfg.Log)
	logging := NewLoggingMiddleware(cfg.Log)
	bodySize := NewBodySizeMiddleware(cfg.Log, cfg.MaxBody)
	router.Use(recovery.Recovery())
	router.Use(logging.RequestLogger())
	router.Use(bodySize.LimitBodySize())

	if cfg.CORS {
		router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
	}

	if cfg.RateRPS > 0 {
		limiter := NewRateLimiter(cfg.RateRPS, time.Minute, 5*time.Minute)
		router.Use(limiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := storage.Ping(ctx, cfg.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		dbStats := storage.Stats(cfg.DB)
		c.JSON(http.StatusOK, gin.H{"database": gin.H{
			"open_connections": dbStats.OpenConnections,
			"in_use":           dbStats.InUse,
			"idle":             dbStats.Idle,
			"max_open_conns":   dbStats.MaxOpenConnections,
		}})
	})

	templateHandlers := NewTemplateHandlers(cfg.Templates, cfg.Log)
	jobHandlers := NewJobHandlers(
		cfg.TemplateConfigProducer, cfg.MarkingConfigProducer, cfg.MarkingJobProducer,
		cfg.TemplateConfigJobs, cfg.MarkingConfigJobs, cfg.MarkingJobs,
		cfg.Log,
	)
	uploadHandlers := NewUploadHandlers(cfg.Store, cfg.Log)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/uploads", uploadHandlers.Upload)

		v1.POST("/templates", templateHandlers.Create)
		v1.GET("/templates/:id", templateHandlers.Get)
		v1.GET("/templates", templateHandlers.List)

		v1.POST("/template-config-jobs", jobHandlers.CreateTemplateConfigJob)
		v1.GET("/template-config-jobs/:id", jobHandlers.GetTemplateConfigJob)

		v1.POST("/marking-config-jobs", jobHandlers.CreateMarkingConfigJob)
		v1.GET("/marking-config-jobs/:id", jobHandlers.GetMarkingConfigJob)

		v1.POST("/marking-jobs", jobHandlers.CreateMarkingJob)
		v1.GET("/marking-jobs/:id", jobHandlers.GetMarkingJob)
		v1.GET("/marking-jobs", jobHandlers.ListMarkingJobs)
	}

	return router
}
