// Command apiserver runs the REST edge:
// template CRUD, artifact uploads, and submission/status for the three
// repository-backed job kinds. It only ever enqueues work and reads job
// state back — the CV pipeline and fan-out/fan-in live in markingworker
// and indexworker.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/observer"
	"github.com/smilemakc/mcqflow/internal/application/producer"
	"github.com/smilemakc/mcqflow/internal/config"
	"github.com/smilemakc/mcqflow/internal/infrastructure/api/rest"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)
	appLogger.Info("starting apiserver")

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Observer.EnableLogger {
		mgr := observer.NewObserverManager(observer.WithLogger(appLogger))
		_ = mgr.Register(observer.NewLoggingObserver(appLogger))
		observer.SetDefault(mgr)
	}

	db, err := storage.NewDB(&storage.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MinConnections,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
		ConnMaxIdleTime: cfg.Database.MaxIdleTime,
		Debug:           cfg.Logging.Level == "debug",
	})
	if err != nil {
		appLogger.Error("connect database failed", "error", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	store, err := artifact.New(cfg.Artifact.RootPath)
	if err != nil {
		appLogger.Error("open artifact store failed", "error", err)
		os.Exit(1)
	}

	b, err := broker.Dial(broker.Config{
		URL:                 cfg.Broker.URL,
		HeartbeatInterval:   cfg.Broker.HeartbeatInterval,
		PrefetchCount:       cfg.Broker.PrefetchCount,
		ReconnectInitial:    cfg.Broker.ReconnectInitial,
		ReconnectFactor:     cfg.Broker.ReconnectFactor,
		ReconnectMaxRetries: cfg.Broker.ReconnectMaxRetries,
	})
	if err != nil {
		appLogger.Error("dial broker failed", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	templates := storage.NewTemplateRepository(db)
	templateConfigJobs := storage.NewTemplateConfigJobRepository(db)
	markingConfigJobs := storage.NewMarkingConfigJobRepository(db)
	markingJobs := storage.NewMarkingJobRepository(db)

	router := rest.NewRouter(rest.RouterConfig{
		DB:      db,
		Store:   store,
		Log:     appLogger,
		CORS:    cfg.Server.CORS,
		MaxBody: cfg.Artifact.MaxUploadFileSize,
		RateRPS: 0,

		Templates:          templates,
		TemplateConfigJobs: templateConfigJobs,
		MarkingConfigJobs:  markingConfigJobs,
		MarkingJobs:        markingJobs,

		TemplateConfigProducer: producer.NewTemplateConfigProducer(b, templateConfigJobs),
		MarkingConfigProducer:  producer.NewMarkingConfigProducer(b, markingConfigJobs),
		MarkingJobProducer:     producer.NewMarkingJobProducer(b, markingJobs),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("http server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			appLogger.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		appLogger.Info("shutdown initiated", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			appLogger.Error("graceful shutdown failed", "error", err)
			_ = server.Close()
		}
		appLogger.Info("apiserver stopped")
	}
}
