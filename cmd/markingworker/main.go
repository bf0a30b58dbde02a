// Command markingworker runs the CV pipeline (C7) and the marking
// orchestrator (C8): it consumes TemplateConfig, MarkingConfig, and
// MarkingJob requests, and applies the four job kinds' result envelopes
// back onto their repository rows.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/observer"
	"github.com/smilemakc/mcqflow/internal/application/producer"
	"github.com/smilemakc/mcqflow/internal/application/resultconsumer"
	"github.com/smilemakc/mcqflow/internal/application/trigger"
	"github.com/smilemakc/mcqflow/internal/application/worker"
	"github.com/smilemakc/mcqflow/internal/config"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/cache"
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
	appLogger.Info("starting markingworker")

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

	var fanIn *broker.FanInTracker
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		appLogger.Warn("redis unavailable, fan-in bookkeeping falls back to Postgres polling only", "error", err)
		fanIn = broker.NewFanInTracker(nil)
	} else {
		defer redisCache.Close()
		fanIn = broker.NewFanInTracker(redisCache)
	}

	templateConfigJobs := storage.NewTemplateConfigJobRepository(db)
	markingConfigJobs := storage.NewMarkingConfigJobRepository(db)
	markingJobs := storage.NewMarkingJobRepository(db)
	templates := storage.NewTemplateRepository(db)
	files := storage.NewFileRepository(db)

	indexProducer := producer.NewIndexTaskProducer(b)

	templateConfigHandler := worker.NewTemplateConfigHandler(store, templateConfigJobs)
	markingConfigHandler := worker.NewMarkingConfigHandler(store, markingConfigJobs)
	markingJobHandler := worker.NewMarkingJobHandler(store, markingJobs, indexProducer, cfg.Artifact.FanInDeadlinePerSheet, cfg.Artifact.FanInDeadlineMax, fanIn)

	templateConfigConsumer := resultconsumer.NewTemplateConfigConsumer(templateConfigJobs, templates)
	markingConfigConsumer := resultconsumer.NewMarkingConfigConsumer(markingConfigJobs)
	markingJobConsumer := resultconsumer.NewMarkingJobConsumer(markingJobs)
	indexTaskConsumer := resultconsumer.NewIndexTaskConsumer(markingJobs, store, fanIn)

	sweeper := trigger.NewRetentionSweeper(files, store, cfg.Artifact.RetentionSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return worker.RunHandler(ctx, b, jobkind.TemplateConfig, "markingworker-template-config", templateConfigHandler.Handle) })
	g.Go(func() error { return worker.RunHandler(ctx, b, jobkind.MarkingConfig, "markingworker-marking-config", markingConfigHandler.Handle) })
	g.Go(func() error { return worker.RunHandler(ctx, b, jobkind.MarkingJob, "markingworker-marking-job", markingJobHandler.Handle) })

	g.Go(func() error { return b.RunConsumer(ctx, jobkind.DefaultQueues[jobkind.TemplateConfig].ResultQueue, "markingworker-template-config-results", templateConfigConsumer.Handle) })
	g.Go(func() error { return b.RunConsumer(ctx, jobkind.DefaultQueues[jobkind.MarkingConfig].ResultQueue, "markingworker-marking-config-results", markingConfigConsumer.Handle) })
	g.Go(func() error { return b.RunConsumer(ctx, jobkind.DefaultQueues[jobkind.MarkingJob].ResultQueue, "markingworker-marking-job-results", markingJobConsumer.Handle) })
	g.Go(func() error { return b.RunConsumer(ctx, jobkind.DefaultQueues[jobkind.IndexTask].ResultQueue, "markingworker-index-task-results", indexTaskConsumer.Handle) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		appLogger.Error("markingworker stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("markingworker stopped")
}
