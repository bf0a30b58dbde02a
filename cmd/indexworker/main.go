// Command indexworker runs the Index Recognizer Service (C9): it
// consumes IndexTask requests, crops the handwritten student-index
// region off each sheet image, and calls out to a Recognizer for OCR.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/recognizer"
	"github.com/smilemakc/mcqflow/internal/application/worker"
	"github.com/smilemakc/mcqflow/internal/config"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)
	appLogger.Info("starting indexworker")

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

	ocr := recognizer.NewHTTPRecognizer(cfg.Recognizer.URL, cfg.Recognizer.Timeout, nil)
	handler := worker.NewIndexTaskHandler(store, ocr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.RunIndexTaskHandler(ctx, b, "indexworker", handler.Handle); err != nil && ctx.Err() == nil {
		appLogger.Error("indexworker stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("indexworker stopped")
}
