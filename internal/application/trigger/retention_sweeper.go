// Package trigger runs background schedules against the marking pipeline.
// The only trigger the pipeline needs is a periodic sweep that deletes
// artifacts whose retention window has elapsed, so the package is a single cron job rather than the general
// per-workflow trigger registry its name might suggest elsewhere.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// sweepBatchSize bounds how many expired rows one tick deletes, so a
// backlog after downtime doesn't block the cron goroutine for long.
const sweepBatchSize = 200

// RetentionSweeper periodically deletes artifact-store files (and their
// metadata rows) whose deletion_date has passed.
type RetentionSweeper struct {
	files repository.FileRepository
	store *artifact.Store
	cron  *cron.Cron
}

// NewRetentionSweeper creates a sweeper that runs every interval.
func NewRetentionSweeper(files repository.FileRepository, store *artifact.Store, interval time.Duration) *RetentionSweeper {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &RetentionSweeper{files: files, store: store, cron: c}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(spec, s.sweepOnce); err != nil {
		logger.Default().Error("retention sweeper: invalid interval, falling back to 1h", "interval", interval, "error", err)
		_, _ = c.AddFunc("@every 1h", s.sweepOnce)
	}
	return s
}

// Start begins the cron loop in a background goroutine.
func (s *RetentionSweeper) Start() { s.cron.Start() }

// Stop stops the cron loop and waits for any in-flight sweep to finish.
func (s *RetentionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweepOnce deletes one batch of expired artifacts. It is re-entrant-safe:
// the cron is built with SkipIfStillRunning, so a tick that fires while a
// sweep is still running is skipped, and a partial failure
// on one file only skips that file, not the rest of the batch.
func (s *RetentionSweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := s.files.ListExpired(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		logger.Default().Error("retention sweeper: list expired failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	deleted := 0
	for _, f := range expired {
		if err := s.store.Delete(ctx, f.Path); err != nil {
			logger.Default().Error("retention sweeper: delete artifact failed", "path", f.Path, "error", err)
			continue
		}
		if err := s.files.Delete(ctx, f.ID); err != nil {
			logger.Default().Error("retention sweeper: delete metadata row failed", "id", f.ID, "error", err)
			continue
		}
		deleted++
	}

	logger.Default().Info("retention sweeper: swept expired artifacts", "expired", len(expired), "deleted", deleted)
}
