package observer

import (
	"context"

	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// LoggingObserver is the observer registered when Observer.EnableLogger is
// set: it writes one
// structured log line per event through the shared logger, the same
// sink every other package in the pipeline logs through.
type LoggingObserver struct {
	log *logger.Logger
}

// NewLoggingObserver creates a LoggingObserver. A nil log uses the
// package-level default logger.
func NewLoggingObserver(log *logger.Logger) *LoggingObserver {
	return &LoggingObserver{log: log}
}

func (o *LoggingObserver) Name() string       { return "logging" }
func (o *LoggingObserver) Filter() EventFilter { return nil }

func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) error {
	l := o.log
	if l == nil {
		l = logger.Default()
	}

	args := []any{"event_type", string(event.Type), "job_id", event.JobID, "job_kind", event.JobKind, "status", event.Status}
	if event.SheetID != nil {
		args = append(args, "sheet_id", *event.SheetID)
	}
	if event.TaskCount != nil {
		args = append(args, "task_count", *event.TaskCount)
	}
	if event.DoneCount != nil {
		args = append(args, "done_count", *event.DoneCount)
	}
	if event.Message != nil {
		args = append(args, "message", *event.Message)
	}

	if event.Error != nil {
		args = append(args, "error", event.Error)
		l.ErrorContext(ctx, "observer: job event", args...)
		return nil
	}
	l.InfoContext(ctx, "observer: job event", args...)
	return nil
}
