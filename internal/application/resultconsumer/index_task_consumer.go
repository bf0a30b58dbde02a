package resultconsumer

import (
	"context"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/application/observer"
	"github.com/smilemakc/mcqflow/internal/application/worker"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// indexTaskPayload extends the typed IndexTaskResult with the parent
// MarkingJob id the orchestrator folded into the request fields, so the
// fan-in step can find its way back to the batch row without a second
// lookup table.
type indexTaskPayload struct {
	jobkind.IndexTaskResult
	MarkingJobID string `json:"marking_job_id"`
}

// IndexTaskConsumer is the fan-in side of the marking pipeline: one delivery here is one sheet's index-recognition outcome.
// IncrementProgress does the atomic "is the batch done yet" bookkeeping,
// and the consumer then patches that sheet's index_no cell into the
// shared result workbook under the same in-process lock the orchestrator
// uses while it is still writing other rows. When the increment reports
// the batch has reached its total, this consumer assembles the final
// summary and marks the MarkingJob terminal in the same call path, rather
// than round-tripping a second envelope through the marking_job_results
// queue.
type IndexTaskConsumer struct {
	markingJobs repository.MarkingJobRepository
	store       *artifact.Store
	fanIn       *broker.FanInTracker
}

// NewIndexTaskConsumer creates a new IndexTaskConsumer. fanIn may be nil,
// in which case the Redis-backed fan-in bookkeeping is simply skipped.
func NewIndexTaskConsumer(markingJobs repository.MarkingJobRepository, store *artifact.Store, fanIn *broker.FanInTracker) *IndexTaskConsumer {
	return &IndexTaskConsumer{markingJobs: markingJobs, store: store, fanIn: fanIn}
}

// Handle decodes and applies one index_task_results delivery.
func (c *IndexTaskConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	env, _, err := decodeEnvelope(d)
	if err != nil {
		logDecodeError(jobkind.IndexTask, err)
		return err
	}

	var payload indexTaskPayload
	if err := decodeResult(env.Result, &payload); err != nil {
		return fmt.Errorf("index task consumer: %w", err)
	}

	markingJobID, err := uuid.Parse(payload.MarkingJobID)
	if err != nil {
		return fmt.Errorf("index task consumer: parse marking_job_id %q: %w", payload.MarkingJobID, err)
	}

	succeeded := env.Status == jobkind.ResultCompleted

	job, err := c.markingJobs.IncrementProgress(ctx, markingJobID, succeeded)
	if err != nil {
		return fmt.Errorf("index task consumer: increment progress: %w", err)
	}

	if err := c.fanIn.Complete(ctx, markingJobID, payload.SheetID); err != nil {
		logger.Default().Error("index task consumer: fan-in tracker complete failed",
			"marking_job_id", payload.MarkingJobID, "sheet_id", payload.SheetID, "error", err)
	}

	sheetEventType := observer.EventTypeSheetCompleted
	if !succeeded {
		sheetEventType = observer.EventTypeSheetFailed
	}
	doneCount := job.ProcessedAnswerSheets + job.FailedAnswerSheets
	observer.Notify(ctx, observer.Event{
		Type:      sheetEventType,
		JobID:     payload.MarkingJobID,
		JobKind:   string(jobkind.MarkingJob),
		SheetID:   &payload.SheetID,
		TaskCount: &job.TotalAnswerSheets,
		DoneCount: &doneCount,
		Status:    string(env.Status),
	})

	if err := c.patchSpreadsheet(ctx, job, payload, succeeded); err != nil {
		logger.Default().Error("index task consumer: patch spreadsheet failed",
			"marking_job_id", payload.MarkingJobID, "sheet_id", payload.SheetID, "error", err)
	}

	if job.IsTerminal() {
		summary := models.JSONBMap{
			"total_answer_sheets":     job.TotalAnswerSheets,
			"processed_answer_sheets": job.ProcessedAnswerSheets,
			"failed_answer_sheets":    job.FailedAnswerSheets,
		}
		if err := c.markingJobs.MarkTerminal(ctx, job.ID, job.Status, summary); err != nil {
			return fmt.Errorf("index task consumer: mark terminal: %w", err)
		}
		logger.Default().Info("index task consumer: marking job reached terminal state",
			"marking_job_id", job.ID, "status", job.Status)
	}

	return nil
}

// patchSpreadsheet writes the recognized index number (or a failure flag)
// into the sheet's row of the shared result workbook.
func (c *IndexTaskConsumer) patchSpreadsheet(ctx context.Context, job *models.MarkingJobModel, payload indexTaskPayload, succeeded bool) error {
	sheetIndex, err := strconv.Atoi(payload.SheetID)
	if err != nil {
		return fmt.Errorf("parse sheet_id %q: %w", payload.SheetID, err)
	}

	if !succeeded {
		return worker.UpdateIndexCell(ctx, c.store, job.OutputPath, sheetIndex, "", "index_failed")
	}

	flagReason := ""
	if payload.Flag == jobkind.IndexFlagLowConfidence {
		flagReason = "low_confidence"
		logger.Default().Info("index task consumer: low confidence result",
			"marking_job_id", payload.MarkingJobID, "sheet_id", payload.SheetID, "confidence", payload.Confidence)
	}
	return worker.UpdateIndexCell(ctx, c.store, job.OutputPath, sheetIndex, payload.IndexNumber, flagReason)
}
