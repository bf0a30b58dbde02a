package resultconsumer

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// MarkingJobConsumer applies the final MarkingJob result the fan-in
// orchestrator publishes once every dispatched IndexTask has reported
// back. Per-sheet progress is already reflected on the row by
// IncrementProgress; this records the orchestrator's own summary (keeping
// a terminal status IncrementProgress already set, COMPLETED otherwise) and,
// for the failure path the orchestrator itself could not recover from
// (e.g. it never received enough IndexTask results to reach the total),
// marks the job terminal directly.
type MarkingJobConsumer struct {
	jobs repository.MarkingJobRepository
}

// NewMarkingJobConsumer creates a new MarkingJobConsumer.
func NewMarkingJobConsumer(jobs repository.MarkingJobRepository) *MarkingJobConsumer {
	return &MarkingJobConsumer{jobs: jobs}
}

// Handle decodes and applies one marking_job_results delivery.
func (c *MarkingJobConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	env, jobID, err := decodeEnvelope(d)
	if err != nil {
		logDecodeError(jobkind.MarkingJob, err)
		return err
	}

	if env.Status != jobkind.ResultCompleted {
		summary := models.JSONBMap{"error": errorMessage(env)}
		if err := c.jobs.MarkTerminal(ctx, jobID, string(jobkind.StatusFailed), summary); err != nil {
			return fmt.Errorf("marking job consumer: mark failed: %w", err)
		}
		logApplied(jobkind.MarkingJob, env.JobID, env.Status)
		return nil
	}

	var result jobkind.MarkingJobResult
	if err := decodeResult(env.Result, &result); err != nil {
		return fmt.Errorf("marking job consumer: %w", err)
	}

	summary := models.JSONBMap{}
	for k, v := range result.ResultsSummary {
		summary[k] = v
	}

	status := string(jobkind.StatusCompleted)
	if row, err := c.jobs.Get(ctx, jobID); err == nil && row.IsTerminal() {
		status = row.Status
	}
	if err := c.jobs.MarkTerminal(ctx, jobID, status, summary); err != nil {
		return fmt.Errorf("marking job consumer: mark completed: %w", err)
	}

	logApplied(jobkind.MarkingJob, env.JobID, env.Status)
	return nil
}
