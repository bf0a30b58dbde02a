package resultconsumer

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
)

// MarkingConfigConsumer applies MarkingConfig results onto the job row.
type MarkingConfigConsumer struct {
	jobs repository.MarkingConfigJobRepository
}

// NewMarkingConfigConsumer creates a new MarkingConfigConsumer.
func NewMarkingConfigConsumer(jobs repository.MarkingConfigJobRepository) *MarkingConfigConsumer {
	return &MarkingConfigConsumer{jobs: jobs}
}

// Handle decodes and applies one marking_config_results delivery.
func (c *MarkingConfigConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	env, jobID, err := decodeEnvelope(d)
	if err != nil {
		logDecodeError(jobkind.MarkingConfig, err)
		return err
	}

	if env.Status != jobkind.ResultCompleted {
		if err := c.jobs.MarkFailed(ctx, jobID, errorMessage(env)); err != nil {
			return fmt.Errorf("marking config consumer: mark failed: %w", err)
		}
		logApplied(jobkind.MarkingConfig, env.JobID, env.Status)
		return nil
	}

	var result jobkind.MarkingConfigResult
	if err := decodeResult(env.Result, &result); err != nil {
		return fmt.Errorf("marking config consumer: %w", err)
	}

	if err := c.jobs.MarkCompleted(ctx, jobID, result.MarkingConfigPath); err != nil {
		return fmt.Errorf("marking config consumer: mark completed: %w", err)
	}

	logApplied(jobkind.MarkingConfig, env.JobID, env.Status)
	return nil
}
