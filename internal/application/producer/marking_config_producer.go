package producer

import (
	"context"
	"fmt"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// MarkingConfigProducer creates and enqueues MarkingConfigJob rows.
type MarkingConfigProducer struct {
	broker *broker.Broker
	jobs   repository.MarkingConfigJobRepository
}

// NewMarkingConfigProducer creates a new MarkingConfigProducer.
func NewMarkingConfigProducer(b *broker.Broker, jobs repository.MarkingConfigJobRepository) *MarkingConfigProducer {
	return &MarkingConfigProducer{broker: b, jobs: jobs}
}

// Submit persists job as PENDING, flips it to QUEUED, and publishes its
// request envelope.
func (p *MarkingConfigProducer) Submit(ctx context.Context, job *models.MarkingConfigJobModel) error {
	if err := p.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("marking config producer: create: %w", err)
	}

	job.Status = string(jobkind.StatusQueued)
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("marking config producer: mark queued: %w", err)
	}

	fields := map[string]any{
		"template_id":          job.TemplateID.String(),
		"template_path":        job.TemplatePath,
		"marking_scheme_path":  job.MarkingSchemePath,
		"template_config_path": job.TemplateConfigPath,
	}

	err := publish(ctx, p.broker, jobkind.MarkingConfig, job.ID.String(), fields, jobkind.Priority(job.Priority))
	if err != nil {
		msg := err.Error()
		job.Status = string(jobkind.StatusFailed)
		job.ErrorMessage = &msg
		_ = p.jobs.Update(ctx, job)
		return err
	}

	return nil
}
