package producer

import (
	"context"
	"fmt"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// TemplateConfigProducer creates and enqueues TemplateConfigJob rows.
type TemplateConfigProducer struct {
	broker *broker.Broker
	jobs   repository.TemplateConfigJobRepository
}

// NewTemplateConfigProducer creates a new TemplateConfigProducer.
func NewTemplateConfigProducer(b *broker.Broker, jobs repository.TemplateConfigJobRepository) *TemplateConfigProducer {
	return &TemplateConfigProducer{broker: b, jobs: jobs}
}

// Submit persists job as PENDING, flips it to QUEUED, and publishes its
// request envelope. On a publish failure the row is flipped to FAILED and
// the error is returned to the caller.
func (p *TemplateConfigProducer) Submit(ctx context.Context, job *models.TemplateConfigJobModel) error {
	if err := p.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("template config producer: create: %w", err)
	}

	job.Status = string(jobkind.StatusQueued)
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("template config producer: mark queued: %w", err)
	}

	fields := map[string]any{
		"template_id":              job.TemplateID.String(),
		"template_path":            job.TemplatePath,
		"config_type":              job.ConfigType,
		"num_columns":              job.NumColumns,
		"num_rows_per_column":      job.NumRowsPerColumn,
		"num_options_per_question": job.NumOptionsPerQuestion,
	}

	err := publish(ctx, p.broker, jobkind.TemplateConfig, job.ID.String(), fields, jobkind.Priority(job.Priority))
	if err != nil {
		msg := err.Error()
		job.Status = string(jobkind.StatusFailed)
		job.ErrorMessage = &msg
		_ = p.jobs.Update(ctx, job)
		return err
	}

	return nil
}
