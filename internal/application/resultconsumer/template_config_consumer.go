package resultconsumer

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
)

// TemplateConfigConsumer applies TemplateConfig results onto both the job
// row and its parent Template: a completed job publishes the
// bubble layout's question/option counts onto the Template so marking jobs
// against it don't need to re-derive them.
type TemplateConfigConsumer struct {
	jobs      repository.TemplateConfigJobRepository
	templates repository.TemplateRepository
}

// NewTemplateConfigConsumer creates a new TemplateConfigConsumer.
func NewTemplateConfigConsumer(jobs repository.TemplateConfigJobRepository, templates repository.TemplateRepository) *TemplateConfigConsumer {
	return &TemplateConfigConsumer{jobs: jobs, templates: templates}
}

// Handle decodes and applies one template_config_results delivery.
func (c *TemplateConfigConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	env, jobID, err := decodeEnvelope(d)
	if err != nil {
		logDecodeError(jobkind.TemplateConfig, err)
		return err
	}

	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("template config consumer: get job %s: %w", jobID, err)
	}

	if env.Status != jobkind.ResultCompleted {
		if err := c.jobs.MarkFailed(ctx, jobID, errorMessage(env)); err != nil {
			return fmt.Errorf("template config consumer: mark failed: %w", err)
		}
		_ = c.templates.UpdateStatus(ctx, job.TemplateID, "FAILED")
		logApplied(jobkind.TemplateConfig, env.JobID, env.Status)
		return nil
	}

	var result jobkind.TemplateConfigResult
	if err := decodeResult(env.Result, &result); err != nil {
		return fmt.Errorf("template config consumer: %w", err)
	}

	if err := c.jobs.MarkCompleted(ctx, jobID, result.TemplateConfigPath, result.OutputImagePath, result.ResultImagePath); err != nil {
		return fmt.Errorf("template config consumer: mark completed: %w", err)
	}

	template, err := c.templates.Get(ctx, job.TemplateID)
	if err != nil {
		return fmt.Errorf("template config consumer: get template %s: %w", job.TemplateID, err)
	}
	template.Status = "COMPLETED"
	if result.NumQuestions > 0 {
		template.NumQuestions = result.NumQuestions
	}
	if result.OptionsPerQuestion > 0 {
		template.OptionsPerQuestion = result.OptionsPerQuestion
	}
	if err := c.templates.Update(ctx, template); err != nil {
		return fmt.Errorf("template config consumer: update template: %w", err)
	}

	logApplied(jobkind.TemplateConfig, env.JobID, env.Status)
	return nil
}
