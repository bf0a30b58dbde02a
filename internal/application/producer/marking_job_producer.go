package producer

import (
	"context"
	"fmt"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/domain/repository"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/storage/models"
)

// MarkingJobProducer creates and enqueues MarkingJob rows. A
// MarkingJob is the coarse-grained unit the orchestrator fans out into one
// IndexTask per sheet; the producer only enqueues the batch envelope, the
// worker discovers the sheet list when it picks the job up.
type MarkingJobProducer struct {
	broker *broker.Broker
	jobs   repository.MarkingJobRepository
}

// NewMarkingJobProducer creates a new MarkingJobProducer.
func NewMarkingJobProducer(b *broker.Broker, jobs repository.MarkingJobRepository) *MarkingJobProducer {
	return &MarkingJobProducer{broker: b, jobs: jobs}
}

// Submit persists job as PENDING, flips it to QUEUED, and publishes its
// request envelope.
func (p *MarkingJobProducer) Submit(ctx context.Context, job *models.MarkingJobModel) error {
	if err := p.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("marking job producer: create: %w", err)
	}

	job.Status = string(jobkind.StatusQueued)
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job producer: mark queued: %w", err)
	}

	fields := map[string]any{
		"template_id":               job.TemplateID.String(),
		"marking_scheme_path":       job.MarkingSchemePath,
		"answer_sheets_folder_path": job.AnswerSheetsFolderPath,
		"output_path":               job.OutputPath,
		"intermediate_results_path": job.IntermediateResultsPath,
		"save_intermediate_results": job.SaveIntermediateResults,
	}

	err := publish(ctx, p.broker, jobkind.MarkingJob, job.ID.String(), fields, jobkind.Priority(job.Priority))
	if err != nil {
		msg := err.Error()
		job.Status = string(jobkind.StatusFailed)
		job.ErrorMessage = &msg
		_ = p.jobs.Update(ctx, job)
		return err
	}

	return nil
}
