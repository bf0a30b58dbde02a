package producer

import (
	"context"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
)

// IndexTaskProducer publishes one IndexTask per sheet on behalf of the
// marking orchestrator's fan-out step. Unlike the other
// three producers, an IndexTask has no row of its own: the orchestrator
// tracks its outstanding sheets in the fan-in bookkeeping store and this
// producer only needs a task id, the parent MarkingJob id, and the sheet's
// own identity to build a request envelope.
type IndexTaskProducer struct {
	broker *broker.Broker
}

// NewIndexTaskProducer creates a new IndexTaskProducer.
func NewIndexTaskProducer(b *broker.Broker) *IndexTaskProducer {
	return &IndexTaskProducer{broker: b}
}

// Dispatch publishes an IndexTask for one sheet of markingJobID, returning
// the generated task id so the orchestrator can correlate the eventual
// result. priority is inherited from the parent MarkingJob.
func (p *IndexTaskProducer) Dispatch(ctx context.Context, markingJobID, sheetID, sheetImagePath string, priority jobkind.Priority) (string, error) {
	taskID := uuid.NewString()

	fields := map[string]any{
		"marking_job_id":   markingJobID,
		"sheet_id":         sheetID,
		"sheet_image_path": sheetImagePath,
	}

	if err := publish(ctx, p.broker, jobkind.IndexTask, taskID, fields, priority); err != nil {
		return "", err
	}

	return taskID, nil
}
