// Package producer publishes job requests onto the broker for each of the
// four job kinds, driving the PENDING -> QUEUED (or QUEUED -> FAILED on a
// publish error) transition.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smilemakc/mcqflow/internal/application/observer"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// publish marshals an envelope for kind and pushes it to its request
// queue at the priority's broker weight. The caller is responsible for
// having already persisted the PENDING row and for flipping it to QUEUED
// or FAILED based on the returned error.
func publish(ctx context.Context, b *broker.Broker, kind jobkind.Kind, jobID string, fields map[string]any, priority jobkind.Priority) error {
	env := jobkind.RequestEnvelope{
		ID:     jobID,
		Name:   string(kind),
		Kind:   kind,
		Fields: fields,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("producer: marshal envelope: %w", err)
	}

	q := jobkind.DefaultQueues[kind]
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.Publish(ctx, q.RequestKey, body, broker.Priority(priority)); err != nil {
		logger.Default().Error("producer: publish failed", "kind", kind, "job_id", jobID, "error", err)
		observer.Notify(ctx, observer.Event{Type: observer.EventTypeJobFailed, JobID: jobID, JobKind: string(kind), Status: "failed", Error: err})
		return fmt.Errorf("producer: publish %s: %w", kind, err)
	}

	logger.Default().Info("producer: published job", "kind", kind, "job_id", jobID, "queue", q.RequestQueue)
	observer.Notify(ctx, observer.Event{Type: observer.EventTypeJobQueued, JobID: jobID, JobKind: string(kind), Status: "queued"})
	return nil
}
