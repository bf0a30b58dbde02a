// Package resultconsumer applies result envelopes read off each job kind's
// result queue back onto its repository row, driving the PROCESSING ->
// COMPLETED / PROCESSING -> FAILED transition. Each
// consumer is a thin decode-dispatch-ack loop; it does not check the row's
// current status before applying a delivery.
package resultconsumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/application/observer"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// decodeEnvelope unmarshals a delivery body into a ResultEnvelope and
// parses its job id.
func decodeEnvelope(d amqp.Delivery) (jobkind.ResultEnvelope, uuid.UUID, error) {
	var env jobkind.ResultEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("decode result envelope: %w", err)
	}
	id, err := uuid.Parse(env.JobID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("parse job id %q: %w", env.JobID, err)
	}
	return env, id, nil
}

// decodeResult re-marshals an envelope's free-form Result map into one of
// the typed *Result structs in jobkind. The envelope already went through
// one json.Unmarshal to get here, so this round-trip is cheap relative to
// giving every consumer its own ad hoc field-by-field type assertions.
func decodeResult(result map[string]any, out any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("remarshal result payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result payload: %w", err)
	}
	return nil
}

// errorMessage extracts the envelope's error message, falling back to a
// generic one when the worker didn't set it.
func errorMessage(env jobkind.ResultEnvelope) string {
	if env.ErrorMessage != nil && *env.ErrorMessage != "" {
		return *env.ErrorMessage
	}
	return "job failed with no error detail"
}

func logApplied(kind jobkind.Kind, jobID string, status jobkind.ResultStatus) {
	logger.Default().Info("resultconsumer: applied result", "kind", kind, "job_id", jobID, "status", status)

	eventType := observer.EventTypeJobCompleted
	if status == jobkind.ResultFailed {
		eventType = observer.EventTypeJobFailed
	}
	observer.Notify(context.Background(), observer.Event{
		Type:    eventType,
		JobID:   jobID,
		JobKind: string(kind),
		Status:  string(status),
	})
}

func logDecodeError(kind jobkind.Kind, err error) {
	logger.Default().Error("resultconsumer: decode failed", "kind", kind, "error", err)
}
