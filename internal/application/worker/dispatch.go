package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/broker"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// Handle is the shape every job-kind handler in this package exposes:
// decode the request's Fields, do the work, return the typed result view
// that belongs on the matching ResultEnvelope.Result.
type Handle[T any] func(ctx context.Context, req jobkind.RequestEnvelope) (T, error)

// RunHandler drains kind's request queue and, for every delivery, decodes
// it into a RequestEnvelope, runs handle, and publishes a ResultEnvelope
// onto kind's result queue before acking or nacking the request delivery.
// A handler error still produces a FAILED result envelope — the inbound
// delivery is nacked without requeue afterward by broker.RunConsumer,
// since the failure is already durably recorded on the result queue.
func RunHandler[T any](ctx context.Context, b *broker.Broker, kind jobkind.Kind, consumerTag string, handle Handle[T]) error {
	queues := jobkind.DefaultQueues[kind]
	return b.RunConsumer(ctx, queues.RequestQueue, consumerTag, func(ctx context.Context, d amqp.Delivery) error {
		var req jobkind.RequestEnvelope
		if err := json.Unmarshal(d.Body, &req); err != nil {
			return fmt.Errorf("dispatch %s: decode request: %w", kind, err)
		}

		result, handleErr := handle(ctx, req)

		env := jobkind.ResultEnvelope{
			JobID:     req.ID,
			Kind:      kind,
			Status:    jobkind.ResultCompleted,
			Timestamp: time.Now(),
		}
		if handleErr != nil {
			msg := handleErr.Error()
			env.Status = jobkind.ResultFailed
			env.ErrorMessage = &msg
		} else {
			resultMap, err := toResultMap(result)
			if err != nil {
				return fmt.Errorf("dispatch %s: encode result: %w", kind, err)
			}
			env.Result = resultMap
		}

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("dispatch %s: encode result envelope: %w", kind, err)
		}
		if err := b.Publish(ctx, queues.ResultKey, body, broker.Priority(jobkind.PriorityNormal)); err != nil {
			logger.Default().Error("dispatch: publish result envelope failed", "kind", kind, "job_id", req.ID, "error", err)
		}

		return handleErr
	})
}

// RunIndexTaskHandler is RunHandler's IndexTask-specific sibling: an
// IndexTask carries no repository row, so IndexTaskConsumer's fan-in
// bookkeeping needs marking_job_id and sheet_id on every
// result envelope it reads, including a FAILED one. RunHandler's generic
// contract drops Result on handler error, which would strand that
// envelope with no way back to its batch, so this loop always folds the
// request's own identifying fields into the result payload.
func RunIndexTaskHandler(ctx context.Context, b *broker.Broker, consumerTag string, handle Handle[jobkind.IndexTaskResult]) error {
	queues := jobkind.DefaultQueues[jobkind.IndexTask]
	return b.RunConsumer(ctx, queues.RequestQueue, consumerTag, func(ctx context.Context, d amqp.Delivery) error {
		var req jobkind.RequestEnvelope
		if err := json.Unmarshal(d.Body, &req); err != nil {
			return fmt.Errorf("dispatch index_task: decode request: %w", err)
		}
		markingJobID, _ := req.Fields["marking_job_id"].(string)
		sheetID, _ := req.Fields["sheet_id"].(string)

		result, handleErr := handle(ctx, req)

		env := jobkind.ResultEnvelope{
			JobID:     req.ID,
			Kind:      jobkind.IndexTask,
			Status:    jobkind.ResultCompleted,
			Timestamp: time.Now(),
		}
		if handleErr != nil {
			msg := handleErr.Error()
			env.Status = jobkind.ResultFailed
			env.ErrorMessage = &msg
			result = jobkind.IndexTaskResult{TaskID: req.ID, SheetID: sheetID, Flag: jobkind.IndexFlagLowConfidence}
		}

		resultMap, err := toResultMap(result)
		if err != nil {
			return fmt.Errorf("dispatch index_task: encode result: %w", err)
		}
		resultMap["marking_job_id"] = markingJobID
		env.Result = resultMap

		body, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("dispatch index_task: encode result envelope: %w", err)
		}
		if err := b.Publish(ctx, queues.ResultKey, body, broker.Priority(jobkind.PriorityNormal)); err != nil {
			logger.Default().Error("dispatch: publish result envelope failed", "kind", jobkind.IndexTask, "job_id", req.ID, "error", err)
		}

		return handleErr
	})
}

func toResultMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
