package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/mcqflow/internal/infrastructure/cache"
)

// FanInTracker maintains, per MarkingJob, a Redis hash mapping sheet_id to
// its spreadsheet row number plus a companion set of sheet IDs still
// outstanding. It is a fast-path cache only: the marking-job row in
// Postgres (via MarkingJobRepository's IncrementProgress/Get) stays the
// authoritative record of batch progress, and the orchestrator's fan-in
// wait still blocks on that row, not on this tracker. A nil *FanInTracker
// or a nil underlying cache makes every method a no-op, so markingworker
// runs unchanged when Redis is not configured.
type FanInTracker struct {
	cache *cache.RedisCache
}

// NewFanInTracker wraps an existing Redis cache client. c may be nil.
func NewFanInTracker(c *cache.RedisCache) *FanInTracker {
	return &FanInTracker{cache: c}
}

func hashKey(jobID uuid.UUID) string {
	return fmt.Sprintf("faninjob:%s", jobID)
}

func outstandingKey(jobID uuid.UUID) string {
	return fmt.Sprintf("faninjob:%s:outstanding", jobID)
}

// Init seeds the hash and outstanding set for a freshly dispatched batch.
// sheets maps each index-task sheet_id to its 1-based spreadsheet row
// number. ttl should match the batch's fan-in deadline so a stuck job's
// bookkeeping expires on its own rather than leaking keys forever.
func (t *FanInTracker) Init(ctx context.Context, jobID uuid.UUID, sheets map[string]int, ttl time.Duration) error {
	if t == nil || t.cache == nil || len(sheets) == 0 {
		return nil
	}
	client := t.cache.Client()
	hk, osk := hashKey(jobID), outstandingKey(jobID)

	pipe := client.TxPipeline()
	for sheetID, row := range sheets {
		pipe.HSet(ctx, hk, sheetID, row)
		pipe.SAdd(ctx, osk, sheetID)
	}
	pipe.Expire(ctx, hk, ttl)
	pipe.Expire(ctx, osk, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fanin tracker: init job %s: %w", jobID, err)
	}
	return nil
}

// Complete removes sheetID from jobID's outstanding set once its index
// result has landed. Best-effort: a failure here never blocks the
// Postgres-backed fan-in, only makes Outstanding's snapshot stale.
func (t *FanInTracker) Complete(ctx context.Context, jobID uuid.UUID, sheetID string) error {
	if t == nil || t.cache == nil {
		return nil
	}
	if err := t.cache.Client().SRem(ctx, outstandingKey(jobID), sheetID).Err(); err != nil {
		return fmt.Errorf("fanin tracker: complete job %s sheet %s: %w", jobID, sheetID, err)
	}
	return nil
}

// Outstanding returns the row numbers still awaiting an index result for
// jobID, read back from the hash via the outstanding set. A restarted
// orchestrator (or an operator inspecting a stuck batch) can call this
// instead of re-deriving the set from the result spreadsheet. Returns an
// empty, nil-error result if the keys have expired or never existed.
func (t *FanInTracker) Outstanding(ctx context.Context, jobID uuid.UUID) (map[string]int, error) {
	if t == nil || t.cache == nil {
		return nil, nil
	}
	client := t.cache.Client()
	osk := outstandingKey(jobID)

	ids, err := client.SMembers(ctx, osk).Result()
	if err != nil {
		return nil, fmt.Errorf("fanin tracker: outstanding job %s: %w", jobID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := client.HMGet(ctx, hashKey(jobID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("fanin tracker: load rows for job %s: %w", jobID, err)
	}

	out := make(map[string]int, len(ids))
	for i, id := range ids {
		row, ok := rows[i].(string)
		if !ok {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(row, "%d", &n); err == nil {
			out[id] = n
		}
	}
	return out, nil
}

// Delete removes jobID's fan-in bookkeeping once its MarkingJob reaches a
// terminal state.
func (t *FanInTracker) Delete(ctx context.Context, jobID uuid.UUID) error {
	if t == nil || t.cache == nil {
		return nil
	}
	if err := t.cache.Client().Del(ctx, hashKey(jobID), outstandingKey(jobID)).Err(); err != nil {
		return fmt.Errorf("fanin tracker: delete job %s: %w", jobID, err)
	}
	return nil
}
