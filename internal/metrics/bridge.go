// Package metrics carries worker counters from short-lived worker processes to
// the scrape endpoint on the API. Workers cannot be scraped directly (a pod is
// usually gone before the collector's next pass), so each worker pushes its
// terminal counters into a Redis hash before it exits and the API reads the
// hash on scrape.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultBufferKey = "workers:counters"

// Counters is the terminal counter set one worker accumulates over its single
// job. Zero values are pushed too: a worker that found no job still reports.
type Counters struct {
	JobsProcessed       int64 `json:"jobs_processed"`
	JobsFailed          int64 `json:"jobs_failed"`
	DocumentsDownloaded int64 `json:"documents_downloaded"`
	DocumentsUploaded   int64 `json:"documents_uploaded"`
	UploadFailures      int64 `json:"upload_failures"`
}

func (c *Counters) Add(other Counters) {
	c.JobsProcessed += other.JobsProcessed
	c.JobsFailed += other.JobsFailed
	c.DocumentsDownloaded += other.DocumentsDownloaded
	c.DocumentsUploaded += other.DocumentsUploaded
	c.UploadFailures += other.UploadFailures
}

// HashCommands is the slice of redis the bridge needs. *redis.Client satisfies
// it; tests plug in an in-memory fake.
type HashCommands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// Bridge is the intermediary buffer: one hash, field = worker id, value = the
// worker's last-pushed counters. Last write wins per field and values stay
// until explicitly cleared.
type Bridge struct {
	rdb HashCommands
	key string
}

func NewBridge(rdb HashCommands, key string) *Bridge {
	if key == "" {
		key = defaultBufferKey
	}
	return &Bridge{rdb: rdb, key: key}
}

// Push records the worker's counters. It is synchronous: the caller must not
// exit before Push returns, otherwise the metrics of a short-lived pod are
// lost.
func (b *Bridge) Push(ctx context.Context, workerID string, c Counters) error {
	if workerID == "" {
		return fmt.Errorf("workerID is required")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := b.rdb.HSet(ctx, b.key, workerID, string(payload)).Err(); err != nil {
		return fmt.Errorf("push counters for %s: %w", workerID, err)
	}
	return nil
}

// Snapshot returns the last-pushed counters per worker id.
func (b *Bridge) Snapshot(ctx context.Context) (map[string]Counters, error) {
	raw, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Counters, len(raw))
	for workerID, payload := range raw {
		var c Counters
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("decode counters for %s: %w", workerID, err)
		}
		out[workerID] = c
	}
	return out, nil
}

// Clear drops one worker's entry, e.g. after the collector has ingested it.
func (b *Bridge) Clear(ctx context.Context, workerID string) error {
	return b.rdb.HDel(ctx, b.key, workerID).Err()
}
