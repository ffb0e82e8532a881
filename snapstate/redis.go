package snapstate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetview/protocol"
)

// Cache keeps the latest snapshot, summary and session status in Redis so a
// restarted process can repaint before the backend sends anything. A nil
// *Cache is valid and stores nothing.
type Cache struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) snapshotKey() string { return c.prefix + "snapshot" }
func (c *Cache) summaryKey() string  { return c.prefix + "summary" }
func (c *Cache) statusKey() string   { return c.prefix + "status" }

// StatusRecord is the cached form of the session status.
type StatusRecord struct {
	State     string    `json:"state"`
	Indicator string    `json:"indicator"`
	Err       string    `json:"error,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cache) SaveSnapshot(ctx context.Context, snap *protocol.Snapshot) error {
	if c == nil {
		return nil
	}
	if snap == nil {
		return c.client.Del(ctx, c.snapshotKey()).Err()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.snapshotKey(), data, 0).Err()
}

// LoadSnapshot returns nil without error when nothing is cached.
func (c *Cache) LoadSnapshot(ctx context.Context) (*protocol.Snapshot, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.snapshotKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap protocol.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Cache) SaveSummary(ctx context.Context, sum *protocol.Summary) error {
	if c == nil || sum == nil {
		return nil
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.summaryKey(), data, 0).Err()
}

func (c *Cache) LoadSummary(ctx context.Context) (*protocol.Summary, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, c.summaryKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sum protocol.Summary
	return &sum, json.Unmarshal(data, &sum)
}

func (c *Cache) SaveStatus(ctx context.Context, rec StatusRecord) error {
	if c == nil {
		return nil
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, c.statusKey(), map[string]any{
		"state":      rec.State,
		"indicator":  rec.Indicator,
		"error":      rec.Err,
		"detail":     rec.Detail,
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) LoadStatus(ctx context.Context) (*StatusRecord, error) {
	if c == nil {
		return nil, nil
	}
	fields, err := c.client.HGetAll(ctx, c.statusKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec := &StatusRecord{
		State:     fields["state"],
		Indicator: fields["indicator"],
		Err:       fields["error"],
		Detail:    fields["detail"],
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return rec, nil
}

// Flush removes every key owned by the cache.
func (c *Cache) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.snapshotKey(), c.summaryKey(), c.statusKey()).Err()
}
