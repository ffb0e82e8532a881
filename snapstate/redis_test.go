package snapstate

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetview/protocol"
)

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if err := c.SaveSnapshot(ctx, &protocol.Snapshot{Minute: "x"}); err != nil {
		t.Errorf("SaveSnapshot: %v", err)
	}
	if snap, err := c.LoadSnapshot(ctx); snap != nil || err != nil {
		t.Errorf("LoadSnapshot = %v, %v", snap, err)
	}
	if err := c.SaveStatus(ctx, StatusRecord{State: "CONNECTED"}); err != nil {
		t.Errorf("SaveStatus: %v", err)
	}
	if rec, err := c.LoadStatus(ctx); rec != nil || err != nil {
		t.Errorf("LoadStatus = %v, %v", rec, err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if New(nil, "p:") != nil {
		t.Error("New(nil) should return a disabled cache")
	}
}

func TestKeysUsePrefix(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "fleetview:")
	defer c.client.Close()
	if c.snapshotKey() != "fleetview:snapshot" || c.statusKey() != "fleetview:status" || c.summaryKey() != "fleetview:summary" {
		t.Errorf("keys = %s %s %s", c.snapshotKey(), c.statusKey(), c.summaryKey())
	}
}

func TestUnreachableServerReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := New(client, "t:")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.SaveSnapshot(ctx, &protocol.Snapshot{Minute: "01/06/2024 08:00"}); err == nil {
		t.Error("expected an error from an unreachable server")
	}
	if _, err := c.LoadSnapshot(ctx); err == nil {
		t.Error("expected an error from an unreachable server")
	}
}
