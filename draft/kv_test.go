package draft

import (
	"context"
	"testing"
	"time"

	"github.com/propdesk/formflow/record"
)

func testClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestKVStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKVStore(NewMemoryKV(), "draft_property")

	data := record.Record{"title": "Marina loft", "price": map[string]any{"total": 1850000.0}}
	store.Save(ctx, "new", data)

	got, ok := store.Load(ctx, "new")
	if !ok {
		t.Fatal("fresh draft should load")
	}
	if !record.Equal(data, got) {
		t.Errorf("round trip changed the draft: %v vs %v", data, got)
	}
	if !store.Exists(ctx, "new") {
		t.Error("Exists should agree with Load")
	}
	if _, ok := store.TimestampOf(ctx, "new"); !ok {
		t.Error("TimestampOf should report the save time")
	}
}

func TestKVStoreOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKVStore(NewMemoryKV(), "draft_property")

	store.Save(ctx, "new", record.Record{"title": "first"})
	store.Save(ctx, "new", record.Record{"title": "second"})

	got, _ := store.Load(ctx, "new")
	if v, _ := got.StringAt("title"); v != "second" {
		t.Errorf("later save should win, got %q", v)
	}
}

func TestKVStoreClearIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKVStore(NewMemoryKV(), "draft_property")

	store.Save(ctx, "new", record.Record{"a": 1})
	store.Clear(ctx, "new")
	// Second clear is a no-op, never a failure.
	store.Clear(ctx, "new")

	if store.Exists(ctx, "new") {
		t.Error("cleared draft should be absent")
	}
}

func TestKVStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now, advance := testClock(time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))
	kv := NewMemoryKV()
	store := NewKVStore(kv, "draft_property", WithClock(now))

	store.Save(ctx, "42", record.Record{"title": "stale"})
	advance(DefaultTTL + time.Minute)

	if store.Exists(ctx, "42") {
		t.Error("expired draft should be reported absent by Exists")
	}
	if _, ok := store.Load(ctx, "42"); ok {
		t.Error("expired draft should be reported absent by Load")
	}
	// Lazy expiry removes the underlying entries as a side effect.
	if keys := kv.Keys("draft_property"); len(keys) != 0 {
		t.Errorf("expired entries should be deleted, still present: %v", keys)
	}
}

func TestKVStoreFreshWithinTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now, advance := testClock(time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))
	store := NewKVStore(NewMemoryKV(), "draft_property", WithClock(now))

	store.Save(ctx, "new", record.Record{"title": "fresh"})
	advance(23 * time.Hour)

	if !store.Exists(ctx, "new") {
		t.Error("draft inside the TTL should remain restorable")
	}
}

func TestKVStoreSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now, advance := testClock(time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC))
	kv := NewMemoryKV()
	store := NewKVStore(kv, "draft_property", WithClock(now))

	store.Save(ctx, "a", record.Record{"n": 1})
	advance(25 * time.Hour)
	store.Save(ctx, "b", record.Record{"n": 2})

	store.Sweep(ctx)

	if store.Exists(ctx, "a") {
		t.Error("sweep should reclaim the expired draft")
	}
	if !store.Exists(ctx, "b") {
		t.Error("sweep should keep the fresh draft")
	}
}

func TestKVStoreNilBackendDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKVStore(nil, "draft_property")

	// Every operation degrades to a no-op reporting absent.
	store.Save(ctx, "new", record.Record{"a": 1})
	if _, ok := store.Load(ctx, "new"); ok {
		t.Error("nil backend should report absent")
	}
	if store.Exists(ctx, "new") {
		t.Error("nil backend should report absent")
	}
	store.Clear(ctx, "new")
	store.Sweep(ctx)
}

func TestKVStoreCorruptPayloadCleared(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewKVStore(kv, "draft_property")

	store.Save(ctx, "new", record.Record{"a": 1})
	kv.Set("draft_property_new", "{not json")

	if _, ok := store.Load(ctx, "new"); ok {
		t.Error("corrupt payload should report absent")
	}
	if store.Exists(ctx, "new") {
		t.Error("corrupt payload should have been cleared")
	}
}
