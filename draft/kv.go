package draft

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/propdesk/formflow/record"
)

// KV is a minimal string key-value facility, the shape of a browser
// localStorage or any flat namespace store.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string)
	// Keys lists stored keys with the given prefix.
	Keys(prefix string) []string
}

// MemoryKV is an in-memory KV for tests and single-process use.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: map[string]string{}}
}

func (kv *MemoryKV) Get(key string) (string, bool) {
	kv.mu.RLock()
	v, ok := kv.m[key]
	kv.mu.RUnlock()
	return v, ok
}

func (kv *MemoryKV) Set(key, value string) error {
	kv.mu.Lock()
	kv.m[key] = value
	kv.mu.Unlock()
	return nil
}

func (kv *MemoryKV) Delete(key string) {
	kv.mu.Lock()
	delete(kv.m, key)
	kv.mu.Unlock()
}

func (kv *MemoryKV) Keys(prefix string) []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	var out []string
	for k := range kv.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

var _ KV = (*MemoryKV)(nil)

// KVStore stores drafts in a flat KV namespace using the two-key layout:
// "<prefix>_<key>" holds the JSON payload and "<prefix>_savedAt_<key>" holds
// an RFC 3339 timestamp. A nil KV degrades every operation to a no-op.
type KVStore struct {
	kv     KV
	prefix string
	opts   options
}

func NewKVStore(kv KV, prefix string, opts ...Option) *KVStore {
	return &KVStore{
		kv:     kv,
		prefix: prefix,
		opts:   newOptions(opts),
	}
}

var _ Store = (*KVStore)(nil)

func (s *KVStore) dataKey(key string) string {
	return s.prefix + "_" + key
}

func (s *KVStore) tsKey(key string) string {
	return s.prefix + "_savedAt_" + key
}

func (s *KVStore) tsPrefix() string {
	return s.prefix + "_savedAt_"
}

func (s *KVStore) Save(ctx context.Context, key string, data record.Record) {
	if s.kv == nil {
		return
	}
	payload, err := encode(data)
	if err != nil {
		s.opts.logger.Warn("draft save skipped: serialization failed", "key", key, "err", err)
		return
	}
	if err := s.kv.Set(s.dataKey(key), string(payload)); err != nil {
		s.opts.logger.Warn("draft save failed", "key", key, "err", err)
		return
	}
	if err := s.kv.Set(s.tsKey(key), s.opts.now().Format(time.RFC3339)); err != nil {
		s.opts.logger.Warn("draft timestamp save failed", "key", key, "err", err)
	}
}

func (s *KVStore) Load(ctx context.Context, key string) (record.Record, bool) {
	if s.kv == nil {
		return nil, false
	}
	if _, ok := s.freshTimestamp(ctx, key); !ok {
		return nil, false
	}
	raw, ok := s.kv.Get(s.dataKey(key))
	if !ok {
		return nil, false
	}
	data, err := decode([]byte(raw))
	if err != nil {
		s.opts.logger.Warn("draft payload unreadable, clearing", "key", key, "err", err)
		s.Clear(ctx, key)
		return nil, false
	}
	return data, true
}

func (s *KVStore) Exists(ctx context.Context, key string) bool {
	if s.kv == nil {
		return false
	}
	if _, ok := s.freshTimestamp(ctx, key); !ok {
		return false
	}
	_, ok := s.kv.Get(s.dataKey(key))
	return ok
}

func (s *KVStore) Clear(ctx context.Context, key string) {
	if s.kv == nil {
		return
	}
	s.kv.Delete(s.dataKey(key))
	s.kv.Delete(s.tsKey(key))
}

func (s *KVStore) TimestampOf(ctx context.Context, key string) (time.Time, bool) {
	if s.kv == nil {
		return time.Time{}, false
	}
	raw, ok := s.kv.Get(s.tsKey(key))
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func (s *KVStore) Sweep(ctx context.Context) {
	if s.kv == nil {
		return
	}
	for _, tsKey := range s.kv.Keys(s.tsPrefix()) {
		key := strings.TrimPrefix(tsKey, s.tsPrefix())
		s.freshTimestamp(ctx, key)
	}
}

// freshTimestamp returns the saved-at time when the entry exists and is
// inside the TTL. Expired or unparseable entries are cleared as a side
// effect.
func (s *KVStore) freshTimestamp(ctx context.Context, key string) (time.Time, bool) {
	raw, ok := s.kv.Get(s.tsKey(key))
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.opts.logger.Warn("draft timestamp unreadable, clearing", "key", key, "err", err)
		s.Clear(ctx, key)
		return time.Time{}, false
	}
	if s.opts.now().Sub(ts) > s.opts.ttl {
		s.Clear(ctx, key)
		return time.Time{}, false
	}
	return ts, true
}
