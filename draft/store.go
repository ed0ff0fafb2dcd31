// Package draft persists in-progress form records outside a session's
// lifetime. Every operation is best-effort: storage failures are logged and
// swallowed, because losing a draft is degraded service, not a correctness
// violation.
package draft

import (
	"context"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/propdesk/formflow/record"
)

// DefaultTTL is how long a draft stays restorable. Expiry is checked lazily
// on read, never by a background sweep.
const DefaultTTL = 24 * time.Hour

// Store is the draft persistence contract. Implementations never propagate
// storage errors; absence of the backing facility degrades every operation
// to a no-op reporting "absent".
type Store interface {
	// Save overwrites the draft for key with data and the current time.
	Save(ctx context.Context, key string, data record.Record)
	// Load returns the draft if present and fresh. An expired entry is
	// deleted as a side effect and reported absent.
	Load(ctx context.Context, key string) (record.Record, bool)
	// Exists applies the same freshness check as Load without
	// deserializing the payload.
	Exists(ctx context.Context, key string) bool
	// Clear deletes the draft and its timestamp unconditionally. Idempotent.
	Clear(ctx context.Context, key string)
	// TimestampOf returns when the draft was saved.
	TimestampOf(ctx context.Context, key string) (time.Time, bool)
	// Sweep opportunistically reclaims expired entries.
	Sweep(ctx context.Context)
}

// Option configures a store backend.
type Option func(*options)

type options struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTTL overrides the draft lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock overrides the time source. Used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger overrides the logger used for swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func encode(data record.Record) ([]byte, error) {
	return sonic.Marshal(map[string]any(data))
}

func decode(payload []byte) (record.Record, error) {
	return record.FromJSON(payload)
}
