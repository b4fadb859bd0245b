// Package expiring layers time-to-live envelopes over a kv.Store. Values are
// stored as {"value": <json>, "expiry": <epoch ms>} and evicted lazily when
// read after their expiry. There is no background sweep.
package expiring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deployboard/infrastructure/persistence/kv"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 7 * 24 * time.Hour

// Discard reasons reported to the Observer.
const (
	ReasonCorrupt  = "corrupt"
	ReasonExpired  = "expired"
	ReasonBadValue = "bad_value"
	ReasonReadErr  = "read_error"
)

// Observer is told about every envelope that a read had to discard.
type Observer interface {
	EnvelopeDiscarded(reason string)
}

type envelope struct {
	Value  json.RawMessage `json:"value"`
	Expiry *int64          `json:"expiry,omitempty"`
}

// Store reads and writes TTL envelopes.
type Store struct {
	kv         kv.Store
	now        func() time.Time
	defaultTTL time.Duration
	logger     *zap.Logger
	observer   Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger used for discarded envelopes.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver reports every discarded envelope to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// New creates a Store over backend.
func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:         backend,
		now:        time.Now,
		defaultTTL: DefaultTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set wraps value in an envelope expiring ttl from now and writes it under
// key. Encoding and backend errors are returned unchanged.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	expiry := s.now().Add(ttl).UnixMilli()
	data, err := json.Marshal(envelope{Value: raw, Expiry: &expiry})
	if err != nil {
		return err
	}
	return s.kv.SetItem(ctx, key, string(data))
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.kv.RemoveItem(ctx, key)
}

// GetRaw reads a value stored without an envelope.
func (s *Store) GetRaw(ctx context.Context, key string) (string, bool, error) {
	return s.kv.GetItem(ctx, key)
}

// SetRaw writes a value without an envelope. It never expires.
func (s *Store) SetRaw(ctx context.Context, key, value string) error {
	return s.kv.SetItem(ctx, key, value)
}

// Keys lists stored keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.kv.Keys(ctx, prefix)
}

// Get reads key and decodes its envelope value into T.
//
// A missing key, an unparseable envelope or an undecodable value yields
// (zero, false) and leaves the key in place. An envelope without an expiry
// or read after its expiry is deleted and yields (zero, false). A JSON null
// value yields (zero, false).
func Get[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T

	raw, ok, err := s.kv.GetItem(ctx, key)
	if err != nil {
		s.discard(ReasonReadErr, key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.discard(ReasonCorrupt, key, err)
		return zero, false
	}

	if env.Expiry == nil || s.now().UnixMilli() > *env.Expiry {
		if err := s.kv.RemoveItem(ctx, key); err != nil {
			s.logger.Warn("failed to evict expired item", zap.String("key", key), zap.Error(err))
		}
		s.discard(ReasonExpired, key, nil)
		return zero, false
	}

	if len(env.Value) == 0 || string(env.Value) == "null" {
		return zero, false
	}

	var out T
	if err := json.Unmarshal(env.Value, &out); err != nil {
		s.discard(ReasonBadValue, key, fmt.Errorf("decode %T: %w", out, err))
		return zero, false
	}
	return out, true
}

func (s *Store) discard(reason, key string, err error) {
	if s.observer != nil {
		s.observer.EnvelopeDiscarded(reason)
	}
	if reason == ReasonExpired {
		s.logger.Debug("expired item evicted", zap.String("key", key))
		return
	}
	s.logger.Warn("discarding stored item", zap.String("key", key), zap.String("reason", reason), zap.Error(err))
}
