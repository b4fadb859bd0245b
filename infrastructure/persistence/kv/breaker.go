package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "deployboard/pkg/errors"
)

// BreakerConfig holds configuration for the store circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns sensible defaults for a local store.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "kv-store",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerStore stops calling a failing backend until it recovers. While the
// breaker is open every call fails fast with an UNAVAILABLE AppError.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a circuit breaker.
func NewBreakerStore(next Store, cfg BreakerConfig, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

// State exposes the breaker state for readiness checks.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	type result struct {
		value string
		ok    bool
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		v, ok, err := s.next.GetItem(ctx, key)
		return result{v, ok}, err
	})
	if err != nil {
		return "", false, s.translate(err)
	}
	r := out.(result)
	return r.value, r.ok, nil
}

func (s *BreakerStore) SetItem(ctx context.Context, key, value string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.SetItem(ctx, key, value)
	})
	return s.translate(err)
}

func (s *BreakerStore) RemoveItem(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.RemoveItem(ctx, key)
	})
	return s.translate(err)
}

func (s *BreakerStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Keys(ctx, prefix)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	keys, _ := out.([]string)
	return keys, nil
}

func (s *BreakerStore) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError(s.cb.Name()).WithCause(err)
	}
	return err
}
