package expiring

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deployboard/infrastructure/persistence/kv"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type mockObserver struct{ mock.Mock }

func (m *mockObserver) EnvelopeDiscarded(reason string) { m.Called(reason) }

type module struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newStore(t *testing.T, opts ...Option) (*Store, *kv.MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	backend := kv.NewMemoryStore()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(backend, opts...), backend, clock
}

func TestSetWritesEnvelope(t *testing.T) {
	ctx := context.Background()
	s, backend, clock := newStore(t)

	require.NoError(t, s.Set(ctx, "k", []module{{ID: "redis", Name: "Redis"}}, time.Hour))

	raw, ok, _ := backend.GetItem(ctx, "k")
	require.True(t, ok)
	var env struct {
		Value  []module `json:"value"`
		Expiry int64    `json:"expiry"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, clock.t.Add(time.Hour).UnixMilli(), env.Expiry)
	assert.Equal(t, "redis", env.Value[0].ID)
}

func TestRoundTripWithinTTL(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t)

	want := []module{{ID: "redis", Name: "Redis"}, {ID: "mysql", Name: "MySQL"}}
	require.NoError(t, s.Set(ctx, "placed-modules-database", want, 0))

	clock.Advance(DefaultTTL)
	got, ok := Get[[]module](ctx, s, "placed-modules-database")
	require.True(t, ok, "expiry is inclusive")
	assert.Equal(t, want, got)
}

func TestExpiredEnvelopeIsEvicted(t *testing.T) {
	ctx := context.Background()
	obs := &mockObserver{}
	obs.On("EnvelopeDiscarded", ReasonExpired).Once()
	s, backend, clock := newStore(t, WithObserver(obs))

	require.NoError(t, s.Set(ctx, "flow-nodes", []string{"a"}, time.Minute))
	clock.Advance(time.Minute + time.Millisecond)

	_, ok := Get[[]string](ctx, s, "flow-nodes")
	assert.False(t, ok)

	_, present, _ := backend.GetItem(ctx, "flow-nodes")
	assert.False(t, present, "expired key must be deleted")
	obs.AssertExpectations(t)
}

func TestCorruptAndMalformedItems(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		raw        string
		keyRemains bool
		reason     string
	}{
		{name: "not json", raw: "{oops", keyRemains: true, reason: ReasonCorrupt},
		{name: "raw string", raw: "true", keyRemains: true, reason: ReasonCorrupt},
		{name: "missing expiry", raw: `{"value":[1]}`, keyRemains: false, reason: ReasonExpired},
		{name: "wrong value shape", raw: `{"value":"str","expiry":9999999999999}`, keyRemains: true, reason: ReasonBadValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &mockObserver{}
			obs.On("EnvelopeDiscarded", tt.reason).Once()
			s, backend, _ := newStore(t, WithObserver(obs))
			require.NoError(t, backend.SetItem(ctx, "k", tt.raw))

			_, ok := Get[[]int](ctx, s, "k")
			assert.False(t, ok)

			_, present, _ := backend.GetItem(ctx, "k")
			assert.Equal(t, tt.keyRemains, present)
			obs.AssertExpectations(t)
		})
	}
}

func TestNullValueIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, backend, _ := newStore(t)
	require.NoError(t, s.Set(ctx, "k", nil, time.Hour))

	_, ok := Get[[]module](ctx, s, "k")
	assert.False(t, ok)
	_, present, _ := backend.GetItem(ctx, "k")
	assert.True(t, present)
}

func TestSetPassesThroughEncodeErrors(t *testing.T) {
	s, _, _ := newStore(t)
	err := s.Set(context.Background(), "k", math.Inf(1), time.Hour)
	assert.Error(t, err)
}

func TestRemoveAndRaw(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newStore(t)

	require.NoError(t, s.Remove(ctx, "never-set"))

	require.NoError(t, s.SetRaw(ctx, "isAuthenticated", "true"))
	v, ok, err := s.GetRaw(ctx, "isAuthenticated")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, s.Remove(ctx, "isAuthenticated"))
	_, ok, _ = s.GetRaw(ctx, "isAuthenticated")
	assert.False(t, ok)
}

func TestWithDefaultTTL(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newStore(t, WithDefaultTTL(time.Second))
	require.NoError(t, s.Set(ctx, "k", 1, 0))

	clock.Advance(2 * time.Second)
	_, ok := Get[int](ctx, s, "k")
	assert.False(t, ok)
}
