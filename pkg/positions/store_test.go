package positions

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/boardify/pkg/card"
	"github.com/recera/boardify/pkg/kv"
	"github.com/recera/boardify/pkg/viewport"
)

// recordingStore wraps a Memory store and counts writes per key.
type recordingStore struct {
	*kv.Memory
	mu     sync.Mutex
	writes map[string]int
	getErr error
	setErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: kv.NewMemory(0), writes: make(map[string]int)}
}

func (r *recordingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.getErr != nil {
		return "", false, r.getErr
	}
	return r.Memory.Get(ctx, key)
}

func (r *recordingStore) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.writes[key]++
	r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	return r.Memory.Set(ctx, key, value)
}

func (r *recordingStore) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[key]
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func saved(x, y float64) card.SavedPosition {
	return card.SavedPosition{X: &x, Y: &y}
}

func TestLoadPositions_Fallbacks(t *testing.T) {
	ctx := context.Background()
	tests := map[string]string{
		"array":  `[1,2,3]`,
		"null":   `null`,
		"string": `"hello"`,
		"broken": `{"1":`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			mem := kv.NewMemory(0)
			require.NoError(t, mem.Set(ctx, PositionsKey, raw))
			s := New(mem, WithLogger(quietLogger()))
			assert.Equal(t, card.SavedPositions{}, s.LoadPositions(ctx))
		})
	}

	t.Run("absent", func(t *testing.T) {
		s := New(kv.NewMemory(0), WithLogger(quietLogger()))
		assert.Equal(t, card.SavedPositions{}, s.LoadPositions(ctx))
	})
}

func TestLoadPositions_PartialEntries(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory(0)
	require.NoError(t, mem.Set(ctx, PositionsKey, `{"2":{"x":50},"3":null}`))
	s := New(mem, WithLogger(quietLogger()))

	got := s.LoadPositions(ctx)
	require.Contains(t, got, 2)
	assert.Equal(t, 50.0, *got[2].X)
	assert.Nil(t, got[2].Y)
	assert.NotContains(t, got, 3)
}

func TestLoadPositions_StorageErrorIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := newRecordingStore()
	store.getErr = kv.ErrUnavailable

	s := New(store, WithLogger(logger))

	assert.Equal(t, card.SavedPositions{}, s.LoadPositions(context.Background()))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, PositionsKey, hook.LastEntry().Data["key"])
}

func TestSavePositionsDebounced_Coalesces(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	s := New(store, WithLogger(quietLogger()))
	defer s.Close()

	for i := 0; i < 20; i++ {
		s.SavePositionsDebounced([]card.Card{{ID: 1, X: float64(i), Y: float64(2 * i)}}, 30*time.Millisecond)
	}

	assert.Eventually(t, func() bool { return store.count(PositionsKey) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, store.count(PositionsKey))
	assert.Equal(t, card.SavedPositions{1: saved(19, 38)}, s.LoadPositions(ctx))
}

func TestSave_ChannelsAreIndependent(t *testing.T) {
	store := newRecordingStore()
	s := New(store, WithLogger(quietLogger()))
	defer s.Close()

	s.SavePositionsDebounced([]card.Card{{ID: 1}}, time.Hour)
	s.SaveViewDebounced(viewport.ViewState{Scale: 2}, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return store.count(ViewKey) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, store.count(PositionsKey))
}

func TestSave_WriteFailureIsSwallowed(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := newRecordingStore()
	store.setErr = kv.ErrQuotaExceeded
	s := New(store, WithLogger(logger))

	s.SavePositionsDebounced([]card.Card{{ID: 1}}, time.Hour)
	require.True(t, s.FlushPositions())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.True(t, errors.Is(entry.Data[logrus.ErrorKey].(error), kv.ErrQuotaExceeded))
}

func TestClearPositions_CancelsPendingSave(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	s := New(store, WithLogger(quietLogger()))

	s.SavePositionsDebounced([]card.Card{{ID: 1, X: 5}}, time.Hour)
	require.True(t, s.FlushPositions())
	s.SavePositionsDebounced([]card.Card{{ID: 1, X: 6}}, 20*time.Millisecond)

	s.ClearPositions(ctx)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, card.SavedPositions{}, s.LoadPositions(ctx))
	assert.Equal(t, 1, store.count(PositionsKey))
}

func TestView_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(0), WithLogger(quietLogger()))

	want := viewport.ViewState{Scale: 1.5, Pan: viewport.Point{X: -10, Y: 20}, MovementLocked: true}
	s.SaveViewDebounced(want, time.Hour)
	require.True(t, s.FlushView())

	assert.Equal(t, want, s.LoadView(ctx))
}

func TestLoadView_PartialAndMalformed(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		raw  string
		want viewport.ViewState
	}{
		{"garbage", `not json`, viewport.DefaultViewState()},
		{"array", `[]`, viewport.DefaultViewState()},
		{"scale only", `{"scale":2}`, viewport.ViewState{Scale: 2}},
		{"scale clamped", `{"scale":99}`, viewport.ViewState{Scale: viewport.DefaultMaxScale}},
		{"zero scale ignored", `{"scale":0}`, viewport.ViewState{Scale: 1}},
		{"wrong scale type", `{"scale":"2"}`, viewport.DefaultViewState()},
		{"half pan ignored", `{"pan":{"x":3}}`, viewport.ViewState{Scale: 1}},
		{"lock only", `{"movementLocked":true}`, viewport.ViewState{Scale: 1, MovementLocked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := kv.NewMemory(0)
			require.NoError(t, mem.Set(ctx, ViewKey, tt.raw))
			s := New(mem, WithLogger(quietLogger()))
			assert.Equal(t, tt.want, s.LoadView(ctx))
		})
	}
}

func TestClose_CancelsBothChannels(t *testing.T) {
	store := newRecordingStore()
	s := New(store, WithLogger(quietLogger()))

	s.SavePositionsDebounced([]card.Card{{ID: 1}}, 20*time.Millisecond)
	s.SaveViewDebounced(viewport.DefaultViewState(), 20*time.Millisecond)
	s.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, store.count(PositionsKey))
	assert.Equal(t, 0, store.count(ViewKey))
}
