// Package positions persists card coordinates and the board view to a local
// key-value store.
//
// Reads never fail: absent, unreadable or malformed values yield defaults.
// Writes are debounced on two independent channels, one for card positions
// and one for the view, and write failures are logged rather than returned.
package positions

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/pkg/card"
	"github.com/recera/boardify/pkg/debounce"
	"github.com/recera/boardify/pkg/kv"
	"github.com/recera/boardify/pkg/viewport"
)

const (
	// PositionsKey holds the id → {x,y} mapping.
	PositionsKey = "cardPositions"
	// ViewKey holds the persisted ViewState.
	ViewKey = "boardify_view"

	DefaultPositionsDelay = 300 * time.Millisecond
	DefaultViewDelay      = 200 * time.Millisecond

	writeTimeout = 5 * time.Second
)

// Store reads and writes board state through a kv.Store.
type Store struct {
	kv      kv.Store
	logger  log.FieldLogger
	bounds  [2]float64
	posSave *debounce.Debouncer
	vwSave  *debounce.Debouncer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed storage errors.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScaleBounds sets the range persisted scales are clamped to.
func WithScaleBounds(min, max float64) Option {
	return func(s *Store) {
		if min > 0 && max >= min {
			s.bounds = [2]float64{min, max}
		}
	}
}

// New returns a Store over store.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		logger:  log.StandardLogger(),
		bounds:  [2]float64{viewport.DefaultMinScale, viewport.DefaultMaxScale},
		posSave: debounce.New(),
		vwSave:  debounce.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadPositions returns the saved positions, or an empty mapping when none
// are stored or the stored value is unusable. Unusable entries and
// coordinates are dropped individually.
func (s *Store) LoadPositions(ctx context.Context) card.SavedPositions {
	raw, ok := s.read(ctx, PositionsKey)
	if !ok {
		return card.SavedPositions{}
	}
	var p card.SavedPositions
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.WithError(err).WithField("key", PositionsKey).Warn("Failed to parse saved positions")
		return card.SavedPositions{}
	}
	return p
}

// SavePositionsDebounced schedules a write of the positions of cards. A later
// call before the write happens replaces it and restarts the delay.
func (s *Store) SavePositionsDebounced(cards []card.Card, delay time.Duration) {
	positions := card.Project(cards)
	s.posSave.Schedule(delay, func() {
		s.write(PositionsKey, positions)
	})
}

// FlushPositions performs a pending positions write immediately.
func (s *Store) FlushPositions() bool { return s.posSave.Flush() }

// ClearPositions cancels any pending positions write and removes the saved
// positions.
func (s *Store) ClearPositions(ctx context.Context) {
	s.CancelPositions()
	s.DeletePositions(ctx)
}

// CancelPositions drops a pending positions write.
func (s *Store) CancelPositions() { s.posSave.Cancel() }

// DeletePositions removes the saved positions. A write scheduled afterwards
// is not affected.
func (s *Store) DeletePositions(ctx context.Context) {
	if err := s.kv.Delete(ctx, PositionsKey); err != nil {
		s.logger.WithError(err).WithField("key", PositionsKey).Warn("Failed to clear saved positions")
	}
}

// LoadView returns the saved view. Each field is taken only when present and
// well-typed; the scale is clamped.
func (s *Store) LoadView(ctx context.Context) viewport.ViewState {
	view := viewport.DefaultViewState()

	raw, ok := s.read(ctx, ViewKey)
	if !ok {
		return view
	}

	var stored struct {
		Scale *float64 `json:"scale"`
		Pan   *struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"pan"`
		MovementLocked *bool `json:"movementLocked"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.WithError(err).WithField("key", ViewKey).Warn("Failed to parse saved view")
		return view
	}

	if stored.Scale != nil && *stored.Scale > 0 {
		view.Scale = min(s.bounds[1], max(s.bounds[0], *stored.Scale))
	}
	if stored.Pan != nil && stored.Pan.X != nil && stored.Pan.Y != nil {
		view.Pan = viewport.Point{X: *stored.Pan.X, Y: *stored.Pan.Y}
	}
	if stored.MovementLocked != nil {
		view.MovementLocked = *stored.MovementLocked
	}
	return view
}

// SaveViewDebounced schedules a write of view on the view channel.
func (s *Store) SaveViewDebounced(view viewport.ViewState, delay time.Duration) {
	s.vwSave.Schedule(delay, func() {
		s.write(ViewKey, view)
	})
}

// FlushView performs a pending view write immediately.
func (s *Store) FlushView() bool { return s.vwSave.Flush() }

// Close cancels pending writes on both channels.
func (s *Store) Close() {
	s.posSave.Cancel()
	s.vwSave.Cancel()
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read from storage")
		return "", false
	}
	return raw, ok
}

func (s *Store) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to encode value for storage")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to write to storage")
		return
	}
	s.logger.WithField("key", key).Debug("Saved to storage")
}
