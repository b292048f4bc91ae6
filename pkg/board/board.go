// Package board owns the authoritative card list: it loads card definitions,
// merges saved positions onto them, applies position changes, resets and
// exports the layout, and publishes every change to subscribers.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/pkg/card"
	"github.com/recera/boardify/pkg/fetch"
	"github.com/recera/boardify/pkg/positions"
	"github.com/recera/boardify/pkg/reactive"
)

// User-facing messages.
const (
	LoadErrorMessage   = "Failed to load cards. Please ensure cards.json exists and has valid data."
	ResetErrorMessage  = "Unable to reset positions at this time."
	ExportErrorMessage = "Failed to export layout."
)

// ErrSuperseded is returned by Load and Reset when a newer operation or
// Close made their result irrelevant. The result was discarded.
var ErrSuperseded = errors.New("board operation superseded")

// Snapshot is a consistent view of the manager's published state.
type Snapshot struct {
	Cards   []card.Card       `json:"cards"`
	Domains []string          `json:"domains"`
	Stats   []card.DomainStat `json:"stats"`
	Loading bool              `json:"loading"`
	// Error is set after a failed load or reset. A failed initial load
	// leaves Cards empty.
	Error string `json:"error,omitempty"`
	// Notice is a non-blocking message, e.g. a failed export.
	Notice string `json:"notice,omitempty"`
}

// Config configures a Manager.
type Config struct {
	// URL of the card data resource.
	URL          string
	FetchOptions []fetch.Option
	Store        *positions.Store
	// SaveDelay is the positions debounce window.
	SaveDelay time.Duration
	Logger    log.FieldLogger
}

// Manager is the card layout manager.
type Manager struct {
	url       string
	fetchOpts []fetch.Option
	store     *positions.Store
	saveDelay time.Duration
	logger    log.FieldLogger

	mu     sync.Mutex
	gen    uint64
	closed bool

	cards   *reactive.State[[]card.Card]
	domains *reactive.State[[]string]
	loading *reactive.State[bool]
	err     *reactive.State[string]
	notice  *reactive.State[string]
	stats   *reactive.Computed[[]card.DomainStat]
}

// New returns a manager in the Loading state. Call Load to populate it.
func New(cfg Config) *Manager {
	if cfg.Store == nil {
		panic("board.New: position store is nil")
	}
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = positions.DefaultPositionsDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	m := &Manager{
		url:       cfg.URL,
		fetchOpts: cfg.FetchOptions,
		store:     cfg.Store,
		saveDelay: cfg.SaveDelay,
		logger:    cfg.Logger,
		cards:     reactive.NewState[[]card.Card](nil),
		domains:   reactive.NewState[[]string](nil),
		loading:   reactive.NewState(true),
		err:       reactive.NewState(""),
		notice:    reactive.NewState(""),
	}
	m.stats = reactive.NewComputed(func() []card.DomainStat {
		return card.Stats(m.domains.Get(), m.cards.Get())
	}, m.cards, m.domains)
	return m
}

// Cards returns a copy of the current card list.
func (m *Manager) Cards() []card.Card { return card.Clone(m.cards.Get()) }

// Domains returns the distinct domains in first-occurrence order.
func (m *Manager) Domains() []string { return append([]string(nil), m.domains.Get()...) }

// DomainStats returns the per-domain card counts.
func (m *Manager) DomainStats() []card.DomainStat {
	return append([]card.DomainStat(nil), m.stats.Get()...)
}

// Loading reports whether a load is in progress.
func (m *Manager) Loading() bool { return m.loading.Get() }

// Error returns the current user-facing error, or "".
func (m *Manager) Error() string { return m.err.Get() }

// Notice returns the current non-blocking message, or "".
func (m *Manager) Notice() string { return m.notice.Get() }

// DismissNotice clears the non-blocking message.
func (m *Manager) DismissNotice() { m.notice.Set("") }

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Cards:   m.Cards(),
		Domains: m.Domains(),
		Stats:   m.DomainStats(),
		Loading: m.Loading(),
		Error:   m.Error(),
		Notice:  m.Notice(),
	}
}

// Subscribe calls fn with a fresh snapshot after every state change until
// the returned function is called.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	notify := func() { fn(m.Snapshot()) }
	unsubs := []func(){
		m.cards.Watch(notify),
		m.domains.Watch(notify),
		m.loading.Watch(notify),
		m.err.Watch(notify),
		m.notice.Watch(notify),
	}
	return func() {
		for _, un := range unsubs {
			un()
		}
	}
}

// begin starts a new generation, superseding any in-flight operation.
func (m *Manager) begin() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, false
	}
	m.gen++
	return m.gen, true
}

// commit applies fn if gen is still current. The check and the state writes
// happen under the lock; subscribers are notified after it is released.
func (m *Manager) commit(gen uint64, fn func()) bool {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return false
	}
	batch := reactive.Collect(fn)
	m.mu.Unlock()

	batch.Commit()
	return true
}

// Load fetches the card data, merges saved positions onto it and publishes
// the result. On failure the board is left empty with LoadErrorMessage.
func (m *Manager) Load(ctx context.Context) error {
	gen, ok := m.begin()
	if !ok {
		return ErrSuperseded
	}
	m.loading.Set(true)

	start := time.Now()
	cards, err := m.fetchCards(ctx)
	if err != nil {
		m.logger.WithError(err).WithField("url", m.url).Error("Error loading cards")
		if !m.commit(gen, func() {
			m.cards.Set(nil)
			m.domains.Set(nil)
			m.err.Set(LoadErrorMessage)
			m.loading.Set(false)
		}) {
			return ErrSuperseded
		}
		return fmt.Errorf("load cards: %w", err)
	}

	merged := card.Merge(cards, m.store.LoadPositions(ctx))
	if !m.commit(gen, func() {
		m.cards.Set(merged)
		m.domains.Set(card.Domains(merged))
		m.err.Set("")
		m.loading.Set(false)
	}) {
		return ErrSuperseded
	}

	m.logger.WithFields(log.Fields{
		"cards":    len(merged),
		"duration": time.Since(start),
	}).Debug("Loaded cards")
	return nil
}

// Retry re-runs Load after a failure. Saved positions are kept.
func (m *Manager) Retry(ctx context.Context) error { return m.Load(ctx) }

// ChangePosition moves a card. The change is applied immediately and a
// debounced save of all positions is scheduled. Unknown ids are ignored.
func (m *Manager) ChangePosition(id int, x, y float64) {
	var (
		updated []card.Card
		found   bool
	)
	m.cards.Update(func(prev []card.Card) []card.Card {
		next := card.Clone(prev)
		for i := range next {
			if next[i].ID == id {
				next[i].X, next[i].Y = x, y
				found = true
			}
		}
		updated = next
		return next
	})
	if !found {
		return
	}
	m.store.SavePositionsDebounced(updated, m.saveDelay)
}

// Reset re-fetches the canonical card data, discards saved positions and
// publishes the fetched layout. A failed fetch leaves the board and the
// saved positions untouched and sets ResetErrorMessage.
func (m *Manager) Reset(ctx context.Context) error {
	gen, ok := m.begin()
	if !ok {
		return ErrSuperseded
	}

	cards, err := m.fetchCards(ctx)
	if err != nil {
		m.logger.WithError(err).WithField("url", m.url).Error("Failed to reset positions")
		if !m.commit(gen, func() {
			m.err.Set(ResetErrorMessage)
			m.loading.Set(false)
		}) {
			return ErrSuperseded
		}
		return fmt.Errorf("reset positions: %w", err)
	}

	// Pending saves are cancelled under the lock before the delete and again
	// before publishing. The delete runs unlocked as it may be a network call.
	if !m.commit(gen, m.store.CancelPositions) {
		return ErrSuperseded
	}
	m.store.DeletePositions(ctx)

	if !m.commit(gen, func() {
		m.store.CancelPositions()
		m.cards.Set(cards)
		m.domains.Set(card.Domains(cards))
		m.err.Set("")
		m.loading.Set(false)
	}) {
		return ErrSuperseded
	}
	return nil
}

// Close discards the results of in-flight operations and cancels pending
// saves.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.gen++
	m.mu.Unlock()

	m.store.Close()
	m.stats.Dispose()
}

// fetchCards retries until the body is well-formed JSON; only the shape check
// runs after the retries.
func (m *Manager) fetchCards(ctx context.Context) ([]card.Card, error) {
	raw, err := fetch.JSON[json.RawMessage](ctx, m.url, m.fetchOpts...)
	if err != nil {
		return nil, err
	}
	return card.Decode(raw)
}
