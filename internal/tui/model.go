// Package tui is the terminal rendition of the board: cards drawn on a
// pan/zoom canvas of terminal cells, dragged with the mouse.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/recera/boardify/pkg/board"
	"github.com/recera/boardify/pkg/drag"
	"github.com/recera/boardify/pkg/positions"
	"github.com/recera/boardify/pkg/viewport"
)

// A terminal cell stands in for this many screen pixels.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// PanStep is the arrow-key pan distance in screen pixels.
const PanStep = 4 * CellWidth

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	Lock      key.Binding
	Reset     key.Binding
	Export    key.Binding
	Collapse  key.Binding
	Retry     key.Binding
	Dismiss   key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Quit      key.Binding
}

var DefaultKeyMap = KeyMap{
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	ZoomReset: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "reset zoom"),
	),
	Lock: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "lock"),
	),
	Reset: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reset layout"),
	),
	Export: key.NewBinding(
		key.WithKeys("E"),
		key.WithHelp("E", "export"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "collapse header"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "pan"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.ZoomReset, k.Lock, k.Reset, k.Export, k.Collapse, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Up, k.Retry, k.Dismiss}}
}

// Options configures the board UI.
type Options struct {
	Manager    *board.Manager
	Store      *positions.Store
	CardWidth  float64
	CardHeight float64
	MinScale   float64
	MaxScale   float64
	// ViewDelay is the view state debounce window.
	ViewDelay time.Duration
	ExportDir string
	// ReloadURL is the server's websocket endpoint. Empty disables reload
	// notifications.
	ReloadURL string
	Logger    log.FieldLogger
}

// Model represents the board UI state
type Model struct {
	ctx     context.Context
	opts    Options
	manager *board.Manager
	view    *viewport.Transform
	bus     *drag.Bus
	drags   map[int]*drag.Controller

	// Window dimensions in cells
	width  int
	height int

	snap      board.Snapshot
	collapsed bool
	stale     bool
	dragging  int
	status    string

	keys    KeyMap
	spinner spinner.Model
	help    help.Model
}

// Messages produced by commands.
type (
	loadedMsg struct{ err error }
	resetMsg  struct{ err error }
	staleMsg  struct{}
)

// New builds the model and restores the saved view state.
func New(ctx context.Context, opts Options) *Model {
	if opts.CardWidth <= 0 {
		opts.CardWidth = drag.DefaultCardWidth
	}
	if opts.CardHeight <= 0 {
		opts.CardHeight = drag.DefaultCardHeight
	}
	if opts.MinScale <= 0 {
		opts.MinScale = viewport.DefaultMinScale
	}
	if opts.MaxScale <= 0 {
		opts.MaxScale = viewport.DefaultMaxScale
	}
	if opts.ViewDelay <= 0 {
		opts.ViewDelay = positions.DefaultViewDelay
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	view := viewport.New(viewport.WithScaleBounds(opts.MinScale, opts.MaxScale))
	view.SetState(opts.Store.LoadView(ctx))
	view.OnChange(func(v viewport.ViewState) {
		opts.Store.SaveViewDebounced(v, opts.ViewDelay)
	})

	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	return &Model{
		ctx:      ctx,
		opts:     opts,
		manager:  opts.Manager,
		view:     view,
		bus:      drag.NewBus(),
		drags:    make(map[int]*drag.Controller),
		snap:     opts.Manager.Snapshot(),
		dragging: -1,
		keys:     DefaultKeyMap,
		spinner:  s,
		help:     help.New(),
	}
}

// Transform returns the pan/zoom transform.
func (m *Model) Transform() *viewport.Transform { return m.view }

// Init starts the spinner and the initial load.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.manager.Load(m.ctx)}
	}
}

func (m *Model) retry() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.manager.Retry(m.ctx)}
	}
}

func (m *Model) reset() tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: m.manager.Reset(m.ctx)}
	}
}

// refresh re-reads the manager state and keeps one drag controller per card.
func (m *Model) refresh() {
	m.snap = m.manager.Snapshot()

	seen := make(map[int]bool, len(m.snap.Cards))
	for _, c := range m.snap.Cards {
		seen[c.ID] = true
		if _, ok := m.drags[c.ID]; ok {
			continue
		}
		m.drags[c.ID] = m.newController(c.ID)
	}
	for id, ctrl := range m.drags {
		if !seen[id] {
			ctrl.Close()
			delete(m.drags, id)
		}
	}
}

func (m *Model) newController(id int) *drag.Controller {
	return drag.New(drag.Config{
		CardID:     id,
		CardWidth:  m.opts.CardWidth,
		CardHeight: m.opts.CardHeight,
		Position: func() viewport.Point {
			for _, c := range m.snap.Cards {
				if c.ID == id {
					return viewport.Point{X: c.X, Y: c.Y}
				}
			}
			return viewport.Point{}
		},
		View:     m.view,
		Viewport: m.canvasSize,
		Target:   m.bus,
		OnChange: func(id int, x, y float64) {
			m.manager.ChangePosition(id, x, y)
			m.refresh()
		},
	})
}

// canvasSize is the canvas area in screen pixels.
func (m *Model) canvasSize() (float64, float64) {
	rows := m.height - m.headerHeight() - footerHeight
	if rows < 0 {
		rows = 0
	}
	return float64(m.width) * CellWidth, float64(rows) * CellHeight
}

// toScreen converts a terminal cell to a screen point on the canvas.
func (m *Model) toScreen(x, y int) viewport.Point {
	return viewport.Point{
		X: float64(x) * CellWidth,
		Y: float64(y-m.headerHeight()) * CellHeight,
	}
}

// cardAt returns the id of the topmost card under screen point p.
func (m *Model) cardAt(p viewport.Point) (int, bool) {
	scale := m.view.Scale()
	for i := len(m.snap.Cards) - 1; i >= 0; i-- {
		c := m.snap.Cards[i]
		tl := m.view.WorldToScreen(viewport.Point{X: c.X, Y: c.Y})
		if p.X >= tl.X && p.X < tl.X+m.opts.CardWidth*scale &&
			p.Y >= tl.Y && p.Y < tl.Y+m.opts.CardHeight*scale {
			return c.ID, true
		}
	}
	return 0, false
}

// Close ends any drag in progress.
func (m *Model) Close() {
	for _, ctrl := range m.drags {
		ctrl.Close()
	}
}
