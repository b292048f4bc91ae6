// Package drag turns pointer input into world-space card moves.
//
// Each card has a Controller with two states, Idle and Dragging. Entering
// Dragging subscribes to the global pointer stream; leaving it, or closing
// the controller, releases that subscription.
package drag

import (
	"math"
	"sync"

	"github.com/recera/boardify/pkg/viewport"
)

const (
	// DefaultCardWidth matches the rendered card width in world pixels.
	DefaultCardWidth = 288
	// DefaultCardHeight is the approximate rendered card height.
	DefaultCardHeight = 200
)

// State is the controller's interaction state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// EventKind identifies a global pointer event.
type EventKind int

const (
	PointerMove EventKind = iota
	PointerUp
	PointerCancel
)

// Event is a pointer event in screen space.
type Event struct {
	Kind     EventKind
	Position viewport.Point
}

// EventTarget is the global pointer stream, the document in a browser or
// the terminal program's mouse input. Subscribe returns a release function.
type EventTarget interface {
	Subscribe(handler func(Event)) (release func())
}

// View is the read side of the pan/zoom transform.
type View interface {
	ScreenToWorld(p viewport.Point) viewport.Point
	Scale() float64
	Pan() viewport.Point
	Locked() bool
}

// Viewport returns the current viewport size in screen pixels.
type Viewport func() (width, height float64)

// PositionFunc receives clamped world positions while dragging.
type PositionFunc func(id int, x, y float64)

// Config describes one draggable card.
type Config struct {
	CardID     int
	CardWidth  float64
	CardHeight float64
	// Position returns the card's current world position.
	Position func() viewport.Point
	View     View
	Viewport Viewport
	Target   EventTarget
	OnChange PositionFunc
}

// Controller is a single card's drag state machine.
type Controller struct {
	cfg     Config
	mu      sync.Mutex
	state   State
	anchor  viewport.Point
	release func()
}

// New returns an idle controller.
func New(cfg Config) *Controller {
	if cfg.CardWidth <= 0 {
		cfg.CardWidth = DefaultCardWidth
	}
	if cfg.CardHeight <= 0 {
		cfg.CardHeight = DefaultCardHeight
	}
	return &Controller{cfg: cfg}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PointerDown starts a drag at screen point p. It is ignored while movement
// is locked or a drag is already in progress, and reports whether a drag
// started.
func (c *Controller) PointerDown(p viewport.Point) bool {
	if c.cfg.View.Locked() {
		return false
	}

	c.mu.Lock()
	if c.state == Dragging {
		c.mu.Unlock()
		return false
	}
	c.anchor = c.cfg.View.ScreenToWorld(p).Sub(c.cfg.Position())
	c.state = Dragging
	c.mu.Unlock()

	release := c.cfg.Target.Subscribe(c.handle)

	c.mu.Lock()
	if c.state != Dragging {
		// Ended while subscribing.
		c.mu.Unlock()
		release()
		return true
	}
	c.release = release
	c.mu.Unlock()
	return true
}

func (c *Controller) handle(e Event) {
	switch e.Kind {
	case PointerMove:
		c.PointerMove(e.Position)
	case PointerUp, PointerCancel:
		c.End()
	}
}

// PointerMove moves the card so the grabbed point follows p, clamped so the
// card stays inside the viewport.
func (c *Controller) PointerMove(p viewport.Point) {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return
	}
	anchor := c.anchor
	c.mu.Unlock()

	candidate := c.cfg.View.ScreenToWorld(p).Sub(anchor)
	pos := c.Clamp(candidate)
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.cfg.CardID, pos.X, pos.Y)
	}
}

// End finishes a drag and releases the pointer subscription.
func (c *Controller) End() {
	c.mu.Lock()
	release := c.release
	c.release = nil
	c.state = Idle
	c.mu.Unlock()

	if release != nil {
		release()
	}
}

// Close tears the controller down.
func (c *Controller) Close() { c.End() }

// Clamp restricts a world position so the card's screen rectangle lies within
// the viewport at the current pan and scale. When the card is larger than
// the viewport it is pinned to the top-left edge.
func (c *Controller) Clamp(p viewport.Point) viewport.Point {
	vw, vh := c.cfg.Viewport()
	return ClampToViewport(p, c.cfg.View.Pan(), c.cfg.View.Scale(),
		c.cfg.CardWidth, c.cfg.CardHeight, vw, vh)
}

// ClampToViewport is the bounds computation behind Controller.Clamp.
func ClampToViewport(p, pan viewport.Point, scale, cardW, cardH, vw, vh float64) viewport.Point {
	minX := -pan.X / scale
	minY := -pan.Y / scale
	maxX := math.Max(minX, (vw-cardW*scale-pan.X)/scale)
	maxY := math.Max(minY, (vh-cardH*scale-pan.Y)/scale)
	return viewport.Point{
		X: math.Max(minX, math.Min(maxX, p.X)),
		Y: math.Max(minY, math.Min(maxY, p.Y)),
	}
}
