// Package viewport maintains the board's pan/zoom transform and converts
// between screen space and world space.
//
// A world point w is drawn at screen point w*scale + pan. Scale is always
// kept within [MinScale, MaxScale]; pan is never constrained.
package viewport

import (
	"math"
	"sync"
)

const (
	DefaultMinScale = 0.2
	DefaultMaxScale = 3.0

	// ZoomStep is the factor applied by ZoomIn, and its inverse by ZoomOut.
	ZoomStep = 1.1
	// WheelSensitivity converts wheel delta into an exponential zoom factor.
	WheelSensitivity = 0.002
)

// Point is a 2D coordinate or offset.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// ViewState is the persisted form of a view.
type ViewState struct {
	Scale          float64 `json:"scale"`
	Pan            Point   `json:"pan"`
	MovementLocked bool    `json:"movementLocked"`
}

// DefaultViewState is the view of a fresh board.
func DefaultViewState() ViewState {
	return ViewState{Scale: 1}
}

// WheelEvent is a wheel or trackpad gesture at a screen position.
// Trackpad pinch arrives as a wheel event with Ctrl set.
type WheelEvent struct {
	Position Point
	DeltaY   float64
	Ctrl     bool
	Meta     bool
	Alt      bool
}

// Transform is the current pan/zoom state. It is safe for concurrent use.
type Transform struct {
	mu       sync.RWMutex
	scale    float64
	pan      Point
	locked   bool
	minScale float64
	maxScale float64
	onChange []func(ViewState)
}

// Option configures a Transform.
type Option func(*Transform)

// WithScaleBounds overrides the scale range. Invalid ranges are ignored.
func WithScaleBounds(min, max float64) Option {
	return func(t *Transform) {
		if min > 0 && max >= min {
			t.minScale, t.maxScale = min, max
		}
	}
}

// New returns a Transform at scale 1 with no pan.
func New(opts ...Option) *Transform {
	t := &Transform{
		scale:    1,
		minScale: DefaultMinScale,
		maxScale: DefaultMaxScale,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.scale = t.clamp(t.scale)
	return t
}

// OnChange registers fn to be called with the new state after every mutation.
func (t *Transform) OnChange(fn func(ViewState)) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

func (t *Transform) clamp(s float64) float64 {
	if math.IsNaN(s) {
		return t.minScale
	}
	return math.Max(t.minScale, math.Min(t.maxScale, s))
}

// Bounds returns the scale range.
func (t *Transform) Bounds() (min, max float64) {
	return t.minScale, t.maxScale
}

// Scale returns the current scale.
func (t *Transform) Scale() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scale
}

// Pan returns the current pan offset in screen pixels.
func (t *Transform) Pan() Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pan
}

// Locked reports whether card movement is locked.
func (t *Transform) Locked() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.locked
}

// State returns a snapshot of the view.
func (t *Transform) State() ViewState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return ViewState{Scale: t.scale, Pan: t.pan, MovementLocked: t.locked}
}

// SetState replaces the view, clamping the scale.
func (t *Transform) SetState(v ViewState) {
	t.update(func() {
		t.scale = t.clamp(v.Scale)
		t.pan = v.Pan
		t.locked = v.MovementLocked
	})
}

// ScreenToWorld maps a screen point to world space.
func (t *Transform) ScreenToWorld(p Point) Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return screenToWorld(p, t.pan, t.scale)
}

// WorldToScreen maps a world point to screen space.
func (t *Transform) WorldToScreen(p Point) Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return p.Scale(t.scale).Add(t.pan)
}

func screenToWorld(p, pan Point, scale float64) Point {
	return p.Sub(pan).Scale(1 / scale)
}

// ZoomAtPoint multiplies the scale by factor, keeping the world point under
// the screen point p fixed.
func (t *Transform) ZoomAtPoint(factor float64, p Point) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	t.update(func() {
		world := screenToWorld(p, t.pan, t.scale)
		next := t.clamp(t.scale * factor)
		t.pan = p.Sub(world.Scale(next))
		t.scale = next
	})
}

// ZoomIn zooms by ZoomStep about center, usually the viewport centre.
func (t *Transform) ZoomIn(center Point) { t.ZoomAtPoint(ZoomStep, center) }

// ZoomOut zooms by 1/ZoomStep about center.
func (t *Transform) ZoomOut(center Point) { t.ZoomAtPoint(1/ZoomStep, center) }

// PanBy translates the view.
func (t *Transform) PanBy(delta Point) {
	t.update(func() { t.pan = t.pan.Add(delta) })
}

// Wheel applies a wheel gesture: with Ctrl or Meta it zooms about the
// pointer, with Alt it pans horizontally. Other wheel events are left to the
// host and Wheel reports false.
func (t *Transform) Wheel(e WheelEvent) bool {
	switch {
	case e.Ctrl || e.Meta:
		t.ZoomAtPoint(math.Exp(-e.DeltaY*WheelSensitivity), e.Position)
		return true
	case e.Alt:
		t.PanBy(Point{X: -e.DeltaY})
		return true
	}
	return false
}

// Reset restores scale 1 and zero pan. The movement lock is kept.
func (t *Transform) Reset() {
	t.update(func() {
		t.scale = t.clamp(1)
		t.pan = Point{}
	})
}

// SetLocked sets the movement lock.
func (t *Transform) SetLocked(locked bool) {
	t.update(func() { t.locked = locked })
}

// ToggleLock flips the movement lock and returns the new value.
func (t *Transform) ToggleLock() bool {
	var locked bool
	t.update(func() {
		t.locked = !t.locked
		locked = t.locked
	})
	return locked
}

func (t *Transform) update(fn func()) {
	t.mu.Lock()
	fn()
	state := ViewState{Scale: t.scale, Pan: t.pan, MovementLocked: t.locked}
	listeners := append([]func(ViewState){}, t.onChange...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
