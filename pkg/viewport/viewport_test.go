package viewport

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func assertPointNear(t *testing.T, want, got Point, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps*math.Max(1, math.Abs(want.X)), msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, eps*math.Max(1, math.Abs(want.Y)), msgAndArgs...)
}

func randomTransform(rng *rand.Rand) *Transform {
	tr := New()
	tr.SetState(ViewState{
		Scale: DefaultMinScale + rng.Float64()*(DefaultMaxScale-DefaultMinScale),
		Pan:   Point{X: rng.Float64()*4000 - 2000, Y: rng.Float64()*4000 - 2000},
	})
	return tr
}

func TestTransform_Defaults(t *testing.T) {
	tr := New()
	assert.Equal(t, 1.0, tr.Scale())
	assert.Equal(t, Point{}, tr.Pan())
	assert.False(t, tr.Locked())
	assert.Equal(t, DefaultViewState(), tr.State())
}

func TestTransform_InverseMapping(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		tr := randomTransform(rng)
		p := Point{X: rng.Float64()*3000 - 500, Y: rng.Float64()*3000 - 500}

		assertPointNear(t, p, tr.WorldToScreen(tr.ScreenToWorld(p)), "iteration %d", i)
		assertPointNear(t, p, tr.ScreenToWorld(tr.WorldToScreen(p)), "iteration %d", i)
	}
}

func TestTransform_ZoomKeepsAnchor(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		tr := randomTransform(rng)
		p := Point{X: rng.Float64() * 1920, Y: rng.Float64() * 1080}
		before := tr.ScreenToWorld(p)

		tr.ZoomAtPoint(0.25+rng.Float64()*4, p)

		after := tr.ScreenToWorld(p)
		assert.InDelta(t, before.X, after.X, 1e-6, "iteration %d", i)
		assert.InDelta(t, before.Y, after.Y, 1e-6, "iteration %d", i)
	}
}

func TestTransform_ScaleAlwaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tr := New()
	center := Point{X: 400, Y: 300}
	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			tr.ZoomIn(center)
		case 1:
			tr.ZoomOut(center)
		case 2:
			tr.ZoomAtPoint(rng.Float64()*20, center)
		case 3:
			tr.Wheel(WheelEvent{Position: center, DeltaY: rng.Float64()*4000 - 2000, Ctrl: true})
		}
		s := tr.Scale()
		require.GreaterOrEqual(t, s, DefaultMinScale)
		require.LessOrEqual(t, s, DefaultMaxScale)
	}
}

func TestTransform_ZoomInOut(t *testing.T) {
	tr := New()
	center := Point{X: 500, Y: 400}

	tr.ZoomIn(center)
	assert.InDelta(t, 1.1, tr.Scale(), eps)
	// Centre stays fixed: pan = c - c*1.1
	assertPointNear(t, Point{X: -50, Y: -40}, tr.Pan())

	tr.ZoomOut(center)
	assert.InDelta(t, 1.0, tr.Scale(), eps)
	assertPointNear(t, Point{}, tr.Pan())
}

func TestTransform_ZoomAtBoundIsNoOpForPan(t *testing.T) {
	tr := New()
	tr.SetState(ViewState{Scale: DefaultMaxScale, Pan: Point{X: 10, Y: 20}})

	tr.ZoomAtPoint(2, Point{X: 300, Y: 300})

	assert.Equal(t, DefaultMaxScale, tr.Scale())
	assertPointNear(t, Point{X: 10, Y: 20}, tr.Pan())
}

func TestTransform_InvalidFactorIgnored(t *testing.T) {
	tr := New()
	tr.ZoomAtPoint(0, Point{})
	tr.ZoomAtPoint(-1, Point{})
	tr.ZoomAtPoint(math.NaN(), Point{})
	assert.Equal(t, 1.0, tr.Scale())
}

func TestTransform_Wheel(t *testing.T) {
	tr := New()

	assert.True(t, tr.Wheel(WheelEvent{Position: Point{X: 100, Y: 100}, DeltaY: -100, Meta: true}))
	assert.InDelta(t, math.Exp(0.2), tr.Scale(), eps)

	tr.Reset()
	assert.True(t, tr.Wheel(WheelEvent{DeltaY: 40, Alt: true}))
	assert.Equal(t, Point{X: -40}, tr.Pan())

	assert.False(t, tr.Wheel(WheelEvent{DeltaY: 40}))
	assert.Equal(t, Point{X: -40}, tr.Pan())
}

func TestTransform_PanUnconstrained(t *testing.T) {
	tr := New()
	tr.PanBy(Point{X: -1e6, Y: 1e6})
	assert.Equal(t, Point{X: -1e6, Y: 1e6}, tr.Pan())
}

func TestTransform_ResetKeepsLock(t *testing.T) {
	tr := New()
	tr.SetState(ViewState{Scale: 2, Pan: Point{X: 5, Y: 5}, MovementLocked: true})

	tr.Reset()

	assert.Equal(t, ViewState{Scale: 1, MovementLocked: true}, tr.State())
}

func TestTransform_SetStateClamps(t *testing.T) {
	tr := New()
	tr.SetState(ViewState{Scale: 50})
	assert.Equal(t, DefaultMaxScale, tr.Scale())
	tr.SetState(ViewState{Scale: -3})
	assert.Equal(t, DefaultMinScale, tr.Scale())
}

func TestTransform_OnChange(t *testing.T) {
	tr := New()
	var seen []ViewState
	tr.OnChange(func(v ViewState) { seen = append(seen, v) })

	tr.PanBy(Point{X: 1})
	assert.True(t, tr.ToggleLock())
	tr.Reset()

	require.Len(t, seen, 3)
	assert.Equal(t, ViewState{Scale: 1, Pan: Point{X: 1}}, seen[0])
	assert.True(t, seen[1].MovementLocked)
	assert.Equal(t, Point{}, seen[2].Pan)
}

func TestTransform_CustomBounds(t *testing.T) {
	tr := New(WithScaleBounds(0.5, 2))
	tr.ZoomAtPoint(100, Point{})
	assert.Equal(t, 2.0, tr.Scale())

	min, max := tr.Bounds()
	assert.Equal(t, 0.5, min)
	assert.Equal(t, 2.0, max)
}
