package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/boardify/pkg/board"
	"github.com/recera/boardify/pkg/drag"
	"github.com/recera/boardify/pkg/viewport"
)

// wheelDelta is the DeltaY reported for one wheel notch.
const wheelDelta = 100

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, board.ErrSuperseded) {
			m.opts.Logger.WithError(msg.err).Debug("Load finished with error")
		}
		return m, nil

	case resetMsg:
		m.refresh()
		if msg.err == nil {
			m.status = "Layout reset"
		}
		return m, nil

	case staleMsg:
		m.stale = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	// Only reload is available until the board has data.
	if m.blocked() {
		if key.Matches(msg, m.keys.Retry) && !m.snap.Loading {
			m.snap.Loading = true
			return m, tea.Batch(m.spinner.Tick, m.retry())
		}
		return m, nil
	}

	w, h := m.canvasSize()
	center := viewport.Point{X: w / 2, Y: h / 2}

	switch {
	case key.Matches(msg, m.keys.ZoomIn):
		m.view.ZoomIn(center)
	case key.Matches(msg, m.keys.ZoomOut):
		m.view.ZoomOut(center)
	case key.Matches(msg, m.keys.ZoomReset):
		m.view.Reset()
	case key.Matches(msg, m.keys.Lock):
		if m.view.ToggleLock() {
			m.status = "Movement locked"
		} else {
			m.status = "Movement unlocked"
		}
	case key.Matches(msg, m.keys.Up):
		m.view.PanBy(viewport.Point{Y: PanStep})
	case key.Matches(msg, m.keys.Down):
		m.view.PanBy(viewport.Point{Y: -PanStep})
	case key.Matches(msg, m.keys.Left):
		m.view.PanBy(viewport.Point{X: PanStep})
	case key.Matches(msg, m.keys.Right):
		m.view.PanBy(viewport.Point{X: -PanStep})
	case key.Matches(msg, m.keys.Collapse):
		m.collapsed = !m.collapsed
	case key.Matches(msg, m.keys.Export):
		path, err := m.manager.ExportLayoutFile(m.opts.ExportDir)
		if err == nil {
			m.status = fmt.Sprintf("Exported %s", path)
		}
		m.refresh()
	case key.Matches(msg, m.keys.Reset):
		m.status = ""
		return m, m.reset()
	case key.Matches(msg, m.keys.Retry):
		m.stale = false
		return m, m.load()
	case key.Matches(msg, m.keys.Dismiss):
		m.status = ""
		m.manager.DismissNotice()
		m.refresh()
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.blocked() {
		return
	}
	p := m.toScreen(msg.X, msg.Y)

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := float64(wheelDelta)
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -delta
		}
		m.view.Wheel(viewport.WheelEvent{Position: p, DeltaY: delta, Ctrl: msg.Ctrl, Alt: msg.Alt})
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		id, ok := m.cardAt(p)
		if !ok {
			return
		}
		if ctrl := m.drags[id]; ctrl != nil && ctrl.PointerDown(p) {
			m.dragging = id
		}
	case tea.MouseActionMotion:
		m.bus.Dispatch(drag.Event{Kind: drag.PointerMove, Position: p})
	case tea.MouseActionRelease:
		m.bus.Dispatch(drag.Event{Kind: drag.PointerUp, Position: p})
		m.dragging = -1
	}
}

// blocked reports whether the loading or error view is showing.
func (m *Model) blocked() bool {
	return m.snap.Loading || (m.snap.Error != "" && len(m.snap.Cards) == 0)
}
