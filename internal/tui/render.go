package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/boardify/pkg/card"
	"github.com/recera/boardify/pkg/viewport"
)

const footerHeight = 1

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3C3C6E")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

// View renders the board
func (m *Model) View() string {
	switch {
	case m.snap.Loading:
		return m.place(fmt.Sprintf("%s Loading cards...", m.spinner.View()))
	case m.blocked():
		return m.place(lipgloss.JoinVertical(lipgloss.Center,
			errorStyle.Render(m.snap.Error),
			"",
			mutedStyle.Render("Press r to retry, q to quit"),
		))
	}

	header := m.renderHeader()
	_, h := m.canvasSize()
	rows := int(h / CellHeight)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderCanvas(m.width, rows))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) headerHeight() int {
	return lipgloss.Height(m.renderHeader())
}

func (m *Model) renderHeader() string {
	lock := "unlocked"
	if m.view.Locked() {
		lock = "locked"
	}
	top := strings.Join([]string{
		titleStyle.Render("Boardify"),
		mutedStyle.Render(fmt.Sprintf("%d cards", len(m.snap.Cards))),
		fmt.Sprintf("%d%%", int(math.Round(m.view.Scale()*100))),
		mutedStyle.Render(lock),
	}, "  ")

	lines := []string{top}
	if !m.collapsed {
		badges := make([]string, 0, len(m.snap.Stats))
		for _, s := range m.snap.Stats {
			badges = append(badges, badgeStyle.Render(fmt.Sprintf("%s %d", s.Name, s.Count)))
		}
		if len(badges) > 0 {
			lines = append(lines, strings.Join(badges, " "))
		}
	}
	if m.snap.Error != "" {
		lines = append(lines, errorStyle.Render(m.snap.Error))
	}
	if m.stale {
		lines = append(lines, statusStyle.Render("Card data changed. Press r to reload."))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	switch {
	case m.snap.Notice != "":
		return errorStyle.Render(m.snap.Notice)
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return m.help.View(m.keys)
}

// renderCanvas draws the cards into a width x rows grid of cells. Cards later
// in the list are drawn on top.
func (m *Model) renderCanvas(width, rows int) string {
	if width <= 0 || rows <= 0 {
		return ""
	}
	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}

	scale := m.view.Scale()
	cw := max(2, int(math.Round(m.opts.CardWidth*scale/CellWidth)))
	ch := max(2, int(math.Round(m.opts.CardHeight*scale/CellHeight)))

	for _, c := range m.snap.Cards {
		tl := m.view.WorldToScreen(viewport.Point{X: c.X, Y: c.Y})
		x := int(math.Floor(tl.X / CellWidth))
		y := int(math.Floor(tl.Y / CellHeight))
		border := lipgloss.RoundedBorder()
		if c.ID == m.dragging {
			border = lipgloss.ThickBorder()
		}
		drawCard(grid, c, x, y, cw, ch, border)
	}

	out := make([]string, rows)
	for y, row := range grid {
		out[y] = string(row)
	}
	return strings.Join(out, "\n")
}

func drawCard(grid [][]rune, c card.Card, x, y, w, h int, border lipgloss.Border) {
	set := func(cx, cy int, r rune) {
		if cy < 0 || cy >= len(grid) || cx < 0 || cx >= len(grid[cy]) {
			return
		}
		grid[cy][cx] = r
	}
	first := func(s string) rune { return []rune(s)[0] }

	for cy := y; cy < y+h; cy++ {
		for cx := x; cx < x+w; cx++ {
			var r rune
			switch {
			case cy == y && cx == x:
				r = first(border.TopLeft)
			case cy == y && cx == x+w-1:
				r = first(border.TopRight)
			case cy == y+h-1 && cx == x:
				r = first(border.BottomLeft)
			case cy == y+h-1 && cx == x+w-1:
				r = first(border.BottomRight)
			case cy == y:
				r = first(border.Top)
			case cy == y+h-1:
				r = first(border.Bottom)
			case cx == x:
				r = first(border.Left)
			case cx == x+w-1:
				r = first(border.Right)
			default:
				r = ' '
			}
			set(cx, cy, r)
		}
	}

	inner := w - 2
	if inner <= 0 {
		return
	}
	lines := []string{c.Title, "[" + c.Domain + "]", ""}
	lines = append(lines, wrap(c.Description, inner)...)
	for i, line := range lines {
		cy := y + 1 + i
		if cy >= y+h-1 {
			break
		}
		for j, r := range []rune(line) {
			if j >= inner {
				break
			}
			set(x+1+j, cy, r)
		}
	}
}

// wrap breaks text into lines of at most width runes on word boundaries.
// Words longer than width are cut.
func wrap(text string, width int) []string {
	var (
		lines []string
		line  []rune
	)
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(w) > width {
			w = w[:width]
		}
		switch {
		case len(line) == 0:
			line = w
		case len(line)+1+len(w) <= width:
			line = append(append(line, ' '), w...)
		default:
			lines = append(lines, string(line))
			line = w
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
