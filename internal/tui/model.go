// Package tui hosts the dashboard panel in a terminal.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/dashboard"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/visibility"
)

const (
	defaultFrameInterval = 100 * time.Millisecond
	thresholdStep        = 5
	cellWidth            = 22
)

var (
	mutedText = lipgloss.Color("#8CA1AE")
	selected  = lipgloss.Color("#F6AE2D")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(mutedText)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle   = lipgloss.NewStyle().Foreground(mutedText).Italic(true)
)

type frameMsg struct{ at time.Time }

func frameTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(at time.Time) tea.Msg {
		return frameMsg{at: at}
	})
}

// Model drives a dashboard.Panel from bubbletea frames and maps keys onto
// configuration edits.
type Model struct {
	ctx    context.Context
	panel  *dashboard.Panel
	store  *config.Store
	labels *locale.Table

	frame   time.Duration
	last    time.Time
	focused bool
	cursor  int

	view      dashboard.View
	width     int
	height    int
	statusMsg string
	errorMsg  string
}

func NewModel(ctx context.Context, panel *dashboard.Panel, store *config.Store, labels *locale.Table, frame time.Duration) Model {
	if frame <= 0 {
		frame = defaultFrameInterval
	}
	return Model{
		ctx:     ctx,
		panel:   panel,
		store:   store,
		labels:  labels,
		frame:   frame,
		focused: true,
		view:    panel.View(),
	}
}

func (m Model) Init() tea.Cmd {
	return frameTickCmd(m.frame)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.BlurMsg:
		m.focused = false
		return m.step(0), nil

	case tea.FocusMsg:
		m.focused = true
		return m.step(0), nil

	case frameMsg:
		var dt time.Duration
		if !m.last.IsZero() {
			dt = msg.at.Sub(m.last)
		}
		m.last = msg.at
		return m.step(dt), frameTickCmd(m.frame)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) step(dt time.Duration) Model {
	m.panel.Frame(m.ctx, dt, m.focused)
	m.view = m.panel.View()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cats := m.panel.Catalog()
	if cats.Len() == 0 {
		if msg.String() == "q" || msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	}
	cat := cats.At(m.cursor)
	cfg := m.store.Current()
	var err error

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "right", "l", "down", "j":
		m.cursor = (m.cursor + 1) % cats.Len()
		return m, nil
	case "left", "h", "up", "k":
		m.cursor = (m.cursor - 1 + cats.Len()) % cats.Len()
		return m, nil
	case " ":
		enabled := !cfg.Enabled(cat.ID)
		err = m.store.SetEnabled(cat.ID, enabled)
		m.statusMsg = fmt.Sprintf("%s %s", m.labels.Label(cat.LabelKey), onOff(enabled))
	case "+", "=":
		err = m.store.SetThreshold(cat.ID, clamp(cfg.Category(cat.ID).Threshold+thresholdStep, 0, 100))
	case "-":
		err = m.store.SetThreshold(cat.ID, clamp(cfg.Category(cat.ID).Threshold-thresholdStep, 0, 100))
	case "]":
		err = m.store.SetColumns(cfg.Panel.Columns + 1)
	case "[":
		err = m.store.SetColumns(cfg.Panel.Columns - 1)
	case "a":
		err = m.store.Update(func(c *config.Config) { c.Panel.AutoHide = !c.Panel.AutoHide })
	case "t":
		err = m.store.Update(func(c *config.Config) {
			c.Panel.HideItemsBelowThreshold = !c.Panel.HideItemsBelowThreshold
		})
	case "n":
		err = m.store.Update(func(c *config.Config) {
			c.Panel.HideItemsNotAvailable = !c.Panel.HideItemsNotAvailable
		})
	case "L":
		m.labels.SetLanguage(nextLanguage(m.labels.Languages(), m.labels.Language()))
		m.statusMsg = "language " + m.labels.Language()
	case "r":
		m.panel.Reposition(m.ctx)
		m.view = m.panel.View()
		return m, nil
	default:
		return m, nil
	}
	if err != nil {
		m.errorMsg = err.Error()
	} else {
		m.errorMsg = ""
	}
	return m.step(0), nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.view.Title))
	b.WriteString("\n")

	switch {
	case m.view.Opacity == 0:
		b.WriteString(statusStyle.Render("(auto-hidden)"))
	case !m.view.Shown:
		b.WriteString(statusStyle.Render(m.labels.Label("panel.empty")))
	default:
		b.WriteString(m.renderGrid())
	}
	b.WriteString("\n")
	b.WriteString(m.renderSelection())
	b.WriteString("\n")
	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render(m.errorMsg))
	} else if m.statusMsg != "" {
		b.WriteString(statusStyle.Render(m.statusMsg))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("←/→ select · space toggle · +/- threshold · [/] columns · a auto-hide · t/n hide rules · L language · r reposition · q quit"))
	return b.String()
}

// renderGrid lays the visible widgets out by their layout cells.
func (m Model) renderGrid() string {
	rows := map[int][]dashboard.Widget{}
	for _, w := range m.view.Visible() {
		rows[w.Cell.Row] = append(rows[w.Cell.Row], w)
	}
	rowIdx := make([]int, 0, len(rows))
	for r := range rows {
		rowIdx = append(rowIdx, r)
	}
	sort.Ints(rowIdx)

	bg := lipgloss.Color(hexRGB(m.view.Background))
	selectedID := catalogs.ID("")
	if cats := m.panel.Catalog(); cats.Len() > 0 {
		selectedID = cats.At(m.cursor).ID
	}

	lines := make([]string, 0, len(rowIdx))
	for _, r := range rowIdx {
		ws := rows[r]
		sort.Slice(ws, func(i, j int) bool { return ws[i].Cell.Column < ws[j].Cell.Column })
		boxes := make([]string, 0, len(ws))
		for _, w := range ws {
			border := lipgloss.Color(hexRGB(w.HoverColor))
			if w.Category.ID == selectedID {
				border = selected
			}
			style := lipgloss.NewStyle().
				Width(cellWidth).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(border).
				Background(bg).
				Foreground(lipgloss.Color(hexRGB(w.Color)))
			boxes = append(boxes, style.Render(truncate(w.Label, cellWidth)+"\n"+w.Text))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderSelection() string {
	cats := m.panel.Catalog()
	if cats.Len() == 0 {
		return ""
	}
	cat := cats.At(m.cursor)
	cc := m.store.Current().Category(cat.ID)
	text := "-%"
	for _, w := range m.view.Widgets {
		if w.Category.ID == cat.ID {
			text = w.Sample.String()
			break
		}
	}
	return statusStyle.Render(fmt.Sprintf("▸ %s [%s] %s threshold %d%% · %s",
		m.labels.Label(cat.LabelKey), cat.ID, onOff(cc.Enabled), cc.Threshold, text))
}

func hexRGB(c visibility.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func nextLanguage(langs []string, cur string) string {
	if len(langs) == 0 {
		return cur
	}
	for i, l := range langs {
		if l == cur {
			return langs[(i+1)%len(langs)]
		}
	}
	return langs[0]
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
