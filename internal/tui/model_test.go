package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/dashboard"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
)

func newModel(t *testing.T) (Model, *config.Store) {
	t.Helper()
	world, err := city.NewState(city.Capture{
		CityName: "Testville",
		Districts: []city.District{{
			ID:                     city.CityDistrict,
			ElectricityCapacity:    100,
			ElectricityConsumption: 30,
		}},
	})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	cfg := config.Defaults()
	cfg.Panel.HideItemsNotAvailable = true
	store, err := config.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	labels, err := locale.New("en")
	if err != nil {
		t.Fatalf("locale: %v", err)
	}
	p, err := dashboard.New(world, store, labels)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	t.Cleanup(p.Close)
	return NewModel(context.Background(), p, store, labels, 0), store
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestFrameRendersVisibleWidgets(t *testing.T) {
	m, _ := newModel(t)
	next, cmd := m.Update(frameMsg{at: time.Now()})
	if cmd == nil {
		t.Fatalf("expected next frame to be scheduled")
	}
	out := next.(Model).View()
	if !strings.Contains(out, "Electricity") || !strings.Contains(out, "30%") {
		t.Fatalf("view missing widget:\n%s", out)
	}
	if strings.Contains(out, "Heating") {
		t.Fatalf("unavailable heating rendered:\n%s", out)
	}
}

func TestSpaceTogglesSelectedCategory(t *testing.T) {
	m, store := newModel(t)
	m = update(t, m, frameMsg{at: time.Now()})
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if store.Current().Enabled(catalogs.Electricity) {
		t.Fatalf("electricity still enabled")
	}
	for _, w := range m.view.Visible() {
		if w.Category.ID == catalogs.Electricity {
			t.Fatalf("disabled electricity still visible")
		}
	}
	if !strings.Contains(m.View(), "off") {
		t.Fatalf("selection line should report off:\n%s", m.View())
	}
}

func TestThresholdAndColumnKeys(t *testing.T) {
	m, store := newModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	if got := store.Current().Category(catalogs.Electricity).Threshold; got != 85 {
		t.Fatalf("threshold=%d", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	if got := store.Current().Panel.Columns; got != 3 {
		t.Fatalf("columns=%d", got)
	}
	for i := 0; i < 3; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'['}})
	}
	if got := store.Current().Panel.Columns; got != 1 {
		t.Fatalf("columns=%d after clamped edit", got)
	}
	if m.errorMsg == "" {
		t.Fatalf("zero columns should surface an error")
	}
}

func TestCursorWrapsAndLanguageCycles(t *testing.T) {
	m, _ := newModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.cursor != m.panel.Catalog().Len()-1 {
		t.Fatalf("cursor=%d", m.cursor)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'L'}})
	if m.labels.Language() != "de" {
		t.Fatalf("language=%q", m.labels.Language())
	}
	m = update(t, m, frameMsg{at: time.Now()})
	if !strings.Contains(m.View(), "Stadtstatistik") {
		t.Fatalf("title not localised:\n%s", m.View())
	}
}

func TestBlurHidesWhenAutoHide(t *testing.T) {
	m, store := newModel(t)
	if err := store.Update(func(c *config.Config) { c.Panel.AutoHide = true }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	m = update(t, m, tea.BlurMsg{})
	if !strings.Contains(m.View(), "auto-hidden") {
		t.Fatalf("expected auto-hidden view:\n%s", m.View())
	}
	m = update(t, m, tea.FocusMsg{})
	if strings.Contains(m.View(), "auto-hidden") {
		t.Fatalf("focus should reveal the panel")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
