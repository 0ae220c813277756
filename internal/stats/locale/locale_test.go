package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/schedule"
)

func TestBuiltinTablesCoverCatalog(t *testing.T) {
	tab, err := New("en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, lang := range []string{"en", "de"} {
		tab.SetLanguage(lang)
		for _, c := range catalogs.Default().Categories() {
			if got := tab.Label(c.LabelKey); got == c.LabelKey {
				t.Fatalf("%s: missing label %q", lang, c.LabelKey)
			}
		}
	}
}

func TestLabel_FallsBackThenReturnsKey(t *testing.T) {
	tab, err := New("fr-FR")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tab.Language() != "fr" {
		t.Fatalf("lang=%q", tab.Language())
	}
	if got := tab.Label("category.water"); got != "Wasser" {
		t.Fatalf("fallback label=%q", got)
	}
	if got := tab.Label("no.such.key"); got != "no.such.key" {
		t.Fatalf("unknown key=%q", got)
	}
}

func TestSetLanguage_NotifiesOnlyOnChange(t *testing.T) {
	tab, err := New("en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := schedule.NewInbox()
	cancel := tab.Subscribe(in)

	tab.SetLanguage("EN")
	if b := in.Drain(); !b.Empty() {
		t.Fatalf("same language raised %+v", b)
	}
	tab.SetLanguage("de")
	if b := in.Drain(); !b.Language || b.Events != 1 {
		t.Fatalf("batch=%+v", b)
	}
	if got := tab.Label("category.crime_rate"); got != "Kriminalitätsrate" {
		t.Fatalf("label=%q", got)
	}

	cancel()
	tab.SetLanguage("en")
	if b := in.Drain(); !b.Empty() {
		t.Fatalf("cancelled subscriber got %+v", b)
	}
}

func TestLoadDir_OverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("category.taxis: Cabs\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nl.yaml"), []byte("category.water: Water\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tab, err := New("en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tab.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := tab.Label("category.taxis"); got != "Cabs" {
		t.Fatalf("label=%q", got)
	}
	if got := tab.Label("category.heating"); got != "Heating" {
		t.Fatalf("untouched label=%q", got)
	}
	langs := tab.Languages()
	if len(langs) != 3 || langs[0] != "de" || langs[2] != "nl" {
		t.Fatalf("languages=%v", langs)
	}
}
