// Package locale maps label keys to display strings for the active language.
package locale

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/schedule"
)

// FallbackLanguage is consulted when the active language lacks a key.
const FallbackLanguage = "de"

//go:embed lang/*.yaml
var builtin embed.FS

// Subscriber receives LanguageChanged events.
type Subscriber interface {
	Post(e schedule.Event)
}

// Table is a key to string lookup with a fallback language. Safe for
// concurrent use.
type Table struct {
	mu       sync.RWMutex
	lang     string
	fallback string
	strings  map[string]map[string]string
	subs     map[int]Subscriber
	next     int
}

// New returns a table loaded with the built-in languages, set to lang.
func New(lang string) (*Table, error) {
	t := &Table{
		fallback: FallbackLanguage,
		strings:  map[string]map[string]string{},
		subs:     map[int]Subscriber{},
	}
	entries, err := builtin.ReadDir("lang")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		b, err := builtin.ReadFile(path.Join("lang", e.Name()))
		if err != nil {
			return nil, err
		}
		if err := t.Add(strings.TrimSuffix(e.Name(), ".yaml"), b); err != nil {
			return nil, err
		}
	}
	lang = normalize(lang)
	if lang == "" {
		lang = "en"
	}
	t.lang = lang
	return t, nil
}

// Add merges a YAML key/value document into language lang.
func (t *Table) Add(lang string, b []byte) error {
	lang = normalize(lang)
	if lang == "" {
		return fmt.Errorf("locale: empty language code")
	}
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("locale %s: %w", lang, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	dst := t.strings[lang]
	if dst == nil {
		dst = make(map[string]string, len(m))
		t.strings[lang] = dst
	}
	for k, v := range m {
		dst[k] = v
	}
	return nil
}

// LoadDir adds every <lang>.yaml file found in dir.
func (t *Table) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := t.Add(strings.TrimSuffix(filepath.Base(f), ".yaml"), b); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Languages lists the loaded language codes.
func (t *Table) Languages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.strings))
	for l := range t.strings {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Label resolves key in the active language, then the fallback. Unknown keys
// are returned unchanged.
func (t *Table) Label(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.strings[t.lang][key]; ok {
		return s
	}
	if s, ok := t.strings[t.fallback][key]; ok {
		return s
	}
	return key
}

// SetLanguage switches the active language and notifies subscribers. A
// language without a table still resolves through the fallback.
func (t *Table) SetLanguage(lang string) {
	lang = normalize(lang)
	if lang == "" {
		return
	}
	t.mu.Lock()
	if t.lang == lang {
		t.mu.Unlock()
		return
	}
	t.lang = lang
	subs := make([]Subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.Post(schedule.LanguageChanged{})
	}
}

func (t *Table) Subscribe(sub Subscriber) func() {
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = sub
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
