package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/layout"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/visibility"
)

// ErrInvalid wraps every configuration contract violation.
var ErrInvalid = errors.New("invalid configuration")

type Category struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	Threshold int  `yaml:"threshold" json:"threshold"`
}

type Colors struct {
	Background string `yaml:"background" json:"background"`
	Foreground string `yaml:"foreground" json:"foreground"`
	Accent     string `yaml:"accent" json:"accent"`
}

type Panel struct {
	Columns     int `yaml:"columns" json:"columns"`
	ItemWidth   int `yaml:"item_width" json:"item_width"`
	ItemHeight  int `yaml:"item_height" json:"item_height"`
	ItemPadding int `yaml:"item_padding" json:"item_padding"`
	PositionX   int `yaml:"position_x" json:"position_x"`
	PositionY   int `yaml:"position_y" json:"position_y"`
	// UpdateEverySeconds of 0 disables sampling.
	UpdateEverySeconds int `yaml:"update_every_seconds" json:"update_every_seconds"`

	HideItemsNotAvailable   bool `yaml:"hide_items_not_available" json:"hide_items_not_available"`
	HideItemsBelowThreshold bool `yaml:"hide_items_below_threshold" json:"hide_items_below_threshold"`
	AutoHide                bool `yaml:"auto_hide" json:"auto_hide"`

	Colors Colors `yaml:"colors" json:"colors"`
}

type Config struct {
	Panel      Panel                    `yaml:"panel" json:"panel"`
	Categories map[catalogs.ID]Category `yaml:"categories" json:"categories"`
}

// document mirrors the YAML file. Category fields are optional so a partial
// entry keeps the defaults it does not mention.
type document struct {
	Panel      Panel                         `yaml:"panel"`
	Categories map[catalogs.ID]categoryPatch `yaml:"categories"`
}

type categoryPatch struct {
	Enabled   *bool `yaml:"enabled"`
	Threshold *int  `yaml:"threshold"`
}

func Defaults() Config {
	cfg := Config{
		Panel: Panel{
			Columns:            4,
			ItemWidth:          60,
			ItemHeight:         35,
			ItemPadding:        2,
			PositionX:          0,
			PositionY:          50,
			UpdateEverySeconds: 1,
			Colors: Colors{
				Background: "#3A3A3AE6",
				Foreground: "#FFFFFFFF",
				Accent:     "#FF4040FF",
			},
		},
	}
	cfg.Normalize()
	return cfg
}

// Load reads a YAML configuration file. An empty path yields Defaults().
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	cfg, err := Parse(b)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, checks it against the document
// schema and then validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Defaults()
	if err := validateDocument(b); err != nil {
		return cfg, err
	}
	doc := document{Panel: cfg.Panel}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return cfg, fmt.Errorf("config yaml: %w", err)
	}
	cfg.Panel = doc.Panel
	for id, p := range doc.Categories {
		c, ok := cfg.Categories[id]
		if !ok {
			return cfg, fmt.Errorf("%w: unknown category %q", ErrInvalid, id)
		}
		if p.Enabled != nil {
			c.Enabled = *p.Enabled
		}
		if p.Threshold != nil {
			c.Threshold = *p.Threshold
		}
		cfg.Categories[id] = c
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize fills in every catalog category that is missing.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if c.Categories == nil {
		c.Categories = map[catalogs.ID]Category{}
	}
	for _, cat := range catalogs.Default().Categories() {
		if _, ok := c.Categories[cat.ID]; !ok {
			c.Categories[cat.ID] = Category{Enabled: true, Threshold: cat.DefaultThreshold}
		}
	}
	c.Panel.Colors.Background = strings.TrimSpace(c.Panel.Colors.Background)
	c.Panel.Colors.Foreground = strings.TrimSpace(c.Panel.Colors.Foreground)
	c.Panel.Colors.Accent = strings.TrimSpace(c.Panel.Colors.Accent)
}

func (c Config) Validate() error {
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Panel.UpdateEverySeconds < 0 {
		return fmt.Errorf("%w: update_every_seconds must be >= 0", ErrInvalid)
	}
	for _, s := range []struct{ name, v string }{
		{"background", c.Panel.Colors.Background},
		{"foreground", c.Panel.Colors.Foreground},
		{"accent", c.Panel.Colors.Accent},
	} {
		if _, err := ParseColor(s.v); err != nil {
			return fmt.Errorf("%w: colors.%s: %w", ErrInvalid, s.name, err)
		}
	}
	ids := make([]string, 0, len(c.Categories))
	for id := range c.Categories {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !catalogs.Default().Has(catalogs.ID(id)) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalid, id)
		}
		th := c.Categories[catalogs.ID(id)].Threshold
		if th < 0 || th > 100 {
			return fmt.Errorf("%w: category %q threshold %d outside 0..100", ErrInvalid, id, th)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.Categories = make(map[catalogs.ID]Category, len(c.Categories))
	for k, v := range c.Categories {
		out.Categories[k] = v
	}
	return out
}

// Category returns the settings for id. Unknown ids read as disabled.
func (c Config) Category(id catalogs.ID) Category {
	return c.Categories[id]
}

func (c Config) Enabled(id catalogs.ID) bool { return c.Categories[id].Enabled }

func (c Config) Layout() layout.Params {
	return layout.Params{
		Columns:    c.Panel.Columns,
		ItemWidth:  c.Panel.ItemWidth,
		ItemHeight: c.Panel.ItemHeight,
		Padding:    c.Panel.ItemPadding,
	}
}

func (c Config) Rules() visibility.Rules {
	return visibility.Rules{
		HideNotAvailable:   c.Panel.HideItemsNotAvailable,
		HideBelowThreshold: c.Panel.HideItemsBelowThreshold,
	}
}

// Palette returns the text colours. The config must be valid.
func (c Config) Palette() visibility.Palette {
	fg, _ := ParseColor(c.Panel.Colors.Foreground)
	accent, _ := ParseColor(c.Panel.Colors.Accent)
	return visibility.Palette{Foreground: fg, Accent: accent}
}

func (c Config) Background() visibility.Color {
	bg, _ := ParseColor(c.Panel.Colors.Background)
	return bg
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.Panel.UpdateEverySeconds) * time.Second
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
