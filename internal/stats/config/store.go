package config

import (
	"sync"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/schedule"
)

// Subscriber receives change events. *schedule.Inbox implements it.
type Subscriber interface {
	Post(e schedule.Event)
}

// Store owns the active configuration and raises change events when it is
// replaced. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	subs map[int]Subscriber
	next int
}

func NewStore(cfg Config) (*Store, error) {
	cfg = cfg.Clone()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg, subs: map[int]Subscriber{}}, nil
}

// Current returns a copy of the active configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Subscribe registers sub for change events and returns its cancel func.
func (s *Store) Subscribe(sub Subscriber) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = sub
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Apply validates next and makes it current. Invalid configurations are
// rejected and the active one is kept.
func (s *Store) Apply(next Config) error {
	s.mu.Lock()
	events, subs, err := s.swap(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	notify(events, subs)
	return nil
}

// Update applies fn to a copy of the current config. The read, edit and
// swap happen under one lock, so concurrent edits never overwrite each other.
func (s *Store) Update(fn func(c *Config)) error {
	s.mu.Lock()
	next := s.cfg.Clone()
	fn(&next)
	events, subs, err := s.swap(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	notify(events, subs)
	return nil
}

// swap validates next and installs it. s.mu must be held.
func (s *Store) swap(next Config) ([]schedule.Event, []Subscriber, error) {
	next = next.Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, nil, err
	}
	events := Diff(s.cfg, next)
	s.cfg = next
	subs := make([]Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return events, subs, nil
}

func notify(events []schedule.Event, subs []Subscriber) {
	for _, e := range events {
		for _, sub := range subs {
			sub.Post(e)
		}
	}
}

func (s *Store) SetEnabled(id catalogs.ID, enabled bool) error {
	return s.Update(func(c *Config) {
		cat := c.Categories[id]
		cat.Enabled = enabled
		c.Categories[id] = cat
	})
}

func (s *Store) SetThreshold(id catalogs.ID, threshold int) error {
	return s.Update(func(c *Config) {
		cat := c.Categories[id]
		cat.Threshold = threshold
		c.Categories[id] = cat
	})
}

func (s *Store) SetColumns(n int) error {
	return s.Update(func(c *Config) { c.Panel.Columns = n })
}

func (s *Store) MoveTo(x, y int) error {
	return s.Update(func(c *Config) { c.Panel.PositionX, c.Panel.PositionY = x, y })
}

// Diff lists the events that moving from prev to next raises.
func Diff(prev, next Config) []schedule.Event {
	var events []schedule.Event
	geometry := prev.Layout() != next.Layout()
	layoutChanged := geometry ||
		prev.Panel.HideItemsNotAvailable != next.Panel.HideItemsNotAvailable ||
		prev.Panel.HideItemsBelowThreshold != next.Panel.HideItemsBelowThreshold ||
		prev.Panel.AutoHide != next.Panel.AutoHide ||
		prev.Panel.UpdateEverySeconds != next.Panel.UpdateEverySeconds ||
		prev.Panel.Colors != next.Panel.Colors ||
		!sameCategories(prev.Categories, next.Categories)
	if layoutChanged {
		events = append(events, schedule.LayoutChanged{Geometry: geometry})
	}
	if prev.Panel.PositionX != next.Panel.PositionX || prev.Panel.PositionY != next.Panel.PositionY {
		events = append(events, schedule.PositionChanged{})
	}
	return events
}

func sameCategories(a, b map[catalogs.ID]Category) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
