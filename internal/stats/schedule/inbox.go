package schedule

import "sync"

// Event is a change notification raised by configuration or locale owners.
type Event interface {
	event()
}

// LayoutChanged reports a change to toggles, thresholds, colours or layout
// parameters. Geometry is set when columns, item size or padding changed.
type LayoutChanged struct {
	Geometry bool
}

// PositionChanged reports a new configured panel position.
type PositionChanged struct{}

// LanguageChanged reports that display labels must be refreshed.
type LanguageChanged struct{}

func (LayoutChanged) event()   {}
func (PositionChanged) event() {}
func (LanguageChanged) event() {}

// Batch is the coalesced result of one Drain. Each flag is handled at most
// once, so a batch yields at most one layout pass.
type Batch struct {
	Layout   bool
	Geometry bool
	Position bool
	Language bool
	Events   int
}

func (b Batch) Empty() bool { return b.Events == 0 }

// Inbox is the single dispatch point for events. Post may be called from any
// goroutine; Drain belongs to the dashboard's goroutine.
type Inbox struct {
	mu      sync.Mutex
	pending []Event
	notify  chan struct{}
}

func NewInbox() *Inbox {
	return &Inbox{notify: make(chan struct{}, 1)}
}

func (in *Inbox) Post(e Event) {
	if e == nil {
		return
	}
	in.mu.Lock()
	in.pending = append(in.pending, e)
	in.mu.Unlock()
	select {
	case in.notify <- struct{}{}:
	default:
	}
}

// Notify is signalled after Post. Readers must still Drain.
func (in *Inbox) Notify() <-chan struct{} { return in.notify }

func (in *Inbox) Drain() Batch {
	in.mu.Lock()
	pending := in.pending
	in.pending = nil
	in.mu.Unlock()

	var b Batch
	for _, e := range pending {
		b.Events++
		switch ev := e.(type) {
		case LayoutChanged:
			b.Layout = true
			b.Geometry = b.Geometry || ev.Geometry
		case PositionChanged:
			b.Position = true
		case LanguageChanged:
			b.Language = true
		}
	}
	return b
}
