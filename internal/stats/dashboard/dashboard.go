// Package dashboard composes sampling, visibility and layout into the widget
// panel a host renders once per frame.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/aggregate"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/layout"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/schedule"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/visibility"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/telemetry"
)

// Sink receives a view whenever the panel's presentation changed.
type Sink interface {
	Publish(v View)
}

type Option func(*Panel)

func WithLogger(l *zap.Logger) Option {
	return func(p *Panel) {
		if l != nil {
			p.log = l
		}
	}
}

func WithInstruments(in *telemetry.Instruments) Option {
	return func(p *Panel) { p.tel = in }
}

// WithSink adds a view consumer. May be given more than once.
func WithSink(s Sink) Option {
	return func(p *Panel) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

// WithAggregatorOptions forwards options to the underlying aggregator.
func WithAggregatorOptions(opts ...aggregate.Option) Option {
	return func(p *Panel) { p.aggOpts = append(p.aggOpts, opts...) }
}

// Widget is one category's presentation.
type Widget struct {
	Category catalogs.Category
	Sample   metric.Sample
	Visible  bool
	// Cell, Position and Size are meaningful only while Visible.
	Cell       layout.Cell
	Position   layout.Point
	Size       layout.Size
	Text       string
	Label      string
	Color      visibility.Color
	HoverColor visibility.Color
}

// View is an immutable copy of the panel for renderers.
type View struct {
	Seq           uint64
	CatalogDigest string
	// Shown is false when no widget is visible.
	Shown      bool
	Opacity    float64
	Position   layout.Point
	Size       layout.Size
	Background visibility.Color
	Title      string
	// LayoutPasses counts layout passes since construction.
	LayoutPasses uint64
	// Cycles counts completed sampling cycles.
	Cycles  uint64
	Widgets []Widget
}

// Visible returns the visible widgets in display order.
func (v View) Visible() []Widget {
	out := make([]Widget, 0, len(v.Widgets))
	for _, w := range v.Widgets {
		if w.Visible {
			out = append(out, w)
		}
	}
	return out
}

// Panel owns the widgets of one session. It is driven from a single
// goroutine; configuration and language changes reach it through its inbox.
type Panel struct {
	world   city.Provider
	store   *config.Store
	labels  *locale.Table
	catalog *catalogs.Catalog
	agg     *aggregate.Aggregator
	aggOpts []aggregate.Option

	inbox   *schedule.Inbox
	timer   *schedule.Timer
	cancels []func()

	cfg      config.Config
	engine   visibility.Engine
	widgets  []Widget
	shown    bool
	size     layout.Size
	position layout.Point
	opacity  float64

	seq          uint64
	layoutPasses uint64
	cycles       uint64
	dirty        bool
	presented    bool
	closed       bool

	log   *zap.Logger
	tel   *telemetry.Instruments
	sinks []Sink
}

// New builds the panel for the current session. The session catalog is
// filtered by the world's features here and never again.
func New(world city.Provider, store *config.Store, labels *locale.Table, opts ...Option) (*Panel, error) {
	if world == nil || store == nil || labels == nil {
		return nil, errors.New("dashboard: world, store and labels are required")
	}
	cfg := store.Current()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	p := &Panel{
		world:   world,
		store:   store,
		labels:  labels,
		catalog: catalogs.Default().Filter(world.HasFeature),
		inbox:   schedule.NewInbox(),
		timer:   schedule.NewTimer(cfg.Interval()),
		cfg:     cfg,
		engine:  visibility.Engine{Rules: cfg.Rules(), Palette: cfg.Palette()},
		opacity: 1,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	aggOpts := append([]aggregate.Option{aggregate.WithLogger(p.log), aggregate.WithInstruments(p.tel)}, p.aggOpts...)
	p.agg = aggregate.New(world, p.catalog, aggOpts...)

	p.widgets = make([]Widget, p.catalog.Len())
	for i := 0; i < p.catalog.Len(); i++ {
		cat := p.catalog.At(i)
		p.widgets[i] = Widget{
			Category: cat,
			Sample:   metric.Unavailable(),
			Label:    labels.Label(cat.LabelKey),
		}
	}
	p.position = layout.Point{X: cfg.Panel.PositionX, Y: cfg.Panel.PositionY}
	p.cancels = append(p.cancels, store.Subscribe(p.inbox), labels.Subscribe(p.inbox))
	p.dirty = true

	p.log.Info("dashboard ready",
		zap.Int("categories", p.catalog.Len()),
		zap.String("catalog_digest", p.catalog.Digest),
		zap.Duration("interval", cfg.Interval()),
	)
	return p, nil
}

// Catalog returns the session catalog.
func (p *Panel) Catalog() *catalogs.Catalog { return p.catalog }

// Inbox is the panel's event inbox.
func (p *Panel) Inbox() *schedule.Inbox { return p.inbox }

// Frame runs one host frame: pending events, auto-hide opacity, then a
// sampling cycle when the timer is due. The first frame also classifies
// every widget against its initial unavailable sample, so a panel with
// sampling disabled still presents its widgets.
func (p *Panel) Frame(ctx context.Context, dt time.Duration, pointerInside bool) {
	if p.closed {
		return
	}
	if b := p.inbox.Drain(); !b.Empty() {
		p.handle(ctx, b)
	}
	if !p.presented {
		p.presented = true
		if p.classify() {
			p.arrange(ctx, "init")
		}
	}
	p.setOpacity(pointerInside)
	if p.timer.Advance(dt) {
		p.sample(ctx)
	}
	p.publish()
}

// Reposition moves the container to the configured position and forces a
// layout pass.
func (p *Panel) Reposition(ctx context.Context) {
	if p.closed {
		return
	}
	p.cfg = p.store.Current()
	p.position = layout.Point{X: p.cfg.Panel.PositionX, Y: p.cfg.Panel.PositionY}
	p.arrange(ctx, "reposition")
	p.publish()
}

// View returns a copy of the current presentation.
func (p *Panel) View() View {
	v := View{
		Seq:           p.seq,
		CatalogDigest: p.catalog.Digest,
		Shown:         p.shown,
		Opacity:       p.opacity,
		Position:      p.position,
		Size:          p.size,
		Background:    p.cfg.Background(),
		Title:         p.labels.Label("panel.title"),
		LayoutPasses:  p.layoutPasses,
		Cycles:        p.cycles,
		Widgets:       make([]Widget, len(p.widgets)),
	}
	copy(v.Widgets, p.widgets)
	return v
}

// Close drops the event subscriptions. Further frames are ignored.
func (p *Panel) Close() {
	if p.closed {
		return
	}
	p.closed = true
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
}

func (p *Panel) setOpacity(pointerInside bool) {
	o := 1.0
	if p.cfg.Panel.AutoHide && !pointerInside {
		o = 0
	}
	if o != p.opacity {
		p.opacity = o
		p.dirty = true
	}
}

func (p *Panel) handle(ctx context.Context, b schedule.Batch) {
	if b.Layout || b.Position {
		p.cfg = p.store.Current()
	}
	if b.Layout {
		p.engine = visibility.Engine{Rules: p.cfg.Rules(), Palette: p.cfg.Palette()}
		p.timer.SetInterval(p.cfg.Interval())
		flipped := p.classify()
		switch {
		case b.Geometry:
			p.arrange(ctx, "geometry")
		case flipped:
			p.arrange(ctx, "config")
		}
		p.dirty = true
	}
	if b.Position {
		p.position = layout.Point{X: p.cfg.Panel.PositionX, Y: p.cfg.Panel.PositionY}
		p.dirty = true
	}
	if b.Language {
		for i := range p.widgets {
			p.widgets[i].Label = p.labels.Label(p.widgets[i].Category.LabelKey)
		}
		p.dirty = true
	}
}

func (p *Panel) sample(ctx context.Context) {
	if !p.world.Loaded() {
		p.tel.CycleSkipped(ctx)
		return
	}
	samples := p.agg.Collect(ctx, p.cfg.Enabled)
	for i := range p.widgets {
		p.widgets[i].Sample = samples.Get(p.widgets[i].Category.ID)
	}
	if p.classify() {
		p.arrange(ctx, "visibility")
	}
	p.cycles++
	p.dirty = true
}

// classify re-evaluates visibility and style of every widget against its
// current sample and reports whether any visibility flipped.
func (p *Panel) classify() bool {
	flipped := false
	for i := range p.widgets {
		w := &p.widgets[i]
		cat := p.cfg.Category(w.Category.ID)
		d := p.engine.Classify(w.Visible, cat.Enabled, w.Sample, cat.Threshold)
		w.Visible = d.Visible
		w.Text, w.Color, w.HoverColor = d.Style.Text, d.Style.Color, d.Style.HoverColor
		flipped = flipped || d.Changed
	}
	return flipped
}

func (p *Panel) arrange(ctx context.Context, reason string) {
	params := p.cfg.Layout()
	visible := make([]bool, len(p.widgets))
	for i, w := range p.widgets {
		visible[i] = w.Visible
	}
	res := layout.Arrange(visible, params)
	item := layout.Size{Width: params.ItemWidth, Height: params.ItemHeight}
	for i := range p.widgets {
		w := &p.widgets[i]
		if slot := res.Slots[i]; slot != nil {
			w.Cell, w.Position, w.Size = slot.Cell, slot.Position, item
			continue
		}
		w.Cell, w.Position, w.Size = layout.Cell{}, layout.Point{}, layout.Size{}
	}
	p.shown, p.size = res.Shown, res.Size
	p.layoutPasses++
	p.dirty = true
	p.tel.LayoutPass(ctx, reason, res.Visible)
	p.log.Debug("layout pass", zap.String("reason", reason), zap.Int("visible", res.Visible))
}

func (p *Panel) publish() {
	if !p.dirty {
		return
	}
	p.dirty = false
	p.seq++
	if len(p.sinks) == 0 {
		return
	}
	v := p.View()
	for _, s := range p.sinks {
		s.Publish(v)
	}
}
