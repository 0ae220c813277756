// Package aggregate reduces raw simulation counters into one sample per
// session category.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/telemetry"
)

// DefaultUnitLimit caps citizen unit list walks.
const DefaultUnitLimit = 524288

type Option func(*Aggregator)

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithInstruments(in *telemetry.Instruments) Option {
	return func(a *Aggregator) { a.tel = in }
}

// WithUnitLimit overrides the citizen unit walk cap.
func WithUnitLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.unitLimit = n
		}
	}
}

// Aggregator samples a city.Provider. It is not safe for concurrent use.
type Aggregator struct {
	world     city.Provider
	catalog   *catalogs.Catalog
	log       *zap.Logger
	tel       *telemetry.Instruments
	unitLimit int

	collectors []collector
}

// collector computes the samples for a fixed set of categories. It runs only
// when at least one of them is present and enabled.
type collector struct {
	name    string
	outputs []catalogs.ID
	run     func(c *cycle)
}

// cycle is the per-collector view handed to a collector run.
type cycle struct {
	ctx   context.Context
	a     *Aggregator
	world city.Provider
	name  string
	want  func(catalogs.ID) bool
	out   metric.Samples
}

func (c *cycle) set(id catalogs.ID, s metric.Sample) {
	if c.want(id) {
		c.out[id] = s
	}
}

func (c *cycle) wantAny(ids ...catalogs.ID) bool {
	for _, id := range ids {
		if c.want(id) {
			return true
		}
	}
	return false
}

func New(world city.Provider, catalog *catalogs.Catalog, opts ...Option) *Aggregator {
	a := &Aggregator{
		world:     world,
		catalog:   catalog,
		log:       zap.NewNop(),
		unitLimit: DefaultUnitLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.collectors = append(districtCollectors(), fleetCollectors()...)
	return a
}

// Collect runs one aggregation cycle. The result holds exactly one sample per
// catalog category; disabled categories are left unavailable and never
// computed. A nil enabled func enables everything.
func (a *Aggregator) Collect(ctx context.Context, enabled func(catalogs.ID) bool) metric.Samples {
	start := time.Now()
	out := make(metric.Samples, a.catalog.Len())
	for _, id := range a.catalog.IDs() {
		out[id] = metric.Unavailable()
	}
	want := func(id catalogs.ID) bool {
		if !a.catalog.Has(id) {
			return false
		}
		return enabled == nil || enabled(id)
	}

	// Every collector of one cycle reads the same capture.
	world := a.world
	if sn, ok := world.(city.Snapshotter); ok {
		world = sn.Snapshot()
	}
	for _, col := range a.collectors {
		c := &cycle{ctx: ctx, a: a, world: world, name: col.name, want: want, out: out}
		if !c.wantAny(col.outputs...) {
			continue
		}
		a.runIsolated(col, c)
	}
	a.tel.Cycle(ctx, time.Since(start))
	return out
}

func (a *Aggregator) runIsolated(col collector, c *cycle) {
	defer func() {
		if r := recover(); r != nil {
			for _, id := range col.outputs {
				if _, ok := c.out[id]; ok {
					c.out[id] = metric.Unavailable()
				}
			}
			a.log.Error("collector panicked",
				zap.String("collector", col.name),
				zap.String("panic", fmt.Sprint(r)),
			)
			a.tel.CollectorPanic(c.ctx, col.name)
		}
	}()
	col.run(c)
}
