package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const scope = "github.com/LeonidasJP/CitiesSkylines-Stats"

// Instruments records dashboard activity. A nil *Instruments is valid and
// records nothing.
type Instruments struct {
	cycles          metric.Int64Counter
	skipped         metric.Int64Counter
	layoutPasses    metric.Int64Counter
	integrityFaults metric.Int64Counter
	collectorPanics metric.Int64Counter
	visibleWidgets  metric.Int64Gauge
	cycleDuration   metric.Float64Histogram
}

// New creates the instrument set on m.
func New(m metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)
	if in.cycles, err = m.Int64Counter("citydash.cycles", metric.WithDescription("sampling cycles run")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.cycles: %w", err)
	}
	if in.skipped, err = m.Int64Counter("citydash.cycles.skipped", metric.WithDescription("due cycles skipped because no city is loaded")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.cycles.skipped: %w", err)
	}
	if in.layoutPasses, err = m.Int64Counter("citydash.layout.passes", metric.WithDescription("layout recomputations")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.layout.passes: %w", err)
	}
	if in.integrityFaults, err = m.Int64Counter("citydash.integrity.faults", metric.WithDescription("malformed host collections detected")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.integrity.faults: %w", err)
	}
	if in.collectorPanics, err = m.Int64Counter("citydash.collector.panics", metric.WithDescription("collectors recovered from a panic")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.collector.panics: %w", err)
	}
	if in.visibleWidgets, err = m.Int64Gauge("citydash.widgets.visible", metric.WithDescription("widgets visible after the last layout pass")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.widgets.visible: %w", err)
	}
	if in.cycleDuration, err = m.Float64Histogram("citydash.cycle.duration", metric.WithUnit("ms"), metric.WithDescription("aggregation cycle wall time")); err != nil {
		return nil, fmt.Errorf("create instrument citydash.cycle.duration: %w", err)
	}
	return &in, nil
}

// Nop returns instruments backed by a no-op meter.
func Nop() *Instruments {
	in, _ := New(noop.NewMeterProvider().Meter(scope))
	return in
}

// Global returns instruments on the globally registered meter provider.
func Global() (*Instruments, error) {
	return New(otel.Meter(scope))
}

func (in *Instruments) Cycle(ctx context.Context, d time.Duration) {
	if in == nil {
		return
	}
	in.cycles.Add(ctx, 1)
	in.cycleDuration.Record(ctx, float64(d.Microseconds())/1000)
}

func (in *Instruments) CycleSkipped(ctx context.Context) {
	if in == nil {
		return
	}
	in.skipped.Add(ctx, 1)
}

// LayoutPass records one layout recomputation and the resulting visible count.
func (in *Instruments) LayoutPass(ctx context.Context, reason string, visible int) {
	if in == nil {
		return
	}
	in.layoutPasses.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	in.visibleWidgets.Record(ctx, int64(visible))
}

func (in *Instruments) IntegrityFault(ctx context.Context, collector string) {
	if in == nil {
		return
	}
	in.integrityFaults.Add(ctx, 1, metric.WithAttributes(attribute.String("collector", collector)))
}

func (in *Instruments) CollectorPanic(ctx context.Context, collector string) {
	if in == nil {
		return
	}
	in.collectorPanics.Add(ctx, 1, metric.WithAttributes(attribute.String("collector", collector)))
}

// Setup installs a global meter provider for the named exporter ("stdout")
// and returns its shutdown func. "" and "none" leave the global no-op meter.
func Setup(exporter, service string, interval time.Duration) (func(context.Context) error, error) {
	switch exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", exporter)
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}
	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(interval))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attribute.String("service.name", service)))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...)),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
