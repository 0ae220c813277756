package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/layout"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/locale"
)

type fixture struct {
	world  *city.State
	store  *config.Store
	labels *locale.Table
	panel  *Panel
}

func cityCapture() city.Capture {
	return city.Capture{
		CityName: "Testville",
		Districts: []city.District{{
			ID:                     city.CityDistrict,
			ElectricityCapacity:    200,
			ElectricityConsumption: 50,
			HeatingCapacity:        200,
			HeatingConsumption:     190,
		}},
	}
}

// newFixture enables electricity, heating and water only and hides
// unavailable widgets.
func newFixture(t *testing.T, mutate func(c *config.Config), opts ...Option) *fixture {
	t.Helper()
	world, err := city.NewState(cityCapture())
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	cfg := config.Defaults()
	for id, c := range cfg.Categories {
		c.Enabled = id == catalogs.Electricity || id == catalogs.Heating || id == catalogs.Water
		cfg.Categories[id] = c
	}
	cfg.Panel.HideItemsNotAvailable = true
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := config.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	labels, err := locale.New("en")
	if err != nil {
		t.Fatalf("locale.New: %v", err)
	}
	p, err := New(world, store, labels, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return &fixture{world: world, store: store, labels: labels, panel: p}
}

func widget(t *testing.T, v View, id catalogs.ID) Widget {
	t.Helper()
	for _, w := range v.Widgets {
		if w.Category.ID == id {
			return w
		}
	}
	t.Fatalf("no widget %q", id)
	return Widget{}
}

type recordingSink struct{ views []View }

func (s *recordingSink) Publish(v View) { s.views = append(s.views, v) }

func TestFrame_FirstFrameSamplesImmediately(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	v := f.panel.View()
	if v.Cycles != 1 || v.LayoutPasses != 1 {
		t.Fatalf("cycles=%d layoutPasses=%d", v.Cycles, v.LayoutPasses)
	}
	if !v.Shown || len(v.Visible()) != 2 {
		t.Fatalf("shown=%v visible=%d", v.Shown, len(v.Visible()))
	}
	elec := widget(t, v, catalogs.Electricity)
	if !elec.Visible || elec.Text != "25%" || elec.Cell != (layout.Cell{Column: 0, Row: 0}) || elec.Position != (layout.Point{X: 2, Y: 2}) {
		t.Fatalf("electricity=%+v", elec)
	}
	heat := widget(t, v, catalogs.Heating)
	if heat.Text != "95%" || heat.Cell != (layout.Cell{Column: 1, Row: 0}) || heat.Position != (layout.Point{X: 64, Y: 2}) {
		t.Fatalf("heating=%+v", heat)
	}
	pal := f.store.Current().Palette()
	if heat.Color != pal.Accent || heat.HoverColor != pal.Foreground {
		t.Fatalf("critical widget colours: %+v", heat)
	}
	if elec.Color != pal.Foreground {
		t.Fatalf("normal widget colour: %+v", elec)
	}
	if widget(t, v, catalogs.Water).Visible {
		t.Fatalf("unavailable water should be hidden")
	}
	if v.Size != (layout.Size{Width: 126, Height: 39}) {
		t.Fatalf("size=%+v", v.Size)
	}
	if elec.Label != "Electricity" {
		t.Fatalf("label=%q", elec.Label)
	}
}

func TestFrame_ThresholdChangeRestylesWithoutLayout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	if err := f.store.SetThreshold(catalogs.Electricity, 10); err != nil {
		t.Fatalf("SetThreshold: %v", err)
	}
	f.panel.Frame(ctx, 0, true)

	v := f.panel.View()
	if v.LayoutPasses != 1 {
		t.Fatalf("threshold change ran a layout pass: %d", v.LayoutPasses)
	}
	if v.Cycles != 1 {
		t.Fatalf("threshold change resampled: cycles=%d", v.Cycles)
	}
	if got := widget(t, v, catalogs.Electricity).Color; got != f.store.Current().Palette().Accent {
		t.Fatalf("electricity colour=%+v", got)
	}
}

func TestFrame_EnabledFlipRunsLayout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	if err := f.store.SetEnabled(catalogs.Electricity, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	f.panel.Frame(ctx, 0, true)

	v := f.panel.View()
	if v.LayoutPasses != 2 {
		t.Fatalf("layoutPasses=%d", v.LayoutPasses)
	}
	if widget(t, v, catalogs.Electricity).Visible {
		t.Fatalf("disabled widget visible")
	}
	if heat := widget(t, v, catalogs.Heating); heat.Cell != (layout.Cell{}) || !heat.Visible {
		t.Fatalf("heating should move to the first cell: %+v", heat)
	}
}

func TestFrame_GeometryChangeRunsLayout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	if err := f.store.SetColumns(1); err != nil {
		t.Fatalf("SetColumns: %v", err)
	}
	f.panel.Frame(ctx, 0, true)

	v := f.panel.View()
	if v.LayoutPasses != 2 {
		t.Fatalf("layoutPasses=%d", v.LayoutPasses)
	}
	if heat := widget(t, v, catalogs.Heating); heat.Cell != (layout.Cell{Column: 0, Row: 1}) {
		t.Fatalf("heating cell=%+v", heat.Cell)
	}
}

func TestFrame_SampleDrivenFlip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	next := cityCapture()
	next.Districts[0].ElectricityCapacity = 0
	if err := f.world.Replace(next); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	f.panel.Frame(ctx, 500*time.Millisecond, true)
	if v := f.panel.View(); v.Cycles != 1 {
		t.Fatalf("sampled before the interval elapsed: %d", v.Cycles)
	}
	f.panel.Frame(ctx, 500*time.Millisecond, true)

	v := f.panel.View()
	if v.Cycles != 2 || v.LayoutPasses != 2 {
		t.Fatalf("cycles=%d layoutPasses=%d", v.Cycles, v.LayoutPasses)
	}
	if elec := widget(t, v, catalogs.Electricity); elec.Visible || elec.Sample.Available() {
		t.Fatalf("electricity=%+v", elec)
	}
}

func TestFrame_ZeroIntervalDisablesSampling(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Panel.UpdateEverySeconds = 0 })
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.panel.Frame(ctx, 10*time.Second, true)
	}
	v := f.panel.View()
	if v.Cycles != 0 || v.Shown {
		t.Fatalf("cycles=%d shown=%v", v.Cycles, v.Shown)
	}
}

func TestFrame_ZeroIntervalStillPresentsWidgets(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Panel.UpdateEverySeconds = 0
		c.Panel.HideItemsNotAvailable = false
	})
	f.panel.Frame(context.Background(), 0, true)
	v := f.panel.View()
	if v.Cycles != 0 {
		t.Fatalf("sampled with interval 0: cycles=%d", v.Cycles)
	}
	if !v.Shown || len(v.Visible()) != 3 || v.LayoutPasses != 1 {
		t.Fatalf("shown=%v visible=%d layoutPasses=%d", v.Shown, len(v.Visible()), v.LayoutPasses)
	}
	elec := widget(t, v, catalogs.Electricity)
	if elec.Text != "-%" || elec.Sample.Available() {
		t.Fatalf("electricity=%+v", elec)
	}
	if crime := widget(t, v, catalogs.CrimeRate); crime.Visible {
		t.Fatalf("disabled category visible")
	}

	f.panel.Frame(context.Background(), time.Second, true)
	if n := f.panel.View().LayoutPasses; n != 1 {
		t.Fatalf("initial pass repeated: layoutPasses=%d", n)
	}
}

func TestFrame_UnloadedCityIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	f.world.SetLoaded(false)
	f.panel.Frame(context.Background(), time.Second, true)
	v := f.panel.View()
	if v.Cycles != 0 || v.LayoutPasses != 0 || len(v.Visible()) != 0 {
		t.Fatalf("view=%+v", v)
	}
}

func TestFrame_AutoHide(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Panel.AutoHide = true })
	ctx := context.Background()
	f.panel.Frame(ctx, 0, false)
	if o := f.panel.View().Opacity; o != 0 {
		t.Fatalf("opacity=%v want 0", o)
	}
	f.panel.Frame(ctx, 0, true)
	if o := f.panel.View().Opacity; o != 1 {
		t.Fatalf("opacity=%v want 1", o)
	}
}

func TestFrame_PositionAndLanguage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)

	if err := f.store.MoveTo(10, 20); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	f.labels.SetLanguage("de")
	f.panel.Frame(ctx, 0, true)

	v := f.panel.View()
	if v.Position != (layout.Point{X: 10, Y: 20}) {
		t.Fatalf("position=%+v", v.Position)
	}
	if v.LayoutPasses != 1 {
		t.Fatalf("move ran a layout pass")
	}
	if got := widget(t, v, catalogs.Electricity).Label; got != "Strom" {
		t.Fatalf("label=%q", got)
	}
	if v.Title != "Stadtstatistik" {
		t.Fatalf("title=%q", v.Title)
	}
}

func TestReposition_ForcesLayout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)
	f.panel.Reposition(ctx)
	if n := f.panel.View().LayoutPasses; n != 2 {
		t.Fatalf("layoutPasses=%d", n)
	}
}

func TestPublish_OnlyWhenChanged(t *testing.T) {
	sink := &recordingSink{}
	f := newFixture(t, nil, WithSink(sink))
	ctx := context.Background()
	f.panel.Frame(ctx, 0, true)
	f.panel.Frame(ctx, 0, true)
	f.panel.Frame(ctx, 0, true)
	if len(sink.views) != 1 {
		t.Fatalf("published %d views", len(sink.views))
	}
	if err := f.store.MoveTo(1, 1); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	f.panel.Frame(ctx, 0, true)
	if len(sink.views) != 2 || sink.views[1].Seq <= sink.views[0].Seq {
		t.Fatalf("views=%d", len(sink.views))
	}
}

func TestNew_FiltersCatalogByFeature(t *testing.T) {
	f := newFixture(t, nil)
	if f.panel.Catalog().Has(catalogs.SnowDump) {
		t.Fatalf("snow dump present without the feature")
	}
	c := cityCapture()
	c.Features = []city.Feature{city.FeatureSnowDumps}
	world, err := city.NewState(c)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	p, err := New(world, f.store, f.labels)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	if !p.Catalog().Has(catalogs.SnowDumpVehicles) || p.Catalog().Len() != catalogs.Default().Len() {
		t.Fatalf("catalog len=%d", p.Catalog().Len())
	}
}

func TestClose_StopsEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.panel.Close()
	if err := f.store.MoveTo(5, 5); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	if b := f.panel.Inbox().Drain(); !b.Empty() {
		t.Fatalf("closed panel still subscribed: %+v", b)
	}
}

func TestRun_StopsOnContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.panel.Run(ctx, 5*time.Millisecond, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if f.panel.View().Cycles < 1 {
		t.Fatalf("no sampling cycle ran")
	}
}
