package aggregate

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"
)

func mustState(t *testing.T, c city.Capture) *city.State {
	t.Helper()
	s, err := city.NewState(c)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func wantValue(t *testing.T, got metric.Sample, want int) {
	t.Helper()
	v, ok := got.Value()
	if !ok || v != want {
		t.Fatalf("sample=%v want %d%%", got, want)
	}
}

func wantUnavailable(t *testing.T, got metric.Sample) {
	t.Helper()
	if got.Available() {
		t.Fatalf("sample=%v want unavailable", got)
	}
}

func only(ids ...catalogs.ID) func(catalogs.ID) bool {
	set := map[catalogs.ID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return func(id catalogs.ID) bool { return set[id] }
}

// countingProvider records which service building lists were queried.
type countingProvider struct {
	city.Provider
	queried map[city.Service]int
}

func (p *countingProvider) ServiceBuildings(s city.Service) []city.BuildingID {
	p.queried[s]++
	return p.Provider.ServiceBuildings(s)
}

// panickingProvider fails on one service.
type panickingProvider struct {
	city.Provider
	bad city.Service
}

func (p panickingProvider) ServiceBuildings(s city.Service) []city.BuildingID {
	if s == p.bad {
		panic("corrupt building buffer")
	}
	return p.Provider.ServiceBuildings(s)
}

func TestCollect_DistrictRatios(t *testing.T) {
	world := mustState(t, city.Capture{
		Districts: []city.District{{
			ID:                     city.CityDistrict,
			ElectricityCapacity:    200,
			ElectricityConsumption: 50,
			HeatingCapacity:        200,
			WaterConsumption:       10,
			WaterStorageCapacity:   400,
			WaterStorageAmount:     100,
			FinalHealth:            88,
			FinalCrimeRate:         12,
		}},
		TrafficFlow: 72,
	})
	a := New(world, catalogs.Default())
	got := a.Collect(context.Background(), nil)

	if len(got) != catalogs.Default().Len() {
		t.Fatalf("samples=%d want one per category (%d)", len(got), catalogs.Default().Len())
	}
	wantValue(t, got[catalogs.Electricity], 25)
	wantValue(t, got[catalogs.Heating], 0)
	wantUnavailable(t, got[catalogs.Water])
	wantValue(t, got[catalogs.WaterReserveTank], 75)
	wantValue(t, got[catalogs.AverageIllnessRate], 12)
	wantValue(t, got[catalogs.CrimeRate], 12)
	wantValue(t, got[catalogs.TrafficJam], 28)
	wantValue(t, got[catalogs.CityUnattractiveness], 100)
	wantUnavailable(t, got[catalogs.PoliceVehicles])
}

func TestCollect_MissingCityDistrictIsUnavailable(t *testing.T) {
	a := New(mustState(t, city.Capture{}), catalogs.Default())
	got := a.Collect(context.Background(), nil)
	wantUnavailable(t, got[catalogs.Electricity])
	wantUnavailable(t, got[catalogs.CrimeRate])
}

func TestCollect_DisabledCategoriesAreNeverComputed(t *testing.T) {
	world := &countingProvider{
		Provider: mustState(t, city.Capture{
			Districts: []city.District{{ID: 0, ElectricityCapacity: 10, ElectricityConsumption: 5}},
			Buildings: []city.BuildingRecord{{ID: 1, Service: city.ServicePolice, Kind: city.KindPoliceStation, PoliceCars: 4}},
		}),
		queried: map[city.Service]int{},
	}
	a := New(world, catalogs.Default())
	got := a.Collect(context.Background(), only(catalogs.Electricity))

	wantValue(t, got[catalogs.Electricity], 50)
	wantUnavailable(t, got[catalogs.PoliceVehicles])
	if len(world.queried) != 0 {
		t.Fatalf("building lists queried for disabled categories: %v", world.queried)
	}

	// Enabling only prison cells still runs the police collector.
	got = a.Collect(context.Background(), only(catalogs.PrisonCells))
	if world.queried[city.ServicePolice] != 1 {
		t.Fatalf("police collector did not run: %v", world.queried)
	}
	wantUnavailable(t, got[catalogs.PoliceVehicles])
}

func TestCollect_PoliceTierSplitAndCells(t *testing.T) {
	world := mustState(t, city.Capture{
		ProductionRates: map[city.Service]int{city.ServicePolice: 50},
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServicePolice, Level: 1, Kind: city.KindPoliceStation, PoliceCars: 8, JailCapacity: 20, CitizenUnits: 1,
				Vehicles: map[city.TransferReason]int{city.TransferCrime: 2, city.TransferCriminalMove: 9}},
			{ID: 2, Service: city.ServicePolice, Level: city.PrisonLevel, Kind: city.KindPoliceStation, PoliceCars: 4, JailCapacity: 10, CitizenUnits: 3,
				Vehicles: map[city.TransferReason]int{city.TransferCriminalMove: 1}},
			{ID: 3, Service: city.ServicePolice, Kind: city.KindHelicopterDepot, Helicopters: 4,
				Vehicles: map[city.TransferReason]int{city.TransferCrime: 1}},
		},
		Units: []city.UnitRecord{
			{ID: 1, Next: 2, Visit: true, Citizens: []city.CitizenID{100, 101}},
			{ID: 2, Visit: true, Citizens: []city.CitizenID{102, 0, 103}},
			{ID: 3, Visit: false, Citizens: []city.CitizenID{104}},
		},
		Visiting: []city.CitizenID{100, 102, 103, 104},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)

	// 3 of 4 citizens visiting in 20 cells.
	wantValue(t, got[catalogs.PoliceHoldingCells], 15)
	// 8 cars at 50% = 4, 2 in use.
	wantValue(t, got[catalogs.PoliceVehicles], 50)
	// Non-visit units do not count.
	wantValue(t, got[catalogs.PrisonCells], 0)
	wantValue(t, got[catalogs.PrisonVehicles], 50)
	wantValue(t, got[catalogs.PoliceHelicopters], 50)
}

func TestCollect_CircularUnitListDropsCells(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	world := mustState(t, city.Capture{
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServicePolice, Level: 1, Kind: city.KindPoliceStation, PoliceCars: 2, JailCapacity: 10, CitizenUnits: 1,
				Vehicles: map[city.TransferReason]int{city.TransferCrime: 1}},
			{ID: 2, Service: city.ServicePolice, Level: 1, Kind: city.KindPoliceStation, PoliceCars: 2, JailCapacity: 10, CitizenUnits: 3},
		},
		Units: []city.UnitRecord{
			{ID: 1, Next: 2, Visit: true, Citizens: []city.CitizenID{7}},
			{ID: 2, Next: 1, Visit: true},
			{ID: 3, Visit: true, Citizens: []city.CitizenID{8, 9}},
		},
		Visiting: []city.CitizenID{7, 8, 9},
	})
	a := New(world, catalogs.Default(), WithLogger(zap.New(core)), WithUnitLimit(16))
	got := a.Collect(context.Background(), nil)

	// Only building 2's cells remain: 2 of 10.
	wantValue(t, got[catalogs.PoliceHoldingCells], 20)
	// Vehicles of the faulty building still count: 1 of 4.
	wantValue(t, got[catalogs.PoliceVehicles], 25)
	if logs.FilterMessage("invalid citizen unit list").Len() != 1 {
		t.Fatalf("expected one integrity warning, got %d", logs.Len())
	}
}

func TestCollect_HealthcareFleetAndDowngrading(t *testing.T) {
	world := mustState(t, city.Capture{
		ProductionRates: map[city.Service]int{city.ServiceHealthCare: 120},
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServiceHealthCare, Kind: city.KindHospital, Ambulances: 10,
				Vehicles: map[city.TransferReason]int{city.TransferSick: 6}},
			{ID: 2, Service: city.ServiceHealthCare, Kind: city.KindHelicopterDepot, Helicopters: 5,
				Vehicles: map[city.TransferReason]int{city.TransferSick2: 3, city.TransferSick: 5}},
			{ID: 3, Service: city.ServiceHealthCare, Kind: city.KindCemetery, Hearses: 5, Graves: 100,
				Vehicles: map[city.TransferReason]int{city.TransferDead: 3}},
			{ID: 4, Service: city.ServiceHealthCare, Kind: city.KindCemetery, Hearses: 5, Downgrading: true,
				Vehicles: map[city.TransferReason]int{city.TransferDead: 6, city.TransferDeadMove: 6}},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)

	// 10 ambulances at 120% = 12, 6 in use.
	wantValue(t, got[catalogs.HealthcareVehicles], 50)
	// 5 helicopters at 120% = 6, 3 in use.
	wantValue(t, got[catalogs.MedicalHelicopters], 50)
	wantValue(t, got[catalogs.CemeteryVehicles], 50)
	// Downgrading crematorium counts through the wind-down reason.
	wantValue(t, got[catalogs.CrematoriumVehicles], 100)
}

func TestCollect_FireHelicoptersCountBothDispatchReasons(t *testing.T) {
	world := mustState(t, city.Capture{
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServiceFireDepartment, Kind: city.KindFireStation, Trucks: 4,
				Vehicles: map[city.TransferReason]int{city.TransferFire: 1}},
			{ID: 2, Service: city.ServiceFireDepartment, Kind: city.KindHelicopterDepot, Helicopters: 4,
				Vehicles: map[city.TransferReason]int{city.TransferForestFire: 1, city.TransferFire2: 2}},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.FireDepartmentVehicles], 25)
	wantValue(t, got[catalogs.FireHelicopters], 75)
}

func TestCollect_WaterPumpingServiceOnly(t *testing.T) {
	world := mustState(t, city.Capture{
		Buildings: []city.BuildingRecord{
			// Combined intake/outlet/storage plant: ignored.
			{ID: 1, Service: city.ServiceWater, Kind: city.KindWaterFacility,
				WaterIntake: 1, WaterOutlet: 1, WaterStorage: 1, SewageOutlet: 1, SewageStorage: 1000, PumpingVehicles: 4, SewageStored: 1000},
			{ID: 2, Service: city.ServiceWater, Kind: city.KindWaterFacility,
				SewageOutlet: 1, SewageStorage: 4000, PumpingVehicles: 4, SewageStored: 1000,
				Vehicles: map[city.TransferReason]int{city.TransferFloodWater: 2}},
			// No pumping vehicles: not a pumping service building.
			{ID: 3, Service: city.ServiceWater, Kind: city.KindWaterFacility, SewageOutlet: 1, SewageStorage: 4000},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.WaterPumpingServiceStorage], 25)
	wantValue(t, got[catalogs.WaterPumpingServiceVehicles], 50)
}

func TestCollect_GarbageSplitByConsumption(t *testing.T) {
	world := mustState(t, city.Capture{
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServiceGarbage, Kind: city.KindLandfillSite, Trucks: 10,
				Vehicles: map[city.TransferReason]int{city.TransferGarbage: 3}},
			{ID: 2, Service: city.ServiceGarbage, Kind: city.KindLandfillSite, Trucks: 4, GarbageConsumption: 100, Downgrading: true,
				Vehicles: map[city.TransferReason]int{city.TransferGarbage: 4, city.TransferGarbageMove: 1}},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.LandfillVehicles], 30)
	wantValue(t, got[catalogs.GarbageProcessingVehicles], 25)
}

func TestCollect_ParkMaintenanceBoostAndSkippedDepots(t *testing.T) {
	world := mustState(t, city.Capture{
		Districts: []city.District{{ID: 0}, {ID: 3, ParkMaintenanceBoost: true}},
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServiceBeautification, District: 3, Kind: city.KindMaintenanceDepot, Trucks: 2, Transfer: city.TransferParkMaintenance,
				Vehicles: map[city.TransferReason]int{city.TransferParkMaintenance: 1}},
			{ID: 2, Service: city.ServiceBeautification, Kind: city.KindMaintenanceDepot, Trucks: 50},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)
	// 2 trucks at doubled rate = 4, 1 in use; the depot without a transfer reason is skipped.
	wantValue(t, got[catalogs.ParkMaintenanceVehicles], 25)
}

func TestCollect_RoadMaintenanceAndSnow(t *testing.T) {
	world := mustState(t, city.Capture{
		Features: []city.Feature{city.FeatureSnowDumps},
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServiceRoad, Kind: city.KindMaintenanceDepot, Trucks: 4,
				Vehicles: map[city.TransferReason]int{city.TransferRoadMaintenance: 1}},
			{ID: 2, Service: city.ServiceRoad, Kind: city.KindSnowDump, Trucks: 2, SnowCapacity: 1000, SnowAmount: 500, Downgrading: true,
				Vehicles: map[city.TransferReason]int{city.TransferSnowMove: 2}},
		},
	})
	cat := catalogs.Default().Filter(world.HasFeature)
	got := New(world, cat).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.RoadMaintenanceVehicles], 25)
	wantValue(t, got[catalogs.SnowDump], 50)
	wantValue(t, got[catalogs.SnowDumpVehicles], 100)

	if err := world.Replace(city.Capture{}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	cat = catalogs.Default().Filter(world.HasFeature)
	got = New(world, cat).Collect(context.Background(), nil)
	if _, ok := got[catalogs.SnowDump]; ok {
		t.Fatalf("snow dump sampled without the feature")
	}
	if len(got) != cat.Len() {
		t.Fatalf("samples=%d want %d", len(got), cat.Len())
	}
}

func TestCollect_TaxisPostAndDisaster(t *testing.T) {
	world := mustState(t, city.Capture{
		Buildings: []city.BuildingRecord{
			{ID: 1, Service: city.ServicePublicTransport, Kind: city.KindTransportDepot, FleetSize: 10, TransportType: "taxi",
				Vehicles: map[city.TransferReason]int{city.TransferTaxi: 5}},
			{ID: 2, Service: city.ServicePublicTransport, Kind: city.KindTransportDepot, FleetSize: 10, TransportType: "bus",
				Vehicles: map[city.TransferReason]int{city.TransferTaxi: 5}},
			{ID: 3, Service: city.ServicePublicTransport, Kind: city.KindTransportDepot, TransportType: "taxi"},
			{ID: 4, Service: city.ServicePublicTransport, Kind: city.KindPostOffice, Vans: 10, Trucks: 4,
				Vehicles: map[city.TransferReason]int{city.TransferMail: 1, city.TransferSortedMail: 1}},
			{ID: 5, Service: city.ServiceDisaster, Kind: city.KindDisasterResponse, FleetSize: 5, Helicopters: 2,
				Vehicles: map[city.TransferReason]int{city.TransferCollapsed: 5, city.TransferCollapsed2: 1}},
		},
	})
	got := New(world, catalogs.Default()).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.Taxis], 50)
	wantValue(t, got[catalogs.PostVans], 10)
	wantValue(t, got[catalogs.PostTrucks], 25)
	wantValue(t, got[catalogs.DisasterResponseVehicles], 100)
	wantValue(t, got[catalogs.DisasterResponseHelicopters], 50)
}

func TestCollect_PanickingCollectorIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	world := panickingProvider{
		Provider: mustState(t, city.Capture{
			Districts: []city.District{{ID: 0, ElectricityCapacity: 4, ElectricityConsumption: 1}},
			Buildings: []city.BuildingRecord{
				{ID: 1, Service: city.ServiceFireDepartment, Kind: city.KindFireStation, Trucks: 2},
			},
		}),
		bad: city.ServicePolice,
	}
	got := New(world, catalogs.Default(), WithLogger(zap.New(core))).Collect(context.Background(), nil)
	wantValue(t, got[catalogs.Electricity], 25)
	wantValue(t, got[catalogs.FireDepartmentVehicles], 0)
	wantUnavailable(t, got[catalogs.PoliceVehicles])
	wantUnavailable(t, got[catalogs.PrisonCells])
	if logs.FilterField(zap.String("collector", "police")).Len() != 1 {
		t.Fatalf("expected one panic log for police, got %d entries", logs.Len())
	}
}

// reloadingWorld swaps in the next capture as soon as a cycle has taken its
// view, the way a background reload can land in the middle of a cycle.
type reloadingWorld struct {
	*city.State
	t    *testing.T
	next []city.Capture
}

func (w *reloadingWorld) Snapshot() city.Provider {
	view := w.State.Snapshot()
	if len(w.next) > 0 {
		if err := w.State.Replace(w.next[0]); err != nil {
			w.t.Fatalf("Replace: %v", err)
		}
		w.next = w.next[1:]
	}
	return view
}

func TestCollect_ReadsOneCapturePerCycle(t *testing.T) {
	capture := func(inUse int) city.Capture {
		return city.Capture{
			ProductionRates: map[city.Service]int{city.ServicePolice: 50},
			Buildings: []city.BuildingRecord{
				{ID: 1, Service: city.ServicePolice, Level: 1, Kind: city.KindPoliceStation, PoliceCars: 8,
					Vehicles: map[city.TransferReason]int{city.TransferCrime: inUse}},
			},
		}
	}
	world := &reloadingWorld{State: mustState(t, capture(2)), t: t, next: []city.Capture{{}}}
	a := New(world, catalogs.Default())

	// The capture without buildings lands right after the view is taken.
	got := a.Collect(context.Background(), only(catalogs.PoliceVehicles))
	wantValue(t, got[catalogs.PoliceVehicles], 50)

	got = a.Collect(context.Background(), only(catalogs.PoliceVehicles))
	wantUnavailable(t, got[catalogs.PoliceVehicles])
}
