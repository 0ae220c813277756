package city

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capture is the serialisable form of a city's state at one tick. Snapshots,
// the capture database and YAML fixtures all carry this shape.
type Capture struct {
	CityName string    `yaml:"city_name" json:"city_name"`
	Tick     uint64    `yaml:"tick" json:"tick"`
	Features []Feature `yaml:"features,omitempty" json:"features,omitempty"`

	Districts       []District       `yaml:"districts" json:"districts"`
	TrafficFlow     int              `yaml:"traffic_flow" json:"traffic_flow"`
	TotalResources  map[Resource]int `yaml:"total_resources,omitempty" json:"total_resources,omitempty"`
	GlobalResources map[Resource]int `yaml:"global_resources,omitempty" json:"global_resources,omitempty"`
	ProductionRates map[Service]int  `yaml:"production_rates,omitempty" json:"production_rates,omitempty"`
	Buildings       []BuildingRecord `yaml:"buildings,omitempty" json:"buildings,omitempty"`
	Units           []UnitRecord     `yaml:"units,omitempty" json:"units,omitempty"`
	Visiting        []CitizenID      `yaml:"visiting,omitempty" json:"visiting,omitempty"`
}

type BuildingRecord struct {
	ID           BuildingID             `yaml:"id" json:"id"`
	Service      Service                `yaml:"service" json:"service"`
	Level        int                    `yaml:"level,omitempty" json:"level,omitempty"`
	District     DistrictID             `yaml:"district,omitempty" json:"district,omitempty"`
	Downgrading  bool                   `yaml:"downgrading,omitempty" json:"downgrading,omitempty"`
	CitizenUnits UnitID                 `yaml:"citizen_units,omitempty" json:"citizen_units,omitempty"`
	Kind         Kind                   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Vehicles     map[TransferReason]int `yaml:"vehicles,omitempty" json:"vehicles,omitempty"`

	Ambulances    int            `yaml:"ambulances,omitempty" json:"ambulances,omitempty"`
	Helicopters   int            `yaml:"helicopters,omitempty" json:"helicopters,omitempty"`
	Hearses       int            `yaml:"hearses,omitempty" json:"hearses,omitempty"`
	Graves        int            `yaml:"graves,omitempty" json:"graves,omitempty"`
	PoliceCars    int            `yaml:"police_cars,omitempty" json:"police_cars,omitempty"`
	JailCapacity  int            `yaml:"jail_capacity,omitempty" json:"jail_capacity,omitempty"`
	Trucks        int            `yaml:"trucks,omitempty" json:"trucks,omitempty"`
	Vans          int            `yaml:"vans,omitempty" json:"vans,omitempty"`
	FleetSize     int            `yaml:"fleet_size,omitempty" json:"fleet_size,omitempty"`
	Transfer      TransferReason `yaml:"transfer,omitempty" json:"transfer,omitempty"`
	SnowCapacity  int            `yaml:"snow_capacity,omitempty" json:"snow_capacity,omitempty"`
	SnowAmount    int            `yaml:"snow_amount,omitempty" json:"snow_amount,omitempty"`
	TransportType string         `yaml:"transport_type,omitempty" json:"transport_type,omitempty"`

	GarbageConsumption int   `yaml:"garbage_consumption,omitempty" json:"garbage_consumption,omitempty"`
	WaterIntake        int   `yaml:"water_intake,omitempty" json:"water_intake,omitempty"`
	WaterOutlet        int   `yaml:"water_outlet,omitempty" json:"water_outlet,omitempty"`
	WaterStorage       int   `yaml:"water_storage,omitempty" json:"water_storage,omitempty"`
	SewageOutlet       int   `yaml:"sewage_outlet,omitempty" json:"sewage_outlet,omitempty"`
	SewageStorage      int   `yaml:"sewage_storage,omitempty" json:"sewage_storage,omitempty"`
	PumpingVehicles    int   `yaml:"pumping_vehicles,omitempty" json:"pumping_vehicles,omitempty"`
	SewageStored       int64 `yaml:"sewage_stored,omitempty" json:"sewage_stored,omitempty"`
}

type UnitRecord struct {
	ID       UnitID      `yaml:"id" json:"id"`
	Next     UnitID      `yaml:"next,omitempty" json:"next,omitempty"`
	Visit    bool        `yaml:"visit,omitempty" json:"visit,omitempty"`
	Citizens []CitizenID `yaml:"citizens,omitempty" json:"citizens,omitempty"`
}

// LoadFixture reads a YAML capture.
func LoadFixture(path string) (Capture, error) {
	var c Capture
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("city fixture: %w", err)
	}
	return c, nil
}

func (r BuildingRecord) ai() (AI, error) {
	switch r.Kind {
	case "":
		return nil, nil
	case KindHospital:
		return Hospital{Ambulances: r.Ambulances}, nil
	case KindHelicopterDepot:
		return HelicopterDepot{Helicopters: r.Helicopters}, nil
	case KindCemetery:
		return Cemetery{Hearses: r.Hearses, Graves: r.Graves}, nil
	case KindPoliceStation:
		return PoliceStation{PoliceCars: r.PoliceCars, JailCapacity: r.JailCapacity}, nil
	case KindMaintenanceDepot:
		return MaintenanceDepot{Trucks: r.Trucks, Transfer: r.Transfer}, nil
	case KindSnowDump:
		return SnowDump{Trucks: r.Trucks, SnowCapacity: r.SnowCapacity, SnowAmount: r.SnowAmount}, nil
	case KindPostOffice:
		return PostOffice{Vans: r.Vans, Trucks: r.Trucks}, nil
	case KindDisasterResponse:
		return DisasterResponse{Vehicles: r.FleetSize, Helicopters: r.Helicopters}, nil
	case KindWaterFacility:
		return WaterFacility{
			WaterIntake:     r.WaterIntake,
			WaterOutlet:     r.WaterOutlet,
			WaterStorage:    r.WaterStorage,
			SewageOutlet:    r.SewageOutlet,
			SewageStorage:   r.SewageStorage,
			PumpingVehicles: r.PumpingVehicles,
			SewageStored:    r.SewageStored,
		}, nil
	case KindLandfillSite:
		return LandfillSite{Trucks: r.Trucks, GarbageConsumption: r.GarbageConsumption}, nil
	case KindFireStation:
		return FireStation{Trucks: r.Trucks}, nil
	case KindTransportDepot:
		return TransportDepot{MaxVehicles: r.FleetSize, TransportType: strings.ToLower(strings.TrimSpace(r.TransportType))}, nil
	default:
		return nil, fmt.Errorf("building %d: unknown kind %q", r.ID, r.Kind)
	}
}

func recordFor(b Building, vehicles map[TransferReason]int) BuildingRecord {
	r := BuildingRecord{
		ID:           b.ID,
		Service:      b.Service,
		Level:        b.Level,
		District:     b.District,
		Downgrading:  b.Downgrading,
		CitizenUnits: b.CitizenUnits,
	}
	if len(vehicles) > 0 {
		r.Vehicles = make(map[TransferReason]int, len(vehicles))
		for k, v := range vehicles {
			r.Vehicles[k] = v
		}
	}
	if b.AI == nil {
		return r
	}
	r.Kind = b.AI.Kind()
	switch ai := b.AI.(type) {
	case Hospital:
		r.Ambulances = ai.Ambulances
	case HelicopterDepot:
		r.Helicopters = ai.Helicopters
	case Cemetery:
		r.Hearses, r.Graves = ai.Hearses, ai.Graves
	case PoliceStation:
		r.PoliceCars, r.JailCapacity = ai.PoliceCars, ai.JailCapacity
	case MaintenanceDepot:
		r.Trucks, r.Transfer = ai.Trucks, ai.Transfer
	case SnowDump:
		r.Trucks, r.SnowCapacity, r.SnowAmount = ai.Trucks, ai.SnowCapacity, ai.SnowAmount
	case PostOffice:
		r.Vans, r.Trucks = ai.Vans, ai.Trucks
	case DisasterResponse:
		r.FleetSize, r.Helicopters = ai.Vehicles, ai.Helicopters
	case WaterFacility:
		r.WaterIntake, r.WaterOutlet, r.WaterStorage = ai.WaterIntake, ai.WaterOutlet, ai.WaterStorage
		r.SewageOutlet, r.SewageStorage = ai.SewageOutlet, ai.SewageStorage
		r.PumpingVehicles, r.SewageStored = ai.PumpingVehicles, ai.SewageStored
	case LandfillSite:
		r.Trucks, r.GarbageConsumption = ai.Trucks, ai.GarbageConsumption
	case FireStation:
		r.Trucks = ai.Trucks
	case TransportDepot:
		r.FleetSize, r.TransportType = ai.MaxVehicles, ai.TransportType
	}
	return r
}

func sortedBuildingIDs(m map[BuildingID]*buildingEntry) []BuildingID {
	ids := make([]BuildingID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
