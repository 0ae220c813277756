package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
)

// ID identifies one metric category. IDs double as configuration keys.
type ID string

type Group string

const (
	GroupUtilities   Group = "utilities"
	GroupWater       Group = "water"
	GroupGarbage     Group = "garbage"
	GroupEducation   Group = "education"
	GroupHealth      Group = "health"
	GroupDeathcare   Group = "deathcare"
	GroupPollution   Group = "pollution"
	GroupFire        Group = "fire"
	GroupPolice      Group = "police"
	GroupEconomy     Group = "economy"
	GroupTraffic     Group = "traffic"
	GroupMaintenance Group = "maintenance"
	GroupCity        Group = "city"
	GroupTransport   Group = "transport"
	GroupPost        Group = "post"
	GroupDisaster    Group = "disaster"
)

// Unit describes how a category's percentage is derived.
type Unit uint8

const (
	// UnitRatio is usage over capacity.
	UnitRatio Unit = iota
	// UnitInvertedRatio is spare capacity: one minus need over capacity.
	UnitInvertedRatio
	// UnitRawScore is a 0..100 score read (or derived) from a global counter.
	UnitRawScore
)

func (u Unit) String() string {
	switch u {
	case UnitRatio:
		return "ratio"
	case UnitInvertedRatio:
		return "inverted-ratio"
	case UnitRawScore:
		return "raw-score"
	default:
		return fmt.Sprintf("unit(%d)", uint8(u))
	}
}

const (
	Electricity                 ID = "electricity"
	Heating                     ID = "heating"
	Water                       ID = "water"
	SewageTreatment             ID = "sewage_treatment"
	WaterReserveTank            ID = "water_reserve_tank"
	WaterPumpingServiceStorage  ID = "water_pumping_service_storage"
	WaterPumpingServiceVehicles ID = "water_pumping_service_vehicles"
	Landfill                    ID = "landfill"
	LandfillVehicles            ID = "landfill_vehicles"
	GarbageProcessing           ID = "garbage_processing"
	GarbageProcessingVehicles   ID = "garbage_processing_vehicles"
	ElementarySchool            ID = "elementary_school"
	HighSchool                  ID = "high_school"
	University                  ID = "university"
	Healthcare                  ID = "healthcare"
	HealthcareVehicles          ID = "healthcare_vehicles"
	MedicalHelicopters          ID = "medical_helicopters"
	AverageIllnessRate          ID = "average_illness_rate"
	Cemetery                    ID = "cemetery"
	CemeteryVehicles            ID = "cemetery_vehicles"
	Crematorium                 ID = "crematorium"
	CrematoriumVehicles         ID = "crematorium_vehicles"
	GroundPollution             ID = "ground_pollution"
	DrinkingWaterPollution      ID = "drinking_water_pollution"
	NoisePollution              ID = "noise_pollution"
	FireHazard                  ID = "fire_hazard"
	FireDepartmentVehicles      ID = "fire_department_vehicles"
	FireHelicopters             ID = "fire_helicopters"
	CrimeRate                   ID = "crime_rate"
	PoliceHoldingCells          ID = "police_holding_cells"
	PoliceVehicles              ID = "police_vehicles"
	PoliceHelicopters           ID = "police_helicopters"
	PrisonCells                 ID = "prison_cells"
	PrisonVehicles              ID = "prison_vehicles"
	Unemployment                ID = "unemployment"
	TrafficJam                  ID = "traffic_jam"
	RoadMaintenanceVehicles     ID = "road_maintenance_vehicles"
	SnowDump                    ID = "snow_dump"
	SnowDumpVehicles            ID = "snow_dump_vehicles"
	ParkMaintenanceVehicles     ID = "park_maintenance_vehicles"
	CityUnattractiveness        ID = "city_unattractiveness"
	Taxis                       ID = "taxis"
	PostVans                    ID = "post_vans"
	PostTrucks                  ID = "post_trucks"
	DisasterResponseVehicles    ID = "disaster_response_vehicles"
	DisasterResponseHelicopters ID = "disaster_response_helicopters"
)

// Category is one immutable catalog entry.
type Category struct {
	ID        ID    `json:"id"`
	Group     Group `json:"group"`
	SortOrder int   `json:"sort_order"`
	Unit      Unit  `json:"unit"`
	// LabelKey resolves the display label through the locale table.
	LabelKey string `json:"label_key"`
	// Requires names an optional map feature; empty means always present.
	Requires city.Feature `json:"requires,omitempty"`
	// DefaultThreshold is the critical threshold used when configuration omits one.
	DefaultThreshold int `json:"default_threshold"`
}

// Catalog is an ordered, immutable set of categories.
type Catalog struct {
	categories []Category
	index      map[ID]int
	// Digest is a sha256 over the ordered id list. Two sessions with the same
	// digest lay out the same widget set.
	Digest string
}

type def struct {
	id        ID
	group     Group
	unit      Unit
	threshold int
	requires  city.Feature
}

// defaults lists every category in display order.
var defaults = []def{
	{Electricity, GroupUtilities, UnitRatio, 90, ""},
	{Heating, GroupUtilities, UnitRatio, 90, ""},
	{Water, GroupWater, UnitRatio, 90, ""},
	{SewageTreatment, GroupWater, UnitRatio, 90, ""},
	{WaterReserveTank, GroupWater, UnitInvertedRatio, 90, ""},
	{WaterPumpingServiceStorage, GroupWater, UnitRatio, 90, ""},
	{WaterPumpingServiceVehicles, GroupWater, UnitRatio, 90, ""},
	{Landfill, GroupGarbage, UnitRatio, 90, ""},
	{LandfillVehicles, GroupGarbage, UnitRatio, 90, ""},
	{GarbageProcessing, GroupGarbage, UnitRatio, 90, ""},
	{GarbageProcessingVehicles, GroupGarbage, UnitRatio, 90, ""},
	{ElementarySchool, GroupEducation, UnitRatio, 90, ""},
	{HighSchool, GroupEducation, UnitRatio, 90, ""},
	{University, GroupEducation, UnitRatio, 90, ""},
	{Healthcare, GroupHealth, UnitRatio, 90, ""},
	{HealthcareVehicles, GroupHealth, UnitRatio, 90, ""},
	{MedicalHelicopters, GroupHealth, UnitRatio, 90, ""},
	{AverageIllnessRate, GroupHealth, UnitRawScore, 50, ""},
	{Cemetery, GroupDeathcare, UnitRatio, 90, ""},
	{CemeteryVehicles, GroupDeathcare, UnitRatio, 90, ""},
	{Crematorium, GroupDeathcare, UnitRatio, 90, ""},
	{CrematoriumVehicles, GroupDeathcare, UnitRatio, 90, ""},
	{GroundPollution, GroupPollution, UnitRawScore, 50, ""},
	{DrinkingWaterPollution, GroupPollution, UnitRawScore, 50, ""},
	{NoisePollution, GroupPollution, UnitRawScore, 50, ""},
	{FireHazard, GroupFire, UnitRawScore, 50, ""},
	{FireDepartmentVehicles, GroupFire, UnitRatio, 90, ""},
	{FireHelicopters, GroupFire, UnitRatio, 90, ""},
	{CrimeRate, GroupPolice, UnitRawScore, 50, ""},
	{PoliceHoldingCells, GroupPolice, UnitRatio, 90, ""},
	{PoliceVehicles, GroupPolice, UnitRatio, 90, ""},
	{PoliceHelicopters, GroupPolice, UnitRatio, 90, ""},
	{PrisonCells, GroupPolice, UnitRatio, 90, ""},
	{PrisonVehicles, GroupPolice, UnitRatio, 90, ""},
	{Unemployment, GroupEconomy, UnitRawScore, 15, ""},
	{TrafficJam, GroupTraffic, UnitRawScore, 50, ""},
	{RoadMaintenanceVehicles, GroupMaintenance, UnitRatio, 90, ""},
	{SnowDump, GroupMaintenance, UnitRatio, 90, city.FeatureSnowDumps},
	{SnowDumpVehicles, GroupMaintenance, UnitRatio, 90, city.FeatureSnowDumps},
	{ParkMaintenanceVehicles, GroupMaintenance, UnitRatio, 90, ""},
	{CityUnattractiveness, GroupCity, UnitRawScore, 50, ""},
	{Taxis, GroupTransport, UnitRatio, 90, ""},
	{PostVans, GroupPost, UnitRatio, 90, ""},
	{PostTrucks, GroupPost, UnitRatio, 90, ""},
	{DisasterResponseVehicles, GroupDisaster, UnitRatio, 90, ""},
	{DisasterResponseHelicopters, GroupDisaster, UnitRatio, 90, ""},
}

var defaultCatalog = func() *Catalog {
	cats := make([]Category, len(defaults))
	for i, d := range defaults {
		cats[i] = Category{
			ID:               d.id,
			Group:            d.group,
			SortOrder:        (i + 1) * 10,
			Unit:             d.unit,
			LabelKey:         "category." + string(d.id),
			Requires:         d.requires,
			DefaultThreshold: d.threshold,
		}
	}
	c, err := New(cats)
	if err != nil {
		panic(err)
	}
	return c
}()

// Default returns the full catalog.
func Default() *Catalog { return defaultCatalog }

// New builds a catalog ordered by SortOrder. IDs must be unique and non-empty.
func New(cats []Category) (*Catalog, error) {
	out := make([]Category, len(cats))
	copy(out, cats)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })

	c := &Catalog{categories: out, index: make(map[ID]int, len(out))}
	ids := make([]ID, len(out))
	for i, cat := range out {
		if cat.ID == "" {
			return nil, fmt.Errorf("catalog: empty id at position %d", i)
		}
		if _, dup := c.index[cat.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", cat.ID)
		}
		c.index[cat.ID] = i
		ids[i] = cat.ID
	}
	raw, _ := json.Marshal(ids)
	sum := sha256.Sum256(raw)
	c.Digest = hex.EncodeToString(sum[:])
	return c, nil
}

// Filter returns the session catalog: categories whose required feature is
// absent are dropped. Run once per session.
func (c *Catalog) Filter(has func(city.Feature) bool) *Catalog {
	kept := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if cat.Requires != "" && (has == nil || !has(cat.Requires)) {
			continue
		}
		kept = append(kept, cat)
	}
	if len(kept) == len(c.categories) {
		return c
	}
	out, err := New(kept)
	if err != nil {
		// Unreachable: kept is a subset of a valid catalog.
		panic(err)
	}
	return out
}

func (c *Catalog) Len() int { return len(c.categories) }

// At returns the i-th category in display order.
func (c *Catalog) At(i int) Category { return c.categories[i] }

// Categories returns a copy of the ordered category list.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) Lookup(id ID) (Category, bool) {
	i, ok := c.index[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

func (c *Catalog) Has(id ID) bool {
	_, ok := c.index[id]
	return ok
}

// Position returns the display index of id, or -1.
func (c *Catalog) Position(id ID) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

func (c *Catalog) IDs() []ID {
	ids := make([]ID, len(c.categories))
	for i, cat := range c.categories {
		ids[i] = cat.ID
	}
	return ids
}
