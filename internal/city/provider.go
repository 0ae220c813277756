package city

type (
	DistrictID uint8
	BuildingID uint32
	UnitID     uint32
	CitizenID  uint32
)

// CityDistrict aggregates the whole city.
const CityDistrict DistrictID = 0

type Service string

const (
	ServiceWater           Service = "water"
	ServiceGarbage         Service = "garbage"
	ServiceHealthCare      Service = "healthcare"
	ServiceFireDepartment  Service = "fire_department"
	ServicePolice          Service = "police"
	ServiceRoad            Service = "road"
	ServiceBeautification  Service = "beautification"
	ServicePublicTransport Service = "public_transport"
	ServiceDisaster        Service = "disaster"
	ServiceEducation       Service = "education"
	ServiceElectricity     Service = "electricity"
)

// TransferReason is the purpose a vehicle was dispatched for.
type TransferReason string

const (
	TransferNone            TransferReason = ""
	TransferFloodWater      TransferReason = "flood_water"
	TransferGarbage         TransferReason = "garbage"
	TransferGarbageMove     TransferReason = "garbage_move"
	TransferSick            TransferReason = "sick"
	TransferSick2           TransferReason = "sick2"
	TransferDead            TransferReason = "dead"
	TransferDeadMove        TransferReason = "dead_move"
	TransferFire            TransferReason = "fire"
	TransferFire2           TransferReason = "fire2"
	TransferForestFire      TransferReason = "forest_fire"
	TransferCrime           TransferReason = "crime"
	TransferCriminalMove    TransferReason = "criminal_move"
	TransferRoadMaintenance TransferReason = "road_maintenance"
	TransferParkMaintenance TransferReason = "park_maintenance"
	TransferSnow            TransferReason = "snow"
	TransferSnowMove        TransferReason = "snow_move"
	TransferTaxi            TransferReason = "taxi"
	TransferMail            TransferReason = "mail"
	TransferSortedMail      TransferReason = "sorted_mail"
	TransferCollapsed       TransferReason = "collapsed"
	TransferCollapsed2      TransferReason = "collapsed2"
)

// Resource names an immaterial resource map.
type Resource string

const (
	ResourceNoisePollution Resource = "noise_pollution"
	ResourceFireHazard     Resource = "fire_hazard"
	ResourceLandValue      Resource = "land_value"
	ResourceAttractiveness Resource = "attractiveness"
)

// Feature is an optional map facility whose presence varies per session.
type Feature string

const (
	FeatureSnowDumps Feature = "snow_dumps"
)

// District carries the aggregated counters the simulation keeps per district.
type District struct {
	ID DistrictID `yaml:"id" json:"id"`

	ElectricityCapacity    int64 `yaml:"electricity_capacity" json:"electricity_capacity"`
	ElectricityConsumption int64 `yaml:"electricity_consumption" json:"electricity_consumption"`
	HeatingCapacity        int64 `yaml:"heating_capacity" json:"heating_capacity"`
	HeatingConsumption     int64 `yaml:"heating_consumption" json:"heating_consumption"`
	WaterCapacity          int64 `yaml:"water_capacity" json:"water_capacity"`
	WaterConsumption       int64 `yaml:"water_consumption" json:"water_consumption"`
	SewageCapacity         int64 `yaml:"sewage_capacity" json:"sewage_capacity"`
	SewageAccumulation     int64 `yaml:"sewage_accumulation" json:"sewage_accumulation"`
	WaterStorageCapacity   int64 `yaml:"water_storage_capacity" json:"water_storage_capacity"`
	WaterStorageAmount     int64 `yaml:"water_storage_amount" json:"water_storage_amount"`

	GarbageCapacity      int64 `yaml:"garbage_capacity" json:"garbage_capacity"`
	GarbageAmount        int64 `yaml:"garbage_amount" json:"garbage_amount"`
	IncinerationCapacity int64 `yaml:"incineration_capacity" json:"incineration_capacity"`
	GarbageAccumulation  int64 `yaml:"garbage_accumulation" json:"garbage_accumulation"`

	Education1Capacity int64 `yaml:"education1_capacity" json:"education1_capacity"`
	Education1Need     int64 `yaml:"education1_need" json:"education1_need"`
	Education2Capacity int64 `yaml:"education2_capacity" json:"education2_capacity"`
	Education2Need     int64 `yaml:"education2_need" json:"education2_need"`
	Education3Capacity int64 `yaml:"education3_capacity" json:"education3_capacity"`
	Education3Need     int64 `yaml:"education3_need" json:"education3_need"`

	HealCapacity    int64 `yaml:"heal_capacity" json:"heal_capacity"`
	SickCount       int64 `yaml:"sick_count" json:"sick_count"`
	DeadCapacity    int64 `yaml:"dead_capacity" json:"dead_capacity"`
	DeadAmount      int64 `yaml:"dead_amount" json:"dead_amount"`
	CremateCapacity int64 `yaml:"cremate_capacity" json:"cremate_capacity"`
	DeadCount       int64 `yaml:"dead_count" json:"dead_count"`

	FinalHealth     int `yaml:"final_health" json:"final_health"`
	FinalCrimeRate  int `yaml:"final_crime_rate" json:"final_crime_rate"`
	GroundPollution int `yaml:"ground_pollution" json:"ground_pollution"`
	WaterPollution  int `yaml:"water_pollution" json:"water_pollution"`
	Unemployment    int `yaml:"unemployment" json:"unemployment"`

	ParkMaintenanceBoost bool `yaml:"park_maintenance_boost,omitempty" json:"park_maintenance_boost,omitempty"`
}

// Provider is a read-only view of the running simulation.
// Implementations must not have side effects on any query.
type Provider interface {
	// Loaded reports whether a city is currently loaded. Nothing is sampled otherwise.
	Loaded() bool
	HasFeature(f Feature) bool

	District(id DistrictID) (District, bool)
	TotalResource(r Resource) int
	GlobalResource(r Resource) int
	TrafficFlow() int

	ServiceBuildings(s Service) []BuildingID
	Building(id BuildingID) (Building, bool)
	// ProductionRate is the budget-derived production rate percentage of a service.
	ProductionRate(s Service) int
	// OwnVehicles counts the building's own active vehicles dispatched for r.
	OwnVehicles(id BuildingID, r TransferReason) int

	CitizenUnit(id UnitID) (CitizenUnit, bool)
	CitizenVisiting(id CitizenID) bool
}

// Snapshotter is implemented by providers whose data can be replaced while
// a cycle reads it. Snapshot returns a provider fixed to the current data.
type Snapshotter interface {
	Snapshot() Provider
}
