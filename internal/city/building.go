package city

// Kind names a building behaviour variant.
type Kind string

const (
	KindHospital         Kind = "hospital"
	KindHelicopterDepot  Kind = "helicopter_depot"
	KindCemetery         Kind = "cemetery"
	KindPoliceStation    Kind = "police_station"
	KindMaintenanceDepot Kind = "maintenance_depot"
	KindSnowDump         Kind = "snow_dump"
	KindPostOffice       Kind = "post_office"
	KindDisasterResponse Kind = "disaster_response"
	KindWaterFacility    Kind = "water_facility"
	KindLandfillSite     Kind = "landfill_site"
	KindFireStation      Kind = "fire_station"
	KindTransportDepot   Kind = "transport_depot"
)

// PrisonLevel is the first police service tier that runs as a prison.
const PrisonLevel = 4

// AI is the closed set of building behaviour variants. Each variant carries
// only the configured values its aggregation needs.
type AI interface {
	Kind() Kind
}

type Hospital struct {
	Ambulances int
}

type HelicopterDepot struct {
	Helicopters int
}

// Cemetery covers cemeteries and crematoria; a crematorium has no graves.
type Cemetery struct {
	Hearses int
	Graves  int
}

func (c Cemetery) Crematorium() bool { return c.Graves == 0 }

type PoliceStation struct {
	PoliceCars   int
	JailCapacity int
}

// MaintenanceDepot serves roads or parks depending on Transfer.
type MaintenanceDepot struct {
	Trucks   int
	Transfer TransferReason
}

type SnowDump struct {
	Trucks       int
	SnowCapacity int
	SnowAmount   int
}

type PostOffice struct {
	Vans   int
	Trucks int
}

type DisasterResponse struct {
	Vehicles    int
	Helicopters int
}

type WaterFacility struct {
	WaterIntake     int
	WaterOutlet     int
	WaterStorage    int
	SewageOutlet    int
	SewageStorage   int
	PumpingVehicles int
	// SewageStored is the sewage currently held by the facility.
	SewageStored int64
}

// PumpingService reports whether the facility is a pumping-service building
// rather than a combined intake/outlet/storage plant.
func (w WaterFacility) PumpingService() bool {
	if w.WaterIntake != 0 && w.WaterOutlet != 0 && w.WaterStorage != 0 {
		return false
	}
	return w.SewageOutlet != 0 && w.SewageStorage != 0 && w.PumpingVehicles != 0
}

type LandfillSite struct {
	Trucks             int
	GarbageConsumption int
}

// Processing reports whether the site burns or recycles garbage instead of storing it.
func (l LandfillSite) Processing() bool { return l.GarbageConsumption > 0 }

type FireStation struct {
	Trucks int
}

type TransportDepot struct {
	MaxVehicles   int
	TransportType string
}

const TransportTaxi = "taxi"

func (Hospital) Kind() Kind         { return KindHospital }
func (HelicopterDepot) Kind() Kind  { return KindHelicopterDepot }
func (Cemetery) Kind() Kind         { return KindCemetery }
func (PoliceStation) Kind() Kind    { return KindPoliceStation }
func (MaintenanceDepot) Kind() Kind { return KindMaintenanceDepot }
func (SnowDump) Kind() Kind         { return KindSnowDump }
func (PostOffice) Kind() Kind       { return KindPostOffice }
func (DisasterResponse) Kind() Kind { return KindDisasterResponse }
func (WaterFacility) Kind() Kind    { return KindWaterFacility }
func (LandfillSite) Kind() Kind     { return KindLandfillSite }
func (FireStation) Kind() Kind      { return KindFireStation }
func (TransportDepot) Kind() Kind   { return KindTransportDepot }

type Building struct {
	ID          BuildingID
	Service     Service
	Level       int
	District    DistrictID
	Downgrading bool
	// CitizenUnits is the head of the building's citizen unit list (0 = none).
	CitizenUnits UnitID
	// AI is nil for buildings without a known behaviour.
	AI AI
}

// Transfer picks the primary transfer reason, or the wind-down reason while
// the building is downgrading.
func (b Building) Transfer(primary, downgrading TransferReason) TransferReason {
	if b.Downgrading {
		return downgrading
	}
	return primary
}

// CitizenUnit is one node of a building's citizen unit list.
type CitizenUnit struct {
	Next     UnitID
	Visit    bool
	Citizens [5]CitizenID
}
