package city

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultProductionRate applies to services a capture carries no rate for.
const DefaultProductionRate = 100

type buildingEntry struct {
	b        Building
	vehicles map[TransferReason]int
}

// State is an in-memory Provider backed by a Capture.
// Reads are safe from any goroutine; Replace swaps the whole world at once.
type State struct {
	mu sync.RWMutex

	loaded   bool
	name     string
	tick     uint64
	features map[Feature]bool

	districts map[DistrictID]District
	traffic   int
	total     map[Resource]int
	global    map[Resource]int
	rates     map[Service]int

	buildings map[BuildingID]*buildingEntry
	byService map[Service][]BuildingID
	units     map[UnitID]CitizenUnit
	visiting  map[CitizenID]bool
}

var (
	_ Provider    = (*State)(nil)
	_ Snapshotter = (*State)(nil)
)

// NewState builds a loaded State from c.
func NewState(c Capture) (*State, error) {
	s := &State{}
	if err := s.Replace(c); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace installs c as the current world and marks the state loaded.
func (s *State) Replace(c Capture) error {
	districts := make(map[DistrictID]District, len(c.Districts))
	for _, d := range c.Districts {
		if _, dup := districts[d.ID]; dup {
			return fmt.Errorf("duplicate district %d", d.ID)
		}
		districts[d.ID] = d
	}

	buildings := make(map[BuildingID]*buildingEntry, len(c.Buildings))
	byService := map[Service][]BuildingID{}
	for _, r := range c.Buildings {
		if r.ID == 0 {
			return fmt.Errorf("building id 0 is reserved")
		}
		if _, dup := buildings[r.ID]; dup {
			return fmt.Errorf("duplicate building %d", r.ID)
		}
		ai, err := r.ai()
		if err != nil {
			return err
		}
		e := &buildingEntry{
			b: Building{
				ID:           r.ID,
				Service:      r.Service,
				Level:        r.Level,
				District:     r.District,
				Downgrading:  r.Downgrading,
				CitizenUnits: r.CitizenUnits,
				AI:           ai,
			},
			vehicles: copyCounts(r.Vehicles),
		}
		buildings[r.ID] = e
		byService[r.Service] = append(byService[r.Service], r.ID)
	}
	for svc := range byService {
		ids := byService[svc]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	units := make(map[UnitID]CitizenUnit, len(c.Units))
	for _, u := range c.Units {
		if u.ID == 0 {
			return fmt.Errorf("unit id 0 is reserved")
		}
		if len(u.Citizens) > 5 {
			return fmt.Errorf("unit %d: %d citizens, max 5", u.ID, len(u.Citizens))
		}
		cu := CitizenUnit{Next: u.Next, Visit: u.Visit}
		copy(cu.Citizens[:], u.Citizens)
		units[u.ID] = cu
	}
	visiting := make(map[CitizenID]bool, len(c.Visiting))
	for _, id := range c.Visiting {
		visiting[id] = true
	}
	features := make(map[Feature]bool, len(c.Features))
	for _, f := range c.Features {
		features[f] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.name = c.CityName
	s.tick = c.Tick
	s.features = features
	s.districts = districts
	s.traffic = c.TrafficFlow
	s.total = copyCounts(c.TotalResources)
	s.global = copyCounts(c.GlobalResources)
	s.rates = copyCounts(c.ProductionRates)
	s.buildings = buildings
	s.byService = byService
	s.units = units
	s.visiting = visiting
	return nil
}

// SetLoaded toggles whether a city counts as loaded without touching its data.
func (s *State) SetLoaded(v bool) {
	s.mu.Lock()
	s.loaded = v
	s.mu.Unlock()
}

// Snapshot returns a State that keeps answering from the current capture
// after later Replace calls. Replace installs fresh maps, so the copy shares
// them without cloning.
func (s *State) Snapshot() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &State{
		loaded:    s.loaded,
		name:      s.name,
		tick:      s.tick,
		features:  s.features,
		districts: s.districts,
		traffic:   s.traffic,
		total:     s.total,
		global:    s.global,
		rates:     s.rates,
		buildings: s.buildings,
		byService: s.byService,
		units:     s.units,
		visiting:  s.visiting,
	}
}

func (s *State) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *State) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Capture returns a serialisable copy of the current world.
func (s *State) Capture() Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Capture{
		CityName:        s.name,
		Tick:            s.tick,
		TrafficFlow:     s.traffic,
		TotalResources:  copyCounts(s.total),
		GlobalResources: copyCounts(s.global),
		ProductionRates: copyCounts(s.rates),
	}
	for f := range s.features {
		c.Features = append(c.Features, f)
	}
	sort.Slice(c.Features, func(i, j int) bool { return c.Features[i] < c.Features[j] })

	for _, d := range s.districts {
		c.Districts = append(c.Districts, d)
	}
	sort.Slice(c.Districts, func(i, j int) bool { return c.Districts[i].ID < c.Districts[j].ID })

	for _, id := range sortedBuildingIDs(s.buildings) {
		e := s.buildings[id]
		c.Buildings = append(c.Buildings, recordFor(e.b, e.vehicles))
	}

	unitIDs := make([]UnitID, 0, len(s.units))
	for id := range s.units {
		unitIDs = append(unitIDs, id)
	}
	sort.Slice(unitIDs, func(i, j int) bool { return unitIDs[i] < unitIDs[j] })
	for _, id := range unitIDs {
		u := s.units[id]
		r := UnitRecord{ID: id, Next: u.Next, Visit: u.Visit}
		n := len(u.Citizens)
		for n > 0 && u.Citizens[n-1] == 0 {
			n--
		}
		if n > 0 {
			r.Citizens = append([]CitizenID(nil), u.Citizens[:n]...)
		}
		c.Units = append(c.Units, r)
	}

	for id, v := range s.visiting {
		if v {
			c.Visiting = append(c.Visiting, id)
		}
	}
	sort.Slice(c.Visiting, func(i, j int) bool { return c.Visiting[i] < c.Visiting[j] })
	return c
}

func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *State) HasFeature(f Feature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features[f]
}

func (s *State) District(id DistrictID) (District, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.districts[id]
	return d, ok
}

func (s *State) TotalResource(r Resource) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total[r]
}

func (s *State) GlobalResource(r Resource) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global[r]
}

func (s *State) TrafficFlow() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traffic
}

func (s *State) ServiceBuildings(svc Service) []BuildingID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]BuildingID(nil), s.byService[svc]...)
}

func (s *State) Building(id BuildingID) (Building, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.buildings[id]
	if !ok {
		return Building{}, false
	}
	return e.b, true
}

func (s *State) ProductionRate(svc Service) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rates[svc]; ok {
		return r
	}
	return DefaultProductionRate
}

func (s *State) OwnVehicles(id BuildingID, r TransferReason) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.buildings[id]
	if !ok {
		return 0
	}
	return e.vehicles[r]
}

func (s *State) CitizenUnit(id UnitID) (CitizenUnit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	return u, ok
}

func (s *State) CitizenVisiting(id CitizenID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visiting[id]
}

func copyCounts[K comparable](in map[K]int) map[K]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[K]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
