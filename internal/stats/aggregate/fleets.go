package aggregate

import (
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"
)

// tally sums capacity and in-use counts across buildings.
type tally struct {
	total int64
	inUse int64
}

func (t *tally) add(total, inUse int) {
	t.total += int64(total)
	t.inUse += int64(inUse)
}

func (t tally) usage() metric.Sample { return metric.UsagePercent(t.total, t.inUse) }

// buildings yields each service building with a known behaviour.
func (c *cycle) buildings(s city.Service, fn func(b city.Building)) {
	for _, id := range c.world.ServiceBuildings(s) {
		b, ok := c.world.Building(id)
		if !ok || b.AI == nil {
			continue
		}
		fn(b)
	}
}

// fleet returns the effective fleet size of b at its service's production rate.
func (c *cycle) fleet(b city.Building, nominal int) int {
	return metric.EffectiveCount(nominal, c.world.ProductionRate(b.Service))
}

func fleetCollectors() []collector {
	return []collector{
		{
			name:    "water_pumping",
			outputs: []catalogs.ID{catalogs.WaterPumpingServiceStorage, catalogs.WaterPumpingServiceVehicles},
			run:     collectWaterPumping,
		},
		{
			name:    "garbage_fleet",
			outputs: []catalogs.ID{catalogs.LandfillVehicles, catalogs.GarbageProcessingVehicles},
			run:     collectGarbageFleet,
		},
		{
			name: "healthcare_fleet",
			outputs: []catalogs.ID{
				catalogs.HealthcareVehicles, catalogs.MedicalHelicopters,
				catalogs.CemeteryVehicles, catalogs.CrematoriumVehicles,
			},
			run: collectHealthcareFleet,
		},
		{
			name:    "fire_fleet",
			outputs: []catalogs.ID{catalogs.FireDepartmentVehicles, catalogs.FireHelicopters},
			run:     collectFireFleet,
		},
		{
			name: "police",
			outputs: []catalogs.ID{
				catalogs.PoliceHoldingCells, catalogs.PoliceVehicles, catalogs.PoliceHelicopters,
				catalogs.PrisonCells, catalogs.PrisonVehicles,
			},
			run: collectPolice,
		},
		{
			name:    "road_maintenance",
			outputs: []catalogs.ID{catalogs.RoadMaintenanceVehicles, catalogs.SnowDump, catalogs.SnowDumpVehicles},
			run:     collectRoadMaintenance,
		},
		{
			name:    "park_maintenance",
			outputs: []catalogs.ID{catalogs.ParkMaintenanceVehicles},
			run:     collectParkMaintenance,
		},
		{
			name:    "public_transport",
			outputs: []catalogs.ID{catalogs.Taxis, catalogs.PostVans, catalogs.PostTrucks},
			run:     collectPublicTransport,
		},
		{
			name:    "disaster_response",
			outputs: []catalogs.ID{catalogs.DisasterResponseVehicles, catalogs.DisasterResponseHelicopters},
			run:     collectDisasterResponse,
		},
	}
}

func collectWaterPumping(c *cycle) {
	var storage, vehicles tally
	c.buildings(city.ServiceWater, func(b city.Building) {
		w, ok := b.AI.(city.WaterFacility)
		if !ok || !w.PumpingService() {
			return
		}
		storage.total += int64(w.SewageStorage)
		storage.inUse += w.SewageStored
		vehicles.add(c.fleet(b, w.PumpingVehicles), c.world.OwnVehicles(b.ID, city.TransferFloodWater))
	})
	c.set(catalogs.WaterPumpingServiceStorage, storage.usage())
	c.set(catalogs.WaterPumpingServiceVehicles, vehicles.usage())
}

func collectGarbageFleet(c *cycle) {
	var landfill, processing tally
	c.buildings(city.ServiceGarbage, func(b city.Building) {
		l, ok := b.AI.(city.LandfillSite)
		if !ok {
			return
		}
		trucks := c.fleet(b, l.Trucks)
		inUse := c.world.OwnVehicles(b.ID, b.Transfer(city.TransferGarbage, city.TransferGarbageMove))
		if l.Processing() {
			processing.add(trucks, inUse)
		} else {
			landfill.add(trucks, inUse)
		}
	})
	c.set(catalogs.LandfillVehicles, landfill.usage())
	c.set(catalogs.GarbageProcessingVehicles, processing.usage())
}

func collectHealthcareFleet(c *cycle) {
	var ambulances, helicopters, hearses, crematoria tally
	c.buildings(city.ServiceHealthCare, func(b city.Building) {
		switch ai := b.AI.(type) {
		case city.Hospital:
			if c.want(catalogs.HealthcareVehicles) {
				ambulances.add(c.fleet(b, ai.Ambulances), c.world.OwnVehicles(b.ID, city.TransferSick))
			}
		case city.HelicopterDepot:
			if c.want(catalogs.MedicalHelicopters) {
				helicopters.add(c.fleet(b, ai.Helicopters), c.world.OwnVehicles(b.ID, city.TransferSick2))
			}
		case city.Cemetery:
			if !c.wantAny(catalogs.CemeteryVehicles, catalogs.CrematoriumVehicles) {
				return
			}
			n := c.fleet(b, ai.Hearses)
			inUse := c.world.OwnVehicles(b.ID, b.Transfer(city.TransferDead, city.TransferDeadMove))
			if ai.Crematorium() {
				crematoria.add(n, inUse)
			} else {
				hearses.add(n, inUse)
			}
		}
	})
	c.set(catalogs.HealthcareVehicles, ambulances.usage())
	c.set(catalogs.MedicalHelicopters, helicopters.usage())
	c.set(catalogs.CemeteryVehicles, hearses.usage())
	c.set(catalogs.CrematoriumVehicles, crematoria.usage())
}

func collectFireFleet(c *cycle) {
	var trucks, helicopters tally
	c.buildings(city.ServiceFireDepartment, func(b city.Building) {
		switch ai := b.AI.(type) {
		case city.FireStation:
			if c.want(catalogs.FireDepartmentVehicles) {
				trucks.add(c.fleet(b, ai.Trucks), c.world.OwnVehicles(b.ID, city.TransferFire))
			}
		case city.HelicopterDepot:
			if c.want(catalogs.FireHelicopters) {
				// Forest and building fire dispatches are both counted.
				inUse := c.world.OwnVehicles(b.ID, city.TransferForestFire) + c.world.OwnVehicles(b.ID, city.TransferFire2)
				helicopters.add(c.fleet(b, ai.Helicopters), inUse)
			}
		}
	})
	c.set(catalogs.FireDepartmentVehicles, trucks.usage())
	c.set(catalogs.FireHelicopters, helicopters.usage())
}

func collectPolice(c *cycle) {
	var holding, cars, helicopters, prison, prisonCars tally
	wantCells := c.wantAny(catalogs.PoliceHoldingCells, catalogs.PrisonCells)
	c.buildings(city.ServicePolice, func(b city.Building) {
		switch ai := b.AI.(type) {
		case city.PoliceStation:
			n := c.fleet(b, ai.PoliceCars)
			cellsTally, carsTally, reason := &holding, &cars, city.TransferCrime
			if b.Level >= city.PrisonLevel {
				cellsTally, carsTally, reason = &prison, &prisonCars, city.TransferCriminalMove
			}
			carsTally.add(n, c.world.OwnVehicles(b.ID, reason))
			if wantCells {
				if occupied, ok := c.occupiedCells(b); ok {
					cellsTally.add(ai.JailCapacity, occupied)
				}
			}
		case city.HelicopterDepot:
			if c.want(catalogs.PoliceHelicopters) {
				helicopters.add(c.fleet(b, ai.Helicopters), c.world.OwnVehicles(b.ID, city.TransferCrime))
			}
		}
	})
	c.set(catalogs.PoliceHoldingCells, holding.usage())
	c.set(catalogs.PoliceVehicles, cars.usage())
	c.set(catalogs.PoliceHelicopters, helicopters.usage())
	c.set(catalogs.PrisonCells, prison.usage())
	c.set(catalogs.PrisonVehicles, prisonCars.usage())
}

func collectRoadMaintenance(c *cycle) {
	var trucks, snowStorage, snowTrucks tally
	wantSnow := c.wantAny(catalogs.SnowDump, catalogs.SnowDumpVehicles)
	c.buildings(city.ServiceRoad, func(b city.Building) {
		switch ai := b.AI.(type) {
		case city.MaintenanceDepot:
			if c.want(catalogs.RoadMaintenanceVehicles) {
				trucks.add(c.fleet(b, ai.Trucks), c.world.OwnVehicles(b.ID, city.TransferRoadMaintenance))
			}
		case city.SnowDump:
			if !wantSnow {
				return
			}
			snowStorage.add(ai.SnowCapacity, ai.SnowAmount)
			snowTrucks.add(c.fleet(b, ai.Trucks), c.world.OwnVehicles(b.ID, b.Transfer(city.TransferSnow, city.TransferSnowMove)))
		}
	})
	c.set(catalogs.RoadMaintenanceVehicles, trucks.usage())
	c.set(catalogs.SnowDump, snowStorage.usage())
	c.set(catalogs.SnowDumpVehicles, snowTrucks.usage())
}

func collectParkMaintenance(c *cycle) {
	var trucks tally
	c.buildings(city.ServiceBeautification, func(b city.Building) {
		m, ok := b.AI.(city.MaintenanceDepot)
		if !ok || m.Transfer == city.TransferNone {
			return
		}
		rate := c.world.ProductionRate(b.Service)
		if m.Transfer == city.TransferParkMaintenance {
			if d, ok := c.world.District(b.District); ok && d.ParkMaintenanceBoost {
				rate *= 2
			}
		}
		trucks.add(metric.EffectiveCount(m.Trucks, rate), c.world.OwnVehicles(b.ID, m.Transfer))
	})
	c.set(catalogs.ParkMaintenanceVehicles, trucks.usage())
}

func collectPublicTransport(c *cycle) {
	var taxis, vans, postTrucks tally
	c.buildings(city.ServicePublicTransport, func(b city.Building) {
		switch ai := b.AI.(type) {
		case city.TransportDepot:
			if !c.want(catalogs.Taxis) || ai.TransportType != city.TransportTaxi || ai.MaxVehicles == 0 {
				return
			}
			taxis.add(c.fleet(b, ai.MaxVehicles), c.world.OwnVehicles(b.ID, city.TransferTaxi))
		case city.PostOffice:
			if c.want(catalogs.PostVans) {
				vans.add(c.fleet(b, ai.Vans), c.world.OwnVehicles(b.ID, city.TransferMail))
			}
			if c.want(catalogs.PostTrucks) {
				postTrucks.add(c.fleet(b, ai.Trucks), c.world.OwnVehicles(b.ID, city.TransferSortedMail))
			}
		}
	})
	c.set(catalogs.Taxis, taxis.usage())
	c.set(catalogs.PostVans, vans.usage())
	c.set(catalogs.PostTrucks, postTrucks.usage())
}

func collectDisasterResponse(c *cycle) {
	var vehicles, helicopters tally
	c.buildings(city.ServiceDisaster, func(b city.Building) {
		d, ok := b.AI.(city.DisasterResponse)
		if !ok {
			return
		}
		if c.want(catalogs.DisasterResponseVehicles) {
			vehicles.add(c.fleet(b, d.Vehicles), c.world.OwnVehicles(b.ID, city.TransferCollapsed))
		}
		if c.want(catalogs.DisasterResponseHelicopters) {
			helicopters.add(c.fleet(b, d.Helicopters), c.world.OwnVehicles(b.ID, city.TransferCollapsed2))
		}
	})
	c.set(catalogs.DisasterResponseVehicles, vehicles.usage())
	c.set(catalogs.DisasterResponseHelicopters, helicopters.usage())
}
