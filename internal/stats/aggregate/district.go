package aggregate

import (
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"
)

// ratioSource reads a capacity and a usage (or need) counter pair from the
// city-wide district.
type ratioSource struct {
	id       catalogs.ID
	reduce   func(capacity, usage int64) metric.Sample
	counters func(d city.District) (capacity, usage int64)
}

var districtRatios = []ratioSource{
	{catalogs.Electricity, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.ElectricityCapacity, d.ElectricityConsumption
	}},
	{catalogs.Heating, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.HeatingCapacity, d.HeatingConsumption
	}},
	{catalogs.Water, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.WaterCapacity, d.WaterConsumption
	}},
	{catalogs.SewageTreatment, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.SewageCapacity, d.SewageAccumulation
	}},
	{catalogs.WaterReserveTank, metric.AvailabilityPercent, func(d city.District) (int64, int64) {
		return d.WaterStorageCapacity, d.WaterStorageAmount
	}},
	{catalogs.Landfill, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.GarbageCapacity, d.GarbageAmount
	}},
	{catalogs.GarbageProcessing, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.IncinerationCapacity, d.GarbageAccumulation
	}},
	{catalogs.ElementarySchool, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.Education1Capacity, d.Education1Need
	}},
	{catalogs.HighSchool, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.Education2Capacity, d.Education2Need
	}},
	{catalogs.University, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.Education3Capacity, d.Education3Need
	}},
	{catalogs.Healthcare, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.HealCapacity, d.SickCount
	}},
	{catalogs.Cemetery, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.DeadCapacity, d.DeadAmount
	}},
	{catalogs.Crematorium, metric.UsagePercent, func(d city.District) (int64, int64) {
		return d.CremateCapacity, d.DeadCount
	}},
}

// districtScores are 0..100 scores read from the city-wide district.
var districtScores = []struct {
	id    catalogs.ID
	score func(d city.District) metric.Sample
}{
	{catalogs.AverageIllnessRate, func(d city.District) metric.Sample { return metric.Inverse(d.FinalHealth) }},
	{catalogs.GroundPollution, func(d city.District) metric.Sample { return metric.Percent(d.GroundPollution) }},
	{catalogs.DrinkingWaterPollution, func(d city.District) metric.Sample { return metric.Percent(d.WaterPollution) }},
	{catalogs.CrimeRate, func(d city.District) metric.Sample { return metric.Percent(d.FinalCrimeRate) }},
	{catalogs.Unemployment, func(d city.District) metric.Sample { return metric.Percent(d.Unemployment) }},
}

func districtCollectors() []collector {
	var cols []collector
	for _, src := range districtRatios {
		src := src
		cols = append(cols, collector{
			name:    string(src.id),
			outputs: []catalogs.ID{src.id},
			run: func(c *cycle) {
				d, ok := c.world.District(city.CityDistrict)
				if !ok {
					return
				}
				capacity, usage := src.counters(d)
				c.set(src.id, src.reduce(capacity, usage))
			},
		})
	}
	for _, src := range districtScores {
		src := src
		cols = append(cols, collector{
			name:    string(src.id),
			outputs: []catalogs.ID{src.id},
			run: func(c *cycle) {
				d, ok := c.world.District(city.CityDistrict)
				if !ok {
					return
				}
				c.set(src.id, src.score(d))
			},
		})
	}

	cols = append(cols,
		collector{
			name:    string(catalogs.NoisePollution),
			outputs: []catalogs.ID{catalogs.NoisePollution},
			run: func(c *cycle) {
				c.set(catalogs.NoisePollution, metric.Percent(c.world.TotalResource(city.ResourceNoisePollution)))
			},
		},
		collector{
			name:    string(catalogs.FireHazard),
			outputs: []catalogs.ID{catalogs.FireHazard},
			run: func(c *cycle) {
				c.set(catalogs.FireHazard, metric.Percent(c.world.TotalResource(city.ResourceFireHazard)))
			},
		},
		collector{
			name:    string(catalogs.TrafficJam),
			outputs: []catalogs.ID{catalogs.TrafficJam},
			run: func(c *cycle) {
				c.set(catalogs.TrafficJam, metric.Inverse(c.world.TrafficFlow()))
			},
		},
		collector{
			name:    string(catalogs.CityUnattractiveness),
			outputs: []catalogs.ID{catalogs.CityUnattractiveness},
			run: func(c *cycle) {
				attractiveness := c.world.GlobalResource(city.ResourceAttractiveness)
				landValue := c.world.TotalResource(city.ResourceLandValue)
				c.set(catalogs.CityUnattractiveness, metric.Unattractiveness(attractiveness, landValue))
			},
		},
	)
	return cols
}
