// Package metric holds the normalised sample type and the reductions that
// turn raw capacity/usage counters into percentages.
package metric

import (
	"math"
	"strconv"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/catalogs"
)

// Sample is a percentage or the explicit unavailable state.
// The zero value is unavailable.
type Sample struct {
	value int
	ok    bool
}

func Percent(v int) Sample { return Sample{value: v, ok: true} }

func Unavailable() Sample { return Sample{} }

// Value returns the percentage and whether one is present.
func (s Sample) Value() (int, bool) { return s.value, s.ok }

func (s Sample) Available() bool { return s.ok }

func (s Sample) String() string {
	if !s.ok {
		return "-%"
	}
	return strconv.Itoa(s.value) + "%"
}

// Samples holds one sample per session category for a single cycle.
type Samples map[catalogs.ID]Sample

// Get returns the sample for id; missing entries read as unavailable.
func (s Samples) Get(id catalogs.ID) Sample { return s[id] }

// UsagePercent reduces a consumption figure against capacity.
func UsagePercent(capacity, usage int64) Sample {
	if capacity == 0 {
		return Unavailable()
	}
	if usage == 0 {
		return Percent(0)
	}
	return Percent(int(math.Round(float64(usage) / float64(capacity) * 100)))
}

// AvailabilityPercent is the spare share of capacity left after need.
func AvailabilityPercent(capacity, need int64) Sample {
	if capacity == 0 {
		return Unavailable()
	}
	if need == 0 {
		return Percent(0)
	}
	return Percent(int(math.Round((1 - float64(need)/float64(capacity)) * 100)))
}

// EffectiveCount scales a nominal fleet or capacity by a budget production
// rate percentage, rounding up.
func EffectiveCount(nominal, ratePercent int) int {
	return (ratePercent*nominal + 99) / 100
}

// Unattractiveness folds the attractiveness and land value scores into an
// inverted 0..100 figure.
func Unattractiveness(attractiveness, landValue int) Sample {
	sum := attractiveness + landValue
	den := sum + 200
	if den < 200 {
		den = 200
	}
	return Percent(100 - 100*sum/den)
}

// Inverse turns a 0..100 health-like score into its complement.
func Inverse(score int) Sample { return Percent(100 - score) }
