package aggregate

import (
	"go.uber.org/zap"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
)

// occupiedCells counts visiting citizens across the building's citizen unit
// list. It reports false when the list exceeds the walk limit, in which case
// the building's cells are left out of this cycle.
func (c *cycle) occupiedCells(b city.Building) (int, bool) {
	occupied := 0
	steps := 0
	for unit := b.CitizenUnits; unit != 0; {
		u, ok := c.world.CitizenUnit(unit)
		if !ok {
			break
		}
		if u.Visit {
			for _, citizen := range u.Citizens {
				if citizen != 0 && c.world.CitizenVisiting(citizen) {
					occupied++
				}
			}
		}
		unit = u.Next
		steps++
		if steps > c.a.unitLimit {
			c.a.log.Warn("invalid citizen unit list",
				zap.String("collector", c.name),
				zap.Uint32("building_id", uint32(b.ID)),
				zap.Int("limit", c.a.unitLimit),
			)
			c.a.tel.IntegrityFault(c.ctx, c.name)
			return 0, false
		}
	}
	return occupied, true
}
