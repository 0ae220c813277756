package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/visibility"
)

// ParseColor accepts #RRGGBB or #RRGGBBAA.
func ParseColor(s string) (visibility.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return visibility.Color{}, fmt.Errorf("bad colour %q", s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return visibility.Color{}, fmt.Errorf("bad colour %q: %w", s, err)
	}
	c := visibility.Color{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

func FormatColor(c visibility.Color) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
