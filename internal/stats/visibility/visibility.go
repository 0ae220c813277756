package visibility

import "github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/metric"

// Rules are the global visibility toggles.
type Rules struct {
	HideNotAvailable   bool
	HideBelowThreshold bool
}

// Color is an RGBA colour.
type Color struct {
	R, G, B, A uint8
}

// Palette holds the two text colours a widget alternates between.
type Palette struct {
	Foreground Color
	Accent     Color
}

// Style is the derived presentation of a visible widget.
type Style struct {
	Text       string
	Color      Color
	HoverColor Color
}

// Decide reports whether a widget is shown.
func Decide(enabled bool, s metric.Sample, threshold int, r Rules) bool {
	if !enabled {
		return false
	}
	if v, ok := s.Value(); ok {
		if r.HideBelowThreshold {
			return threshold < v
		}
		return true
	}
	return !r.HideNotAvailable
}

// Critical reports whether s is unavailable or at or above threshold.
func Critical(s metric.Sample, threshold int) bool {
	v, ok := s.Value()
	return !ok || v >= threshold
}

// StyleFor derives text and colours. Critical samples use the accent colour
// and hover back to the foreground; the rest do the opposite.
func StyleFor(s metric.Sample, threshold int, p Palette) Style {
	st := Style{Text: s.String(), Color: p.Foreground, HoverColor: p.Accent}
	if Critical(s, threshold) {
		st.Color, st.HoverColor = p.Accent, p.Foreground
	}
	return st
}

// Decision is the outcome of classifying one widget for a cycle.
type Decision struct {
	Visible bool
	// Changed is true when Visible differs from the previous cycle. It is the
	// only signal that triggers a layout pass.
	Changed bool
	// Style is zero when the widget is hidden.
	Style Style
}

// Engine applies the current rules and palette.
type Engine struct {
	Rules   Rules
	Palette Palette
}

func (e Engine) Classify(prevVisible, enabled bool, s metric.Sample, threshold int) Decision {
	d := Decision{Visible: Decide(enabled, s, threshold, e.Rules)}
	d.Changed = d.Visible != prevVisible
	if d.Visible {
		d.Style = StyleFor(s, threshold, e.Palette)
	}
	return d
}
