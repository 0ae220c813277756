package observer

import (
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/observerproto"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/config"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/stats/dashboard"
)

func viewMsg(v dashboard.View, skipHidden bool) observerproto.ViewMsg {
	m := observerproto.ViewMsg{
		Type:            observerproto.TypeView,
		ProtocolVersion: observerproto.Version,
		Seq:             v.Seq,
		Shown:           v.Shown,
		Opacity:         v.Opacity,
		Position:        [2]int{v.Position.X, v.Position.Y},
		Size:            [2]int{v.Size.Width, v.Size.Height},
		Background:      config.FormatColor(v.Background),
		Title:           v.Title,
		Widgets:         make([]observerproto.WidgetState, 0, len(v.Widgets)),
	}
	for _, w := range v.Widgets {
		if skipHidden && !w.Visible {
			continue
		}
		ws := observerproto.WidgetState{
			ID:      string(w.Category.ID),
			Label:   w.Label,
			Visible: w.Visible,
		}
		if val, ok := w.Sample.Value(); ok {
			ws.Value = &val
		}
		if w.Visible {
			ws.Text = w.Text
			ws.Cell = [2]int{w.Cell.Column, w.Cell.Row}
			ws.Pos = [2]int{w.Position.X, w.Position.Y}
			ws.Color = config.FormatColor(w.Color)
			ws.HoverColor = config.FormatColor(w.HoverColor)
		}
		m.Widgets = append(m.Widgets, ws)
	}
	return m
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
