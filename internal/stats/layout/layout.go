package layout

import (
	"errors"
	"fmt"
)

// ErrColumns is returned for a column count below one.
var ErrColumns = errors.New("column count must be at least 1")

type Params struct {
	Columns    int
	ItemWidth  int
	ItemHeight int
	Padding    int
}

func (p Params) Validate() error {
	if p.Columns < 1 {
		return fmt.Errorf("%w: got %d", ErrColumns, p.Columns)
	}
	if p.ItemWidth < 0 || p.ItemHeight < 0 || p.Padding < 0 {
		return fmt.Errorf("item size and padding must be non-negative: %dx%d pad %d", p.ItemWidth, p.ItemHeight, p.Padding)
	}
	return nil
}

type Cell struct {
	Column int
	Row    int
}

type Point struct {
	X int
	Y int
}

type Size struct {
	Width  int
	Height int
}

// Slot is the placement of one visible item.
type Slot struct {
	Cell     Cell
	Position Point
}

// Result of one layout pass. Slots is parallel to the input; hidden items
// get a nil entry.
type Result struct {
	Slots   []*Slot
	Visible int
	// Shown is false when nothing is visible; Size is then zero.
	Shown bool
	Size  Size
}

// Arrange places the visible items, in order, on a grid of p.Columns columns.
// p must be valid.
func Arrange(visible []bool, p Params) Result {
	res := Result{Slots: make([]*Slot, len(visible))}
	idx := 0
	for i, v := range visible {
		if !v {
			continue
		}
		cell := Cell{Column: idx % p.Columns, Row: idx / p.Columns}
		res.Slots[i] = &Slot{Cell: cell, Position: p.Position(cell)}
		idx++
	}
	res.Visible = idx
	if idx == 0 {
		return res
	}
	res.Shown = true
	res.Size = p.Container(idx)
	return res
}

// Position is the pixel offset of a cell inside the container.
func (p Params) Position(c Cell) Point {
	return Point{
		X: c.Column*p.ItemWidth + (c.Column+1)*p.Padding,
		Y: c.Row*p.ItemHeight + (c.Row+1)*p.Padding,
	}
}

// Container is the size needed for n visible items (n > 0).
func (p Params) Container(n int) Size {
	cols := p.Columns
	if n < cols {
		cols = n
	}
	rows := (n + p.Columns - 1) / p.Columns
	return Size{
		Width:  (cols+1)*p.Padding + cols*p.ItemWidth,
		Height: (rows+1)*p.Padding + rows*p.ItemHeight,
	}
}
