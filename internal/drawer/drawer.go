// Package drawer models the bottom sheet that holds the question form: three
// resting positions, free movement while dragged, and fling-style snapping
// on release.
//
// Offsets are measured from the top of the screen, so the expanded position
// has the smallest offset and the collapsed position the largest. A Drawer is
// driven from a single UI goroutine and is not safe for concurrent use.
package drawer

import (
	"errors"
	"fmt"
)

// State is a named resting position.
type State int

const (
	Collapsed State = iota
	Mid
	Expanded
)

func (s State) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case Mid:
		return "mid"
	case Expanded:
		return "expanded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Breakpoints are the offsets of the three resting positions.
type Breakpoints struct {
	Expanded  float64
	Mid       float64
	Collapsed float64
}

var ErrBreakpointOrder = errors.New("drawer: breakpoints must satisfy expanded < mid < collapsed")

// Validate checks the ordering of the breakpoints.
func (b Breakpoints) Validate() error {
	if !(b.Expanded < b.Mid && b.Mid < b.Collapsed) {
		return ErrBreakpointOrder
	}
	return nil
}

// ForScreen derives breakpoints for a screen of the given height: expanded
// leaves a small top margin, mid sits halfway and collapsed shows only the
// header.
func ForScreen(screenHeight, headerHeight float64) Breakpoints {
	return Breakpoints{
		Expanded:  screenHeight * 0.08,
		Mid:       screenHeight * 0.5,
		Collapsed: screenHeight - headerHeight,
	}
}

// Offset returns the offset of a resting state.
func (b Breakpoints) Offset(s State) float64 {
	switch s {
	case Expanded:
		return b.Expanded
	case Mid:
		return b.Mid
	default:
		return b.Collapsed
	}
}

type Drawer struct {
	bp       Breakpoints
	state    State
	offset   float64
	scroll   float64
	dragging bool
	selected string
}

// New returns a collapsed drawer.
func New(bp Breakpoints) (*Drawer, error) {
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return &Drawer{bp: bp, state: Collapsed, offset: bp.Collapsed}, nil
}

func (d *Drawer) State() State             { return d.state }
func (d *Drawer) Offset() float64          { return d.offset }
func (d *Drawer) ScrollOffset() float64    { return d.scroll }
func (d *Drawer) Dragging() bool           { return d.dragging }
func (d *Drawer) Selected() string         { return d.selected }
func (d *Drawer) Breakpoints() Breakpoints { return d.bp }

func (d *Drawer) clamp(v float64) float64 {
	return min(max(v, d.bp.Expanded), d.bp.Collapsed)
}

func (d *Drawer) snap(s State) {
	d.state, d.offset = s, d.bp.Offset(s)
}

// Drag moves the drawer by dy. Positive dy moves it down.
func (d *Drawer) Drag(dy float64) {
	d.dragging = true
	d.offset = d.clamp(d.offset + dy)
}

// Release ends a drag. The drawer snaps by the sign of the release
// velocity, not by proximity: an upward fling expands it, anything else
// collapses it.
func (d *Drawer) Release(velocity float64) State {
	d.dragging = false
	if velocity < 0 {
		d.snap(Expanded)
	} else {
		d.snap(Collapsed)
	}
	return d.state
}

// TapHeader toggles between collapsed and expanded. From mid it collapses.
func (d *Drawer) TapHeader() State {
	d.dragging = false
	if d.state == Collapsed {
		d.snap(Expanded)
	} else {
		d.snap(Collapsed)
	}
	return d.state
}

// Select makes id the active marker. Choosing a new marker while collapsed
// opens the drawer to mid so the form shows. Re-selecting the current marker
// changes nothing.
func (d *Drawer) Select(id string) State {
	if id == d.selected {
		return d.state
	}
	d.selected = id
	d.scroll = 0
	if !d.dragging && d.state == Collapsed {
		d.snap(Mid)
	}
	return d.state
}

// Reveal compensates for content of the given height appearing below the
// current question. The drawer rises by height as far as its travel allows;
// the remainder scrolls the form instead.
func (d *Drawer) Reveal(height float64) {
	if height <= 0 {
		return
	}
	shift := min(height, d.offset-d.bp.Expanded)
	d.offset = d.clamp(d.offset - shift)
	d.scroll += height - shift
	if d.offset == d.bp.Expanded {
		d.state = Expanded
	}
}

// ScrollTo sets the form's scroll offset. Negative values clamp to zero.
func (d *Drawer) ScrollTo(offset float64) {
	d.scroll = max(offset, 0)
}

// Reset collapses the drawer and forgets the selection.
func (d *Drawer) Reset() {
	d.dragging = false
	d.selected = ""
	d.scroll = 0
	d.snap(Collapsed)
}
