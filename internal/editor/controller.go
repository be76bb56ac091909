// Package editor turns pointer gestures into committed field positions.
//
// A Controller owns at most one gesture at a time. Starting a gesture
// subscribes a move/up listener pair on the Surface; ending or cancelling it
// calls exactly the unsubscribe function that subscription returned. Every
// move event converts the new pixel box to percentage space and writes it
// through the position store, so there is no separate commit step.
package editor

import (
	"sync"

	"github.com/a3tai/mcp-form-overlay/internal/geometry"
	"github.com/a3tai/mcp-form-overlay/internal/logging"
	"github.com/a3tai/mcp-form-overlay/internal/positions"
)

// State is the controller's gesture state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Options configures a Controller.
type Options struct {
	// MinSize is enforced in pixel space after every resize step.
	MinSize MinSize
	// Sensitivity multiplies raw pointer deltas. Zero means 1.
	Sensitivity float64
	// OnCommit, if set, runs after each committed write with the pixel box
	// that was written.
	OnCommit func(fieldID string, pixel geometry.Box)
}

// DefaultOptions returns a 100x30 minimum size and unit sensitivity.
func DefaultOptions() Options {
	return Options{MinSize: DefaultMinSize, Sensitivity: 1}
}

// Gesture describes the active pointer interaction.
type Gesture struct {
	State    State
	FieldID  string
	Handle   Handle
	Start    geometry.Point
	StartBox geometry.Box
	Frame    geometry.Frame
}

type activeGesture struct {
	Gesture
	detach func()
}

// Controller interprets gesture streams against one position store.
type Controller struct {
	store   *positions.Store
	surface *Surface
	opts    Options

	mu      sync.Mutex
	editing bool
	active  *activeGesture
}

// NewController creates a controller in the idle, non-editing state.
func NewController(store *positions.Store, surface *Surface, opts Options) *Controller {
	if opts.Sensitivity == 0 {
		opts.Sensitivity = 1
	}
	if opts.MinSize == (MinSize{}) {
		opts.MinSize = DefaultMinSize
	}
	return &Controller{store: store, surface: surface, opts: opts}
}

// Surface returns the input surface the controller listens on.
func (c *Controller) Surface() *Surface {
	return c.surface
}

// Editing reports whether edit mode is on.
func (c *Controller) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

// SetEditing toggles edit mode. Turning it off cancels any active gesture
// immediately; positions keep whatever the last move committed.
func (c *Controller) SetEditing(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = on
	if !on {
		c.cancelLocked()
	}
}

// State returns the current gesture state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return StateIdle
	}
	return c.active.State
}

// Resizing reports whether a resize gesture is active.
func (c *Controller) Resizing() bool {
	return c.State() == StateResizing
}

// Active returns a copy of the active gesture, if any.
func (c *Controller) Active() (Gesture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Gesture{}, false
	}
	return c.active.Gesture, true
}

// BeginDrag starts a drag of fieldID from pointer position p. It is refused
// outside edit mode, while any gesture (including a resize) is active, or
// when frame is unusable.
func (c *Controller) BeginDrag(fieldID string, p geometry.Point, frame geometry.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editing || c.active != nil || !frame.Valid() {
		return false
	}
	c.startLocked(Gesture{
		State:   StateDragging,
		FieldID: fieldID,
		Start:   p,
		Frame:   frame,
	})
	return true
}

// BeginResize starts resizing fieldID with handle h. Resize has priority: a
// gesture that is still active is detached first, so rapid repeated starts
// never leave more than one listener pair on the surface.
func (c *Controller) BeginResize(fieldID string, h Handle, p geometry.Point, frame geometry.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editing || h == HandleNone || !frame.Valid() {
		return false
	}
	if c.active != nil {
		logging.Logger().Debug("replacing active gesture with resize",
			"field", c.active.FieldID, "state", c.active.State.String())
		c.cancelLocked()
	}
	c.startLocked(Gesture{
		State:   StateResizing,
		FieldID: fieldID,
		Handle:  h,
		Start:   p,
		Frame:   frame,
	})
	return true
}

// Cancel ends the active gesture without further writes.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Controller) startLocked(g Gesture) {
	g.StartBox = c.store.Resolve(g.FieldID, g.Frame)
	ag := &activeGesture{Gesture: g}
	ag.detach = c.surface.Subscribe(Listener{
		Move: func(p geometry.Point) { c.move(ag, p) },
		Up:   func() { c.end(ag) },
	})
	c.active = ag

	logging.Logger().Debug("gesture started", "field", g.FieldID, "state", g.State.String(),
		"handle", g.Handle.String(), "box", g.StartBox.String())
}

func (c *Controller) cancelLocked() {
	if c.active == nil {
		return
	}
	c.active.detach()
	logging.Logger().Debug("gesture cancelled", "field", c.active.FieldID)
	c.active = nil
}

func (c *Controller) move(g *activeGesture, p geometry.Point) {
	c.mu.Lock()
	if c.active != g {
		c.mu.Unlock()
		return
	}

	dx := (p.X - g.Start.X) * c.opts.Sensitivity
	dy := (p.Y - g.Start.Y) * c.opts.Sensitivity

	var next geometry.Box
	if g.State == StateResizing {
		next = Resize(g.StartBox, g.Handle, dx, dy, c.opts.MinSize)
	} else {
		next = Translate(g.StartBox, dx, dy)
	}
	c.store.Set(g.FieldID, next, g.Frame)
	onCommit := c.opts.OnCommit
	c.mu.Unlock()

	if onCommit != nil {
		onCommit(g.FieldID, next)
	}
}

func (c *Controller) end(g *activeGesture) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g.detach()
	if c.active == g {
		c.active = nil
		logging.Logger().Debug("gesture finished", "field", g.FieldID, "state", g.State.String())
	}
}
