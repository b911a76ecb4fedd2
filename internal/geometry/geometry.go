// Package geometry owns the window size/position state machine: step
// resizes from keyboard and wheel, debounced-and-verified resizes from
// the window manager, and click-drag translation. All state lives in
// the Controller; there is no package-level mutable state.
package geometry

import (
	"log/slog"

	"github.com/smazurov/circam/internal/events"
	"github.com/smazurov/circam/internal/shape"
)

// Sizing policy.
const (
	// Step is the resize increment for one keyboard press or one wheel
	// tick.
	Step = 10

	// MinWindowSize is the smallest the window may shrink to.
	MinWindowSize = 50

	// StabilizeWindow is how long, in milliseconds, window-manager
	// resize events must stay quiet before the last one is applied.
	StabilizeWindow = 100
)

// Host is the slice of the display backend the controller drives.
type Host interface {
	SetWindowSize(size int)
	GetWindowSize() (w, h int)
	SetWindowPosition(x, y int)
	GetWindowPosition() (x, y int)
	GlobalMouseState() (x, y int)
	ApplyShape(mask *shape.Mask) error
}

// ApplyDelta computes the size after a number of resize steps, clamped
// below at MinWindowSize. Keyboard and wheel both go through here, so
// the two sources are policy-identical by construction.
func ApplyDelta(current, steps int) int {
	size := current + steps*Step
	if size < MinWindowSize {
		size = MinWindowSize
	}
	return size
}

type pendingResize struct {
	target      int
	requestedAt uint64
}

// Controller mediates the three resize sources and drag translation.
type Controller struct {
	host   Host
	bus    *events.Bus
	logger *slog.Logger

	current int
	mask    *shape.Mask

	pending *pendingResize

	dragging         bool
	anchorX, anchorY int
	winX, winY       int
}

// New creates a controller. Init must be called before use.
func New(host Host, bus *events.Bus, logger *slog.Logger) *Controller {
	return &Controller{host: host, bus: bus, logger: logger}
}

// Init generates and applies the initial mask for the startup size.
func (c *Controller) Init(size int) error {
	mask := shape.Circle(size)
	if err := c.host.ApplyShape(mask); err != nil {
		return err
	}
	c.mask = mask
	c.current = size
	return nil
}

// Current returns the last committed, shape-synchronized size.
func (c *Controller) Current() int { return c.current }

// Mask returns the currently applied shape mask.
func (c *Controller) Mask() *shape.Mask { return c.mask }

// HasPending reports whether an external resize awaits stabilization.
func (c *Controller) HasPending() bool { return c.pending != nil }

// StepBy applies steps resize increments from a trusted source.
func (c *Controller) StepBy(steps int, source string) {
	c.RequestResize(ApplyDelta(c.current, steps), source)
}

// RequestResize applies an application-chosen size immediately: the
// target is exact and trusted, so there is nothing to verify. Resizing
// to the current size is a no-op and leaves the mask untouched.
//
// Ordering matters: regenerate, apply, then commit, so an early return
// never leaves the displayed mask out of sync with the committed size.
func (c *Controller) RequestResize(size int, source string) {
	if size == c.current {
		return
	}
	c.host.SetWindowSize(size)

	mask := shape.Circle(size)
	if err := c.host.ApplyShape(mask); err != nil {
		c.logger.Warn("shape apply failed, keeping previous size", "size", size, "error", err)
		return
	}
	c.mask = mask
	c.current = size
	c.bus.Publish(events.ResizeAppliedEvent{Size: size, Source: source})
}

// OnExternalResize records a window-manager-driven size report. These
// arrive in rapid bursts during interactive resize, so the request is
// only noted; TickPending applies the latest one once the burst has
// stabilized.
func (c *Controller) OnExternalResize(w, h int, now uint64) {
	candidate := w
	if h < w {
		candidate = h
	}
	if candidate >= MinWindowSize && candidate != c.current {
		c.pending = &pendingResize{target: candidate, requestedAt: now}
	}
}

// TickPending applies a stabilized external resize. The window manager
// is untrusted: the size is re-applied, read back, and committed only
// if the result is square and matches. A divergent read-back means the
// window manager refused or altered the size; the request is dropped
// so the viewer cannot enter a resize feedback loop.
func (c *Controller) TickPending(now uint64) {
	if c.pending == nil || now-c.pending.requestedAt < StabilizeWindow {
		return
	}
	target := c.pending.target
	c.pending = nil

	c.host.SetWindowSize(target)
	w, h := c.host.GetWindowSize()
	if w != h || w != target {
		c.logger.Warn("resize rejected by window manager",
			"requested", target, "actual_w", w, "actual_h", h)
		c.bus.Publish(events.ResizeRejectedEvent{Requested: target, ActualW: w, ActualH: h})
		return
	}

	mask := shape.Circle(target)
	if err := c.host.ApplyShape(mask); err != nil {
		c.logger.Warn("shape apply failed, keeping previous size", "size", target, "error", err)
		return
	}
	c.mask = mask
	c.current = target
	c.bus.Publish(events.ResizeAppliedEvent{Size: target, Source: events.SourceWindow})
}

// OnMouseButton starts or ends a drag. Dragging is pure translation
// and never interacts with size state.
func (c *Controller) OnMouseButton(pressed bool) {
	if !pressed {
		c.dragging = false
		return
	}
	c.dragging = true
	c.anchorX, c.anchorY = c.host.GlobalMouseState()
	c.winX, c.winY = c.host.GetWindowPosition()
}

// OnMouseMotion moves the window by the pointer delta from the drag
// anchor.
func (c *Controller) OnMouseMotion() {
	if !c.dragging {
		return
	}
	x, y := c.host.GlobalMouseState()
	c.host.SetWindowPosition(c.winX+(x-c.anchorX), c.winY+(y-c.anchorY))
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }
