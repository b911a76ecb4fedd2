// Package display abstracts the rendering backend: shaped-window
// creation, texture streaming, and input event polling. The viewer and
// geometry controller depend only on the interfaces here; the SDL
// implementation is the single file that touches the binding.
package display

import "github.com/smazurov/circam/internal/shape"

// Key identifies the keyboard keys the viewer reacts to.
type Key int

// Keys.
const (
	KeyEscape Key = iota
	KeyPlus
	KeyMinus
)

// Event is an input or window event delivered by PollEvent.
type Event interface {
	isEvent()
}

// QuitEvent is a window-close or quit request.
type QuitEvent struct{}

// KeyDownEvent is a key press of one of the mapped keys.
type KeyDownEvent struct {
	Key Key
}

// MouseButtonEvent is a left-button press or release.
type MouseButtonEvent struct {
	Pressed bool
}

// MouseMotionEvent signals pointer motion; the drag handler queries the
// global pointer position itself, matching the screen-space anchor.
type MouseMotionEvent struct{}

// WheelEvent is a scroll by Ticks discrete notches, positive away from
// the user.
type WheelEvent struct {
	Ticks int
}

// WindowSizeChangedEvent is a window-manager-driven size change report.
type WindowSizeChangedEvent struct {
	Width  int
	Height int
}

func (QuitEvent) isEvent()              {}
func (KeyDownEvent) isEvent()           {}
func (MouseButtonEvent) isEvent()       {}
func (MouseMotionEvent) isEvent()       {}
func (WheelEvent) isEvent()             {}
func (WindowSizeChangedEvent) isEvent() {}

// WindowConfig describes the initial shaped window.
type WindowConfig struct {
	Title       string
	Size        int
	AlwaysOnTop bool
}

// Backend is the full rendering surface consumed by the viewer.
// Creation steps are separate so each failure can carry its own
// diagnostic and the caller unwinds exactly what exists.
type Backend interface {
	Init() error
	CreateWindow(cfg WindowConfig) error
	CreateRenderer() error
	// CreateTexture allocates a streaming texture in the capture's
	// packed 4:2:2 layout at the negotiated frame size.
	CreateTexture(width, height int) error

	// UpdateTexture uploads one raw frame with the given row stride.
	UpdateTexture(pixels []byte, pitch int) error
	// RenderFrame draws the centered square crop scaled to dstSide.
	RenderFrame(srcX, srcY, srcSide, dstSide int)

	ApplyShape(mask *shape.Mask) error

	SetWindowSize(size int)
	GetWindowSize() (w, h int)
	SetWindowPosition(x, y int)
	GetWindowPosition() (x, y int)
	GlobalMouseState() (x, y int)

	// PollEvent returns the next pending event, or nil when drained.
	PollEvent() Event

	// Ticks returns elapsed milliseconds since backend init.
	Ticks() uint64

	// Destroy releases whatever Create steps succeeded, in reverse
	// order. Safe to call at any point of partial initialization.
	Destroy()
}
