package events

// Event type constants for kelindar/event.
const (
	TypeFrameDropped uint32 = iota + 1
	TypeResizeApplied
	TypeResizeRejected
	TypeStreamState
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Drop reasons for FrameDroppedEvent.
const (
	DropWaitTimeout  = "wait_timeout"
	DropWaitError    = "wait_error"
	DropDequeueError = "dequeue_error"
	DropRequeueError = "requeue_error"
)

// Resize sources for ResizeAppliedEvent.
const (
	SourceKeyboard = "keyboard"
	SourceWheel    = "wheel"
	SourceWindow   = "window"
	SourceConfig   = "config"
)

// FrameDroppedEvent is published when a capture cycle produces no
// frame: readiness timeout, wait failure, or a queue operation failure.
type FrameDroppedEvent struct {
	Reason string
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// ResizeAppliedEvent is published after a window resize committed and
// the shape mask was regenerated.
type ResizeAppliedEvent struct {
	Size   int
	Source string
}

// Type returns the event type identifier for ResizeAppliedEvent.
func (e ResizeAppliedEvent) Type() uint32 { return TypeResizeApplied }

// ResizeRejectedEvent is published when the window manager returned a
// size different from the stabilized request.
type ResizeRejectedEvent struct {
	Requested int
	ActualW   int
	ActualH   int
}

// Type returns the event type identifier for ResizeRejectedEvent.
func (e ResizeRejectedEvent) Type() uint32 { return TypeResizeRejected }

// Capture stream states for StreamStateEvent.
const (
	StateStreaming = "streaming"
	StateDegraded  = "degraded"
	StateStopped   = "stopped"
)

// StreamStateEvent is published on capture lifecycle transitions,
// including the degraded state entered after a permanent slot loss.
type StreamStateEvent struct {
	State string
}

// Type returns the event type identifier for StreamStateEvent.
func (e StreamStateEvent) Type() uint32 { return TypeStreamState }
