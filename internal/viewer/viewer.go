// Package viewer runs the top-level cooperative loop: input events,
// pending resize work, rendering, and one bounded capture cycle per
// iteration. Everything happens on one goroutine; the config watcher
// and metrics listener talk to the loop only through thread-safe seams.
package viewer

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/circam/internal/display"
	"github.com/smazurov/circam/internal/events"
	"github.com/smazurov/circam/internal/geometry"
	"github.com/smazurov/circam/internal/logging"
	"github.com/smazurov/circam/internal/metrics"
	"github.com/smazurov/circam/internal/v4l2"
)

// frameWait bounds the per-cycle wait for a ready frame. A stalled
// camera degrades to a slow loop that still services input.
const frameWait = 2 * time.Second

// Config carries the window parameters resolved at startup.
type Config struct {
	Title       string
	Size        int
	AlwaysOnTop bool
}

// Viewer owns the loop and the ordered teardown of its collaborators.
type Viewer struct {
	backend   display.Backend
	pipeline  *v4l2.Pipeline
	geo       *geometry.Controller
	bus       *events.Bus
	collector *metrics.Collector
	logger    *slog.Logger
	cfg       Config

	cropX, cropY, cropSide int

	running  bool
	degraded bool
	closed   bool

	// pendingSize is written by the config watcher goroutine and
	// consumed by the loop; zero means no request.
	pendingSize atomic.Int64
}

// New wires a viewer from its collaborators. Init must succeed before
// Run.
func New(
	backend display.Backend,
	pipeline *v4l2.Pipeline,
	geo *geometry.Controller,
	bus *events.Bus,
	collector *metrics.Collector,
	cfg Config,
	logger *slog.Logger,
) *Viewer {
	return &Viewer{
		backend:   backend,
		pipeline:  pipeline,
		geo:       geo,
		bus:       bus,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// Init brings up capture and display in dependency order. On any
// failure it unwinds whatever was acquired and returns the cause;
// nothing is leaked for the caller to clean up.
func (v *Viewer) Init() error {
	format, err := v.pipeline.Negotiate()
	if err != nil {
		v.Shutdown()
		return err
	}
	v.cropX, v.cropY, v.cropSide = format.Crop()

	steps := []struct {
		name string
		run  func() error
	}{
		{"display init", v.backend.Init},
		{"window creation", func() error {
			return v.backend.CreateWindow(display.WindowConfig{
				Title:       v.cfg.Title,
				Size:        v.cfg.Size,
				AlwaysOnTop: v.cfg.AlwaysOnTop,
			})
		}},
		{"renderer creation", v.backend.CreateRenderer},
		{"texture creation", func() error {
			return v.backend.CreateTexture(format.Width, format.Height)
		}},
		{"shape init", func() error { return v.geo.Init(v.cfg.Size) }},
		{"buffer allocation", func() error {
			return v.pipeline.AllocateBuffers(v4l2.DefaultBufferCount)
		}},
		{"buffer enqueue", v.pipeline.EnqueueAll},
		{"stream start", v.pipeline.StartStreaming},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			v.Shutdown()
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	v.bus.Publish(events.StreamStateEvent{State: events.StateStreaming})
	v.collector.SetWindowSize(v.geo.Current())
	queued, _ := v.pipeline.PoolCounts()
	v.collector.SetSlotsQueued(queued)

	v.logger.Info("viewer initialized",
		"size", v.cfg.Size,
		"crop_side", v.cropSide,
		"buffers", queued)
	return nil
}

// RequestSize asks the loop to apply a new window size on its next
// iteration. Safe to call from other goroutines.
func (v *Viewer) RequestSize(size int) {
	if size >= geometry.MinWindowSize {
		v.pendingSize.Store(int64(size))
	}
}

// Run drives the loop until quit or Escape, then tears down. Per cycle:
// drain input, settle pending resizes, render the current frame at the
// current size, then one bounded capture cycle. The bounded wait is the
// loop's only suspension point.
func (v *Viewer) Run() {
	defer v.Shutdown()

	v.running = true
	for v.running {
		v.drainEvents()
		if !v.running {
			return
		}

		if size := v.pendingSize.Swap(0); size != 0 {
			v.geo.RequestResize(int(size), events.SourceConfig)
		}
		v.geo.TickPending(v.backend.Ticks())
		v.collector.SetWindowSize(v.geo.Current())

		v.backend.RenderFrame(v.cropX, v.cropY, v.cropSide, v.geo.Current())
		v.captureCycle()
	}
}

func (v *Viewer) drainEvents() {
	for {
		ev := v.backend.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case display.QuitEvent:
			v.logger.Info("quit requested")
			v.running = false
			return
		case display.KeyDownEvent:
			switch e.Key {
			case display.KeyEscape:
				v.logger.Info("escape pressed")
				v.running = false
				return
			case display.KeyPlus:
				v.geo.StepBy(1, events.SourceKeyboard)
			case display.KeyMinus:
				v.geo.StepBy(-1, events.SourceKeyboard)
			}
		case display.MouseButtonEvent:
			v.geo.OnMouseButton(e.Pressed)
		case display.MouseMotionEvent:
			v.geo.OnMouseMotion()
		case display.WheelEvent:
			v.geo.StepBy(e.Ticks, events.SourceWheel)
		case display.WindowSizeChangedEvent:
			v.geo.OnExternalResize(e.Width, e.Height, v.backend.Ticks())
		}
	}
}

// captureCycle runs one wait/dequeue/consume/requeue round. Every
// failure here is transient: log, account, move on to the next cycle.
func (v *Viewer) captureCycle() {
	result, err := v.pipeline.WaitFrame(frameWait)
	if err != nil {
		v.logger.Warn("frame wait failed", "error", err)
		v.bus.Publish(events.FrameDroppedEvent{Reason: events.DropWaitError})
		return
	}
	if result == v4l2.WaitTimeout {
		v.logger.Debug("frame wait timed out")
		v.bus.Publish(events.FrameDroppedEvent{Reason: events.DropWaitTimeout})
		return
	}

	slot, err := v.pipeline.Dequeue()
	if err != nil {
		v.logger.Warn("dequeue failed", "error", err)
		v.bus.Publish(events.FrameDroppedEvent{Reason: events.DropDequeueError})
		return
	}

	if err := v.backend.UpdateTexture(slot.Bytes(), v.pipeline.Format().Stride()); err != nil {
		v.logger.Warn("texture upload failed", "index", slot.Index, "error", err)
	} else {
		v.collector.FrameConsumed()
	}

	if err := v.pipeline.Requeue(slot); err != nil {
		v.bus.Publish(events.FrameDroppedEvent{Reason: events.DropRequeueError})
		if !v.degraded {
			v.degraded = true
			v.bus.Publish(events.StreamStateEvent{State: events.StateDegraded})
			v.logger.Warn("capture degraded, continuing with a smaller pool")
		}
	}

	queued, _ := v.pipeline.PoolCounts()
	v.collector.SetSlotsQueued(queued)
}

// Shutdown tears down in reverse acquisition order. Idempotent; safe
// after a partial Init.
func (v *Viewer) Shutdown() {
	if v.closed {
		return
	}
	v.closed = true

	v.bus.Publish(events.StreamStateEvent{State: events.StateStopped})
	v.pipeline.Teardown()
	v.backend.Destroy()

	if v.degraded {
		if h := logging.History(); h != nil {
			v.logger.Debug("recent log history at shutdown", "entries", h.Count())
		}
	}
	v.logger.Info("shutdown complete")
}
