package v4l2

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultBufferCount is the fixed pool size requested at startup.
const DefaultBufferCount = 4

// Pipeline owns the capture device and runs the buffer lifecycle:
// negotiate -> allocate -> enqueue all -> stream on -> (wait, dequeue,
// consume, requeue)* -> teardown. It is single-threaded by design; the
// ownership handoff is enforced by protocol ordering, not locks.
type Pipeline struct {
	driver    Driver
	logger    *slog.Logger
	format    Format
	pool      *Pool
	streaming bool
	closed    bool
}

// NewPipeline wraps an already-open driver. Production code uses Open;
// tests inject a simulated driver here.
func NewPipeline(driver Driver, logger *slog.Logger) *Pipeline {
	return &Pipeline{driver: driver, logger: logger}
}

// Negotiate verifies capture capability and requests 640x480 packed
// 4:2:2. Whatever format the driver actually returns is kept for all
// subsequent sizing; drivers may silently substitute a supported mode.
func (p *Pipeline) Negotiate() (Format, error) {
	caps, err := p.driver.QueryCapability()
	if err != nil {
		return Format{}, fmt.Errorf("%w: %v", ErrCapability, err)
	}
	if !caps.CanCapture() {
		return Format{}, fmt.Errorf("%w: %s (%s)", ErrCapability, caps.Card, caps.Driver)
	}

	requested := Format{Width: 640, Height: 480, PixelFormat: PixFmtYUYV}
	negotiated, err := p.driver.SetFormat(requested)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %v", ErrFormatNegotiation, err)
	}
	p.format = negotiated

	p.logger.Info("format negotiated",
		"card", caps.Card,
		"width", negotiated.Width,
		"height", negotiated.Height,
		"stride", negotiated.Stride())
	return negotiated, nil
}

// Format returns the negotiated format.
func (p *Pipeline) Format() Format { return p.format }

// AllocateBuffers requests count kernel buffers and maps each into the
// process. If the driver grants fewer than requested, or any mapping
// fails, everything already mapped is unmapped before the error
// propagates.
func (p *Pipeline) AllocateBuffers(count int) error {
	granted, err := p.driver.RequestBuffers(count)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	if granted < count {
		return fmt.Errorf("%w: requested %d buffers, driver granted %d", ErrAllocation, count, granted)
	}

	slots := make([]*Slot, 0, count)
	unwind := func() {
		for _, s := range slots {
			if err := p.driver.UnmapBuffer(s.Data); err != nil {
				p.logger.Warn("unmap during allocation unwind failed", "index", s.Index, "error", err)
			}
		}
	}

	for i := 0; i < count; i++ {
		info, err := p.driver.QueryBuffer(i)
		if err != nil {
			unwind()
			return fmt.Errorf("%w: %v", ErrAllocation, err)
		}
		data, err := p.driver.MapBuffer(info)
		if err != nil {
			unwind()
			return fmt.Errorf("%w: %v", ErrAllocation, err)
		}
		slots = append(slots, &Slot{Index: i, Data: data, Length: info.Length})
	}

	p.pool = NewPool(slots)
	return nil
}

// EnqueueAll hands every slot to the driver. Called once after
// allocation, before streaming starts.
func (p *Pipeline) EnqueueAll() error {
	for _, slot := range p.pool.Slots() {
		if err := p.driver.Queue(slot.Index); err != nil {
			return fmt.Errorf("queue buffer %d: %w", slot.Index, err)
		}
		if err := p.pool.MarkQueued(slot.Index); err != nil {
			return err
		}
	}
	return nil
}

// StartStreaming turns capture on.
func (p *Pipeline) StartStreaming() error {
	if err := p.driver.StreamOn(); err != nil {
		return err
	}
	p.streaming = true
	return nil
}

// StopStreaming turns capture off. Safe to call more than once.
func (p *Pipeline) StopStreaming() {
	if !p.streaming {
		return
	}
	if err := p.driver.StreamOff(); err != nil {
		p.logger.Warn("stream off failed", "error", err)
	}
	p.streaming = false
}

// WaitFrame blocks until a frame is ready or the timeout elapses.
// Timeouts and wait errors are transient: the caller logs and tries
// again next cycle.
func (p *Pipeline) WaitFrame(timeout time.Duration) (WaitResult, error) {
	return p.driver.WaitFrame(timeout)
}

// Dequeue claims one ready slot. The returned slot is
// application-owned until Requeue.
func (p *Pipeline) Dequeue() (*Slot, error) {
	index, bytesUsed, err := p.driver.Dequeue()
	if err != nil {
		return nil, err
	}
	slot, err := p.pool.MarkDequeued(index)
	if err != nil {
		return nil, err
	}
	slot.BytesUsed = bytesUsed
	return slot, nil
}

// Requeue returns a consumed slot to the driver. On failure the slot
// is retired and the effective pool shrinks for the rest of the run;
// degraded but not fatal.
func (p *Pipeline) Requeue(slot *Slot) error {
	if err := p.driver.Queue(slot.Index); err != nil {
		p.pool.MarkLost(slot.Index)
		queued, _ := p.pool.Counts()
		p.logger.Warn("requeue failed, retiring slot",
			"index", slot.Index, "remaining", queued, "error", err)
		return err
	}
	return p.pool.MarkQueued(slot.Index)
}

// PoolCounts reports driver-owned vs application-owned slots, zero
// before allocation.
func (p *Pipeline) PoolCounts() (queued, held int) {
	if p.pool == nil {
		return 0, 0
	}
	return p.pool.Counts()
}

// Teardown stops streaming, unmaps every slot, and closes the device.
// It runs on every exit path and tears down only what was created.
func (p *Pipeline) Teardown() {
	if p.closed {
		return
	}
	p.StopStreaming()
	if p.pool != nil {
		for _, slot := range p.pool.Slots() {
			if err := p.driver.UnmapBuffer(slot.Data); err != nil {
				p.logger.Warn("unmap failed", "index", slot.Index, "error", err)
			}
		}
		p.pool = nil
	}
	if err := p.driver.Close(); err != nil {
		p.logger.Warn("close failed", "error", err)
	}
	p.closed = true
}
