package v4l2

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDriver simulates the kernel side of the buffer protocol: Queue
// appends to a readiness FIFO, Dequeue pops the front and stamps the
// slot's mapping with a distinct frame marker.
type fakeDriver struct {
	caps      Capability
	capErr    error
	format    Format
	formatErr error

	granted    int
	bufLength  uint32
	queryErrAt int
	mapErrAt   int

	mappings map[int][]byte
	mapped   int
	unmapped int

	ready      []int
	queueFails map[int]bool
	nextMarker byte

	waitResult WaitResult
	waitErr    error
	dequeueErr error

	streamOnCalls  int
	streamOffCalls int
	closeCalls     int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		caps:       Capability{Card: "Fake Camera", Capabilities: CapVideoCapture | CapStreaming},
		format:     Format{Width: 640, Height: 480, PixelFormat: PixFmtYUYV, BytesPerLine: 1280},
		bufLength:  64,
		queryErrAt: -1,
		mapErrAt:   -1,
		mappings:   make(map[int][]byte),
		queueFails: make(map[int]bool),
	}
}

func (d *fakeDriver) QueryCapability() (Capability, error) {
	return d.caps, d.capErr
}

func (d *fakeDriver) SetFormat(Format) (Format, error) {
	return d.format, d.formatErr
}

func (d *fakeDriver) RequestBuffers(count int) (int, error) {
	if d.granted == 0 {
		return count, nil
	}
	return d.granted, nil
}

func (d *fakeDriver) QueryBuffer(index int) (BufferInfo, error) {
	if index == d.queryErrAt {
		return BufferInfo{}, errors.New("querybuf failed")
	}
	return BufferInfo{Index: index, Length: d.bufLength, Offset: uint32(index) * 0x1000}, nil
}

func (d *fakeDriver) MapBuffer(info BufferInfo) ([]byte, error) {
	if info.Index == d.mapErrAt {
		return nil, errors.New("mmap failed")
	}
	data := make([]byte, info.Length)
	d.mappings[info.Index] = data
	d.mapped++
	return data, nil
}

func (d *fakeDriver) UnmapBuffer([]byte) error {
	d.unmapped++
	return nil
}

func (d *fakeDriver) Queue(index int) error {
	if d.queueFails[index] {
		return errors.New("qbuf failed")
	}
	d.ready = append(d.ready, index)
	return nil
}

func (d *fakeDriver) Dequeue() (int, int, error) {
	if d.dequeueErr != nil {
		return 0, 0, d.dequeueErr
	}
	if len(d.ready) == 0 {
		return 0, 0, errors.New("no buffer ready")
	}
	index := d.ready[0]
	d.ready = d.ready[1:]
	d.nextMarker++
	d.mappings[index][0] = d.nextMarker
	return index, 4, nil
}

func (d *fakeDriver) StreamOn() error  { d.streamOnCalls++; return nil }
func (d *fakeDriver) StreamOff() error { d.streamOffCalls++; return nil }

func (d *fakeDriver) WaitFrame(time.Duration) (WaitResult, error) {
	return d.waitResult, d.waitErr
}

func (d *fakeDriver) Close() error { d.closeCalls++; return nil }

func startedPipeline(t *testing.T, driver *fakeDriver) *Pipeline {
	t.Helper()
	p := NewPipeline(driver, testLogger())
	if _, err := p.Negotiate(); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if err := p.AllocateBuffers(DefaultBufferCount); err != nil {
		t.Fatalf("AllocateBuffers: %v", err)
	}
	if err := p.EnqueueAll(); err != nil {
		t.Fatalf("EnqueueAll: %v", err)
	}
	if err := p.StartStreaming(); err != nil {
		t.Fatalf("StartStreaming: %v", err)
	}
	return p
}

func TestNegotiateRejectsNonCaptureDevice(t *testing.T) {
	driver := newFakeDriver()
	driver.caps = Capability{Card: "VBI only", Capabilities: 0x00000010}

	p := NewPipeline(driver, testLogger())
	if _, err := p.Negotiate(); !errors.Is(err, ErrCapability) {
		t.Errorf("Negotiate error = %v, want ErrCapability", err)
	}
}

func TestNegotiateKeepsDriverSubstitutedFormat(t *testing.T) {
	driver := newFakeDriver()
	driver.format = Format{Width: 320, Height: 240, PixelFormat: PixFmtYUYV, BytesPerLine: 640}

	p := NewPipeline(driver, testLogger())
	format, err := p.Negotiate()
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if format.Width != 320 || format.Height != 240 {
		t.Errorf("format = %dx%d, want the driver's 320x240", format.Width, format.Height)
	}

	x, y, side := format.Crop()
	if side != 240 || x != 40 || y != 0 {
		t.Errorf("Crop() = (%d,%d,%d), want (40,0,240)", x, y, side)
	}
}

func TestCropCenteredSquare(t *testing.T) {
	tests := []struct {
		w, h                       uint32
		wantX, wantY, wantSide int
	}{
		{640, 480, 80, 0, 480},
		{480, 640, 0, 80, 480},
		{512, 512, 0, 0, 512},
	}
	for _, tt := range tests {
		f := Format{Width: tt.w, Height: tt.h}
		x, y, side := f.Crop()
		if x != tt.wantX || y != tt.wantY || side != tt.wantSide {
			t.Errorf("%dx%d: Crop() = (%d,%d,%d), want (%d,%d,%d)",
				tt.w, tt.h, x, y, side, tt.wantX, tt.wantY, tt.wantSide)
		}
	}
}

func TestAllocatePartialGrantFails(t *testing.T) {
	driver := newFakeDriver()
	driver.granted = 2

	p := NewPipeline(driver, testLogger())
	err := p.AllocateBuffers(4)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("AllocateBuffers error = %v, want ErrAllocation", err)
	}
	if driver.mapped != 0 {
		t.Errorf("mapped %d buffers before failing, want 0", driver.mapped)
	}
}

func TestAllocateMapFailureUnwindsPriorMappings(t *testing.T) {
	driver := newFakeDriver()
	driver.mapErrAt = 2

	p := NewPipeline(driver, testLogger())
	err := p.AllocateBuffers(4)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("AllocateBuffers error = %v, want ErrAllocation", err)
	}
	if driver.mapped != 2 || driver.unmapped != 2 {
		t.Errorf("mapped=%d unmapped=%d, want both 2 (no leak)", driver.mapped, driver.unmapped)
	}
}

func TestCaptureCycleConservesPool(t *testing.T) {
	driver := newFakeDriver()
	p := startedPipeline(t, driver)

	checkConserved := func(step string) {
		queued, held := p.PoolCounts()
		if queued+held != DefaultBufferCount {
			t.Fatalf("%s: queued(%d)+held(%d) != %d", step, queued, held, DefaultBufferCount)
		}
	}

	checkConserved("after enqueue")
	for cycle := 0; cycle < 10; cycle++ {
		slot, err := p.Dequeue()
		if err != nil {
			t.Fatalf("cycle %d Dequeue: %v", cycle, err)
		}
		checkConserved("after dequeue")
		if err := p.Requeue(slot); err != nil {
			t.Fatalf("cycle %d Requeue: %v", cycle, err)
		}
		checkConserved("after requeue")
	}
}

func TestDequeueFollowsReadinessOrderWithDistinctMarkers(t *testing.T) {
	driver := newFakeDriver()
	p := startedPipeline(t, driver)

	seen := make(map[byte]int)
	var order []int
	for cycle := 0; cycle < 3; cycle++ {
		slot, err := p.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		marker := slot.Bytes()[0]
		seen[marker]++
		order = append(order, slot.Index)
		if err := p.Requeue(slot); err != nil {
			t.Fatalf("Requeue: %v", err)
		}
	}

	for marker, count := range seen {
		if count != 1 {
			t.Errorf("marker %d consumed %d times, want exactly once", marker, count)
		}
	}
	if len(seen) != 3 {
		t.Errorf("saw %d distinct markers, want 3", len(seen))
	}
	// Buffers were enqueued 0..3 and requeued after each consume, so
	// readiness follows the index wheel.
	for i, index := range order {
		if index != i {
			t.Errorf("cycle %d dequeued index %d, want %d", i, index, i)
		}
	}
}

func TestRequeueFailureShrinksPoolPermanently(t *testing.T) {
	driver := newFakeDriver()
	p := startedPipeline(t, driver)

	slot, err := p.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	driver.queueFails[slot.Index] = true
	if err := p.Requeue(slot); err == nil {
		t.Fatal("Requeue should fail")
	}

	queued, held := p.PoolCounts()
	if queued != 3 || held != 1 {
		t.Errorf("after failed requeue: queued=%d held=%d, want 3/1", queued, held)
	}
	if slot.State() != SlotLost {
		t.Errorf("slot state = %s, want %s", slot.State(), SlotLost)
	}

	// The remaining slots keep cycling.
	for cycle := 0; cycle < 6; cycle++ {
		s, err := p.Dequeue()
		if err != nil {
			t.Fatalf("cycle %d Dequeue: %v", cycle, err)
		}
		if s.Index == slot.Index {
			t.Fatalf("retired slot %d came back", slot.Index)
		}
		if err := p.Requeue(s); err != nil {
			t.Fatalf("cycle %d Requeue: %v", cycle, err)
		}
	}
}

func TestWaitFrameTimeoutIsNotAnError(t *testing.T) {
	driver := newFakeDriver()
	driver.waitResult = WaitTimeout

	p := startedPipeline(t, driver)
	result, err := p.WaitFrame(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitFrame: %v", err)
	}
	if result != WaitTimeout {
		t.Errorf("WaitFrame = %v, want WaitTimeout", result)
	}
}

func TestTeardownStopsUnmapsCloses(t *testing.T) {
	driver := newFakeDriver()
	p := startedPipeline(t, driver)

	p.Teardown()
	if driver.streamOffCalls != 1 {
		t.Errorf("streamOffCalls = %d, want 1", driver.streamOffCalls)
	}
	if driver.unmapped != DefaultBufferCount {
		t.Errorf("unmapped = %d, want %d", driver.unmapped, DefaultBufferCount)
	}
	if driver.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", driver.closeCalls)
	}

	// Idempotent on the quit path.
	p.Teardown()
	if driver.streamOffCalls != 1 || driver.closeCalls != 1 {
		t.Error("second Teardown must be a no-op")
	}
}

func TestTeardownBeforeStreamingSkipsStreamOff(t *testing.T) {
	driver := newFakeDriver()
	p := NewPipeline(driver, testLogger())
	if _, err := p.Negotiate(); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	p.Teardown()
	if driver.streamOffCalls != 0 {
		t.Errorf("streamOffCalls = %d, want 0 (never started)", driver.streamOffCalls)
	}
	if driver.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", driver.closeCalls)
	}
}
