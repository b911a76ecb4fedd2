package v4l2

import "time"

// Pixel format FourCC codes.
const (
	PixFmtYUYV = 0x56595559 // 'YUYV', packed 4:2:2
)

// Capability bits from videodev2.h.
const (
	CapVideoCapture = 0x00000001
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Capability describes what a capture device advertises.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Capabilities uint32
	DeviceCaps   uint32
}

// CanCapture reports whether the device supports video capture. When
// the driver reports per-node device caps, those take precedence over
// the whole-device capability set.
func (c Capability) CanCapture() bool {
	caps := c.Capabilities
	if caps&CapDeviceCaps != 0 {
		caps = c.DeviceCaps
	}
	return caps&CapVideoCapture != 0
}

// Format is a negotiated frame format. Immutable once negotiated; the
// driver may substitute any of the requested fields.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// Stride returns the bytes-per-row used for texture upload. Falls back
// to width*2 (packed 4:2:2) when the driver reports no line length.
func (f Format) Stride() int {
	if f.BytesPerLine > 0 {
		return int(f.BytesPerLine)
	}
	return int(f.Width) * 2
}

// Crop returns the centered square source rectangle derived from the
// negotiated size: side = min(w, h), origin centered. Computed from the
// format the driver actually returned, never the requested one.
func (f Format) Crop() (x, y, side int) {
	w, h := int(f.Width), int(f.Height)
	side = w
	if h < w {
		side = h
	}
	return (w - side) / 2, (h - side) / 2, side
}

// BufferInfo describes one driver-allocated buffer to be mapped.
type BufferInfo struct {
	Index  int
	Length uint32
	Offset uint32
}

// WaitResult is the outcome of a bounded readiness wait.
type WaitResult int

// WaitFrame outcomes.
const (
	WaitReady WaitResult = iota
	WaitTimeout
)

// Driver is the kernel control surface of a capture device. The real
// implementation speaks ioctl/mmap/select; tests substitute a simulated
// driver to exercise the buffer protocol.
type Driver interface {
	QueryCapability() (Capability, error)
	SetFormat(Format) (Format, error)

	// RequestBuffers asks for count mmap buffers and returns how many
	// the driver actually granted.
	RequestBuffers(count int) (int, error)
	QueryBuffer(index int) (BufferInfo, error)
	MapBuffer(BufferInfo) ([]byte, error)
	UnmapBuffer(data []byte) error

	Queue(index int) error
	// Dequeue claims one filled buffer, returning its index and the
	// number of payload bytes.
	Dequeue() (index, bytesUsed int, err error)

	StreamOn() error
	StreamOff() error

	// WaitFrame blocks until a frame is ready or the timeout elapses.
	WaitFrame(timeout time.Duration) (WaitResult, error)

	Close() error
}
