//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Open opens the capture device at path and wraps it in a Pipeline.
func Open(path string, logger *slog.Logger) (*Pipeline, error) {
	driver, err := OpenDevice(path)
	if err != nil {
		return nil, err
	}
	return NewPipeline(driver, logger), nil
}

// deviceDriver is the real Driver, speaking ioctl/mmap/select to a
// /dev/videoN node.
type deviceDriver struct {
	fd int
}

// OpenDevice opens a V4L2 capture device node.
func OpenDevice(path string) (Driver, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, path, err)
	}
	return &deviceDriver{fd: fd}, nil
}

func (d *deviceDriver) QueryCapability() (Capability, error) {
	var caps v4l2Capability
	if err := ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(&caps)); err != nil {
		return Capability{}, fmt.Errorf("VIDIOC_QUERYCAP: %w", err)
	}
	return Capability{
		Driver:       cString(caps.Driver[:]),
		Card:         cString(caps.Card[:]),
		BusInfo:      cString(caps.BusInfo[:]),
		Capabilities: caps.Capabilities,
		DeviceCaps:   caps.DeviceCaps,
	}, nil
}

func (d *deviceDriver) SetFormat(requested Format) (Format, error) {
	format := v4l2Format{Type: bufTypeVideoCapture}
	pix := format.pix()
	pix.Width = requested.Width
	pix.Height = requested.Height
	pix.Pixelformat = requested.PixelFormat
	pix.Field = fieldAny

	if err := ioctl(d.fd, vidiocSFmt, unsafe.Pointer(&format)); err != nil {
		return Format{}, fmt.Errorf("VIDIOC_S_FMT: %w", err)
	}

	// The driver may have substituted any of the requested fields;
	// report what it actually configured.
	return Format{
		Width:        pix.Width,
		Height:       pix.Height,
		PixelFormat:  pix.Pixelformat,
		BytesPerLine: pix.Bytesperline,
		SizeImage:    pix.Sizeimage,
	}, nil
}

func (d *deviceDriver) RequestBuffers(count int) (int, error) {
	req := v4l2RequestBuffers{
		Count:  uint32(count),
		Type:   bufTypeVideoCapture,
		Memory: memoryMMap,
	}
	if err := ioctl(d.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("VIDIOC_REQBUFS: %w", err)
	}
	return int(req.Count), nil
}

func (d *deviceDriver) QueryBuffer(index int) (BufferInfo, error) {
	buf := v4l2Buffer{
		Index:  uint32(index),
		Type:   bufTypeVideoCapture,
		Memory: memoryMMap,
	}
	if err := ioctl(d.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
		return BufferInfo{}, fmt.Errorf("VIDIOC_QUERYBUF index %d: %w", index, err)
	}
	return BufferInfo{Index: index, Length: buf.Length, Offset: buf.Offset}, nil
}

func (d *deviceDriver) MapBuffer(info BufferInfo) ([]byte, error) {
	data, err := unix.Mmap(d.fd, int64(info.Offset), int(info.Length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap buffer %d: %w", info.Index, err)
	}
	return data, nil
}

func (d *deviceDriver) UnmapBuffer(data []byte) error {
	return unix.Munmap(data)
}

func (d *deviceDriver) Queue(index int) error {
	buf := v4l2Buffer{
		Index:  uint32(index),
		Type:   bufTypeVideoCapture,
		Memory: memoryMMap,
	}
	if err := ioctl(d.fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("VIDIOC_QBUF index %d: %w", index, err)
	}
	return nil
}

func (d *deviceDriver) Dequeue() (int, int, error) {
	buf := v4l2Buffer{
		Type:   bufTypeVideoCapture,
		Memory: memoryMMap,
	}
	if err := ioctl(d.fd, vidiocDQBuf, unsafe.Pointer(&buf)); err != nil {
		return 0, 0, fmt.Errorf("VIDIOC_DQBUF: %w", err)
	}
	return int(buf.Index), int(buf.Bytesused), nil
}

func (d *deviceDriver) StreamOn() error {
	bufType := uint32(bufTypeVideoCapture)
	if err := ioctl(d.fd, vidiocStreamOn, unsafe.Pointer(&bufType)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMON: %w", err)
	}
	return nil
}

func (d *deviceDriver) StreamOff() error {
	bufType := uint32(bufTypeVideoCapture)
	if err := ioctl(d.fd, vidiocStreamOff, unsafe.Pointer(&bufType)); err != nil {
		return fmt.Errorf("VIDIOC_STREAMOFF: %w", err)
	}
	return nil
}

func (d *deviceDriver) WaitFrame(timeout time.Duration) (WaitResult, error) {
	var fds unix.FdSet
	fds.Zero()
	fds.Set(d.fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	n, err := unix.Select(d.fd+1, &fds, nil, nil, &tv)
	if err != nil {
		if err == unix.EINTR {
			return WaitTimeout, nil
		}
		return WaitTimeout, fmt.Errorf("select: %w", err)
	}
	if n == 0 {
		return WaitTimeout, nil
	}
	return WaitReady, nil
}

func (d *deviceDriver) Close() error {
	return unix.Close(d.fd)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
