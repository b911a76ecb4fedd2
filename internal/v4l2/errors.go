package v4l2

import "errors"

// Initialization failures. All are fatal: the caller reports the error,
// unwinds whatever was acquired, and exits non-zero.
var (
	// ErrDeviceUnavailable means the device node could not be opened.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrCapability means the device does not advertise video capture.
	ErrCapability = errors.New("device does not support video capture")

	// ErrFormatNegotiation means the driver rejected format negotiation.
	ErrFormatNegotiation = errors.New("format negotiation rejected")

	// ErrAllocation means the driver granted fewer buffers than
	// requested or a buffer mapping failed.
	ErrAllocation = errors.New("buffer allocation failed")
)

// Protocol violations detected by the pool. These indicate a bug in the
// calling code, not a driver condition.
var (
	// ErrSlotAlreadyQueued means a slot was queued while driver-owned.
	ErrSlotAlreadyQueued = errors.New("slot already queued")

	// ErrSlotNotQueued means a dequeue reported a slot the driver did
	// not own.
	ErrSlotNotQueued = errors.New("slot not queued")
)
