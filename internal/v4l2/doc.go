// Package v4l2 implements the capture side of the viewer: opening a
// Video4Linux2 device, negotiating a frame format, managing the fixed
// ring of kernel-shared mmap buffers, and running the queue -> wait ->
// dequeue -> consume -> requeue cycle.
//
// The kernel control surface (ioctl, mmap, select) is isolated behind
// the Driver interface so the buffer-ownership protocol in Pipeline and
// Pool can be exercised against a simulated driver in tests.
package v4l2
