package v4l2

import "fmt"

// SlotState tracks who owns a buffer slot.
type SlotState string

// Slot states. A slot is either driver-owned (queued, eligible to be
// filled) or application-owned (held, readable). Lost slots stay
// application-owned for the rest of the run after a failed requeue.
const (
	SlotQueued SlotState = "queued"
	SlotHeld   SlotState = "held"
	SlotLost   SlotState = "lost"
)

// Slot is one element of the fixed buffer pool: a kernel-shared memory
// region cycled between the driver and the application.
type Slot struct {
	Index  int
	Data   []byte
	Length uint32

	// BytesUsed is the payload size of the most recent frame, set on
	// dequeue. Valid only while the slot is application-owned.
	BytesUsed int

	state SlotState
}

// Bytes returns the readable frame payload. Must only be called while
// the slot is application-owned, before it is requeued.
func (s *Slot) Bytes() []byte {
	n := s.BytesUsed
	if n <= 0 || n > len(s.Data) {
		n = len(s.Data)
	}
	return s.Data[:n]
}

// State returns the slot's current ownership state.
func (s *Slot) State() SlotState { return s.state }

// Pool is the fixed set of mapped buffer slots. Slots are allocated
// once at startup and cycled until teardown; the pool only tracks
// ownership, the Driver moves the bytes.
type Pool struct {
	slots []*Slot
}

// NewPool builds a pool from freshly mapped slots. All slots start
// application-owned; EnqueueAll hands them to the driver.
func NewPool(slots []*Slot) *Pool {
	for _, s := range slots {
		s.state = SlotHeld
	}
	return &Pool{slots: slots}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return len(p.slots) }

// Slots returns all slots, for mapping teardown.
func (p *Pool) Slots() []*Slot { return p.slots }

// MarkQueued records the handoff of a slot to the driver.
func (p *Pool) MarkQueued(index int) error {
	slot, err := p.slot(index)
	if err != nil {
		return err
	}
	if slot.state == SlotQueued {
		return fmt.Errorf("%w: index %d", ErrSlotAlreadyQueued, index)
	}
	slot.state = SlotQueued
	slot.BytesUsed = 0
	return nil
}

// MarkDequeued records the handoff of a filled slot back to the
// application and returns it.
func (p *Pool) MarkDequeued(index int) (*Slot, error) {
	slot, err := p.slot(index)
	if err != nil {
		return nil, err
	}
	if slot.state != SlotQueued {
		return nil, fmt.Errorf("%w: index %d in state %s", ErrSlotNotQueued, index, slot.state)
	}
	slot.state = SlotHeld
	return slot, nil
}

// MarkLost records a slot whose requeue failed. The effective pool
// shrinks by one for the rest of the run.
func (p *Pool) MarkLost(index int) {
	if slot, err := p.slot(index); err == nil {
		slot.state = SlotLost
	}
}

// Counts returns how many slots are driver-owned and how many are
// application-owned (held or lost). Their sum is always Size().
func (p *Pool) Counts() (queued, held int) {
	for _, s := range p.slots {
		if s.state == SlotQueued {
			queued++
		} else {
			held++
		}
	}
	return queued, held
}

func (p *Pool) slot(index int) (*Slot, error) {
	if index < 0 || index >= len(p.slots) {
		return nil, fmt.Errorf("slot index %d out of range [0,%d)", index, len(p.slots))
	}
	return p.slots[index], nil
}
