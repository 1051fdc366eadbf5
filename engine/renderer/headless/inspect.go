package headless

import "github.com/spaghettifunk/skirmish/engine/renderer/metadata"

// ReadBack returns a copy of the bytes held by memory.
func (d *Device) ReadBack(memory metadata.MemoryHandle) ([]byte, bool) {
	b, ok := d.memory.Lookup(uint64(memory))
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b.data...), true
}

// LiveAllocations is the number of allocations not yet freed.
func (d *Device) LiveAllocations() int {
	return d.memory.Len()
}

// BytesInUse is the total size of live allocations.
func (d *Device) BytesInUse() uint64 {
	return d.used
}

// Descriptor returns the buffer bound at binding for frame, or 0.
func (d *Device) Descriptor(frame, binding uint32) metadata.BufferHandle {
	if frame >= uint32(len(d.descriptors)) {
		return 0
	}
	return d.descriptors[frame][binding]
}

// SetCurrentFrame forces the slot the next writes go to.
func (d *Device) SetCurrentFrame(frame uint32) {
	d.current = frame % d.frameCount
}

func (d *Device) FrameNumber() uint64 {
	return d.frameNumber
}

// Trace returns the recorded calls since the last ResetTrace.
func (d *Device) Trace() []Call {
	return append([]Call(nil), d.trace...)
}

func (d *Device) ResetTrace() {
	d.trace = d.trace[:0]
}

// Calls filters the trace by operation.
func (d *Device) Calls(op Op) []Call {
	var out []Call
	for _, c := range d.trace {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
