package main

import "C"

import "unsafe"

// callerBuffer is the scratch buffer handed over by the C caller.
type callerBuffer struct {
	base unsafe.Pointer
	buf  []byte
}

// newCallerBuffer wraps the C buffer, skipping the bytes needed to align its
// start on a pointer boundary.
func newCallerBuffer(p *C.char, size C.size_t) callerBuffer {
	if p == nil {
		return callerBuffer{}
	}

	pad := alignPad(uintptr(unsafe.Pointer(p)))
	if int(size) <= pad {
		return callerBuffer{}
	}

	base := unsafe.Add(unsafe.Pointer(p), pad)
	return callerBuffer{
		base: base,
		buf:  unsafe.Slice((*byte)(base), int(size)-pad),
	}
}

// str returns a pointer to the string packed at off.
func (b callerBuffer) str(off int) *C.char {
	return (*C.char)(unsafe.Add(b.base, off))
}

// pointerArray turns the n+1 slots packed at off, holding offsets, into a NULL
// terminated array of pointers into the buffer.
func (b callerBuffer) pointerArray(off, n int) **C.char {
	slots := unsafe.Slice((*uintptr)(unsafe.Add(b.base, off)), n+1)
	resolveSlots(slots, uintptr(b.base), b.buf, off)
	return (**C.char)(unsafe.Add(b.base, off))
}
