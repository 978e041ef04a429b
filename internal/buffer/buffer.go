// Package buffer packs records into caller owned scratch buffers.
//
// Strings are written NUL terminated. Pointer arrays are reserved as pointer
// sized, pointer aligned slots holding offsets relative to the start of the
// buffer, so that a C caller can turn them into absolute pointers in place.
package buffer

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

// SlotSize is the size in bytes of one pointer array slot.
const SlotSize = strconv.IntSize / 8

// InsufficientError is returned when a record does not fit in the caller buffer.
// It matches [unix.ERANGE] with errors.Is.
type InsufficientError struct {
	Required  int
	Available int
}

// Error implements the error interface.
func (err InsufficientError) Error() string {
	return fmt.Sprintf("buffer too small: %d bytes required, %d available", err.Required, err.Available)
}

// Is makes this error insensitive to the sizes, and equivalent to ERANGE.
func (InsufficientError) Is(target error) bool {
	return target == InsufficientError{} || target == unix.ERANGE
}

// Writer packs data into a fixed size buffer. It never writes past the end of
// the buffer and keeps counting the required size once the buffer is full.
type Writer struct {
	buf  []byte
	size int
}

// NewWriter returns a Writer packing into buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// String reserves room for s and its NUL terminator and returns its offset.
func (w *Writer) String(s string) int {
	off := w.size
	w.size += len(s) + 1
	if w.size <= len(w.buf) {
		copy(w.buf[off:], s)
		w.buf[off+len(s)] = 0
	}
	return off
}

// Slots reserves n aligned pointer slots and returns the offset of the first one.
func (w *Writer) Slots(n int) int {
	if rem := w.size % SlotSize; rem != 0 {
		w.size += SlotSize - rem
	}
	off := w.size
	w.size += n * SlotSize
	return off
}

// PutSlot stores value in the i-th slot of the array starting at offset slots.
func (w *Writer) PutSlot(slots, i, value int) {
	off := slots + i*SlotSize
	if off+SlotSize > len(w.buf) {
		return
	}
	if SlotSize == 8 {
		binary.NativeEndian.PutUint64(w.buf[off:], uint64(value))
		return
	}
	binary.NativeEndian.PutUint32(w.buf[off:], uint32(value))
}

// Slot reads back the i-th slot of the array starting at offset slots.
func Slot(buf []byte, slots, i int) int {
	off := slots + i*SlotSize
	if SlotSize == 8 {
		return int(binary.NativeEndian.Uint64(buf[off:]))
	}
	return int(binary.NativeEndian.Uint32(buf[off:]))
}

// Len returns the number of bytes needed by everything packed so far.
func (w *Writer) Len() int {
	return w.size
}

// Err returns an [InsufficientError] if what was packed does not fit in the buffer.
func (w *Writer) Err() error {
	if w.size > len(w.buf) {
		return InsufficientError{Required: w.size, Available: len(w.buf)}
	}
	return nil
}

// Pack runs fill over a sizing pass, then over buf only if everything fits.
// It returns the number of bytes packed. buf is left untouched when it is too
// small, and the error is an [InsufficientError] with the required size.
func Pack(buf []byte, fill func(w *Writer)) (int, error) {
	sizing := NewWriter(nil)
	fill(sizing)
	if sizing.Len() > len(buf) {
		return 0, InsufficientError{Required: sizing.Len(), Available: len(buf)}
	}

	w := NewWriter(buf)
	fill(w)
	return w.Len(), nil
}

// CString returns the NUL terminated string starting at offset off.
func CString(buf []byte, off int) string {
	end := off
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[off:end])
}
