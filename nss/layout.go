package main

import "github.com/ubuntu/nss-sql/internal/buffer"

// alignPad returns the number of bytes to skip from addr to reach a slot boundary.
func alignPad(addr uintptr) int {
	return (buffer.SlotSize - int(addr%buffer.SlotSize)) % buffer.SlotSize
}

// resolveSlots turns the offsets held by the len(dst)-1 slots packed at off in
// buf into pointers relative to base, and NULL terminates dst.
// dst may alias the slots themselves.
func resolveSlots(dst []uintptr, base uintptr, buf []byte, off int) {
	n := len(dst) - 1
	for i := range n {
		dst[i] = base + uintptr(buffer.Slot(buf, off, i))
	}
	dst[n] = 0
}

// grownSize returns the capacity of a gid array of size entries once it has to
// hold n groups, not going over limit when limit is positive.
// It returns size when no reallocation is needed.
func grownSize(n, size, limit int) int {
	if n <= size {
		return size
	}
	newSize := max(n, 2*size)
	if limit > 0 {
		newSize = max(min(newSize, limit), n)
	}
	return newSize
}

// gidList converts a caller gid array.
func gidList[T ~uint32](gids []T) []uint32 {
	l := make([]uint32, 0, len(gids))
	for _, gid := range gids {
		l = append(l, uint32(gid))
	}
	return l
}

// appendGids copies the groups past the start first ones into dst and returns
// the new number of entries.
func appendGids[T ~uint32](dst []T, groups []uint32, start int) int {
	for i := start; i < len(groups); i++ {
		dst[i] = T(groups[i])
	}
	return len(groups)
}
