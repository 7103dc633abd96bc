package word

import (
	"sync/atomic"
	"unsafe"
)

// op selects the update applied to a lane by lane.update.
type op uint8

const (
	opSwap op = iota
	opAdd
	opXor
)

// lane locates a 1 or 2 byte value inside its naturally aligned containing
// 32-bit word.
type lane struct {
	word  *uint32
	shift uint
	mask  uint32
}

func laneOf(addr unsafe.Pointer, size uintptr) lane {
	off := uintptr(addr) & 3
	l := lane{
		word: (*uint32)(unsafe.Add(addr, -int(off))),
		mask: uint32(Mask(size)),
	}
	if bigEndian {
		l.shift = uint(4-size-off) * 8
	} else {
		l.shift = uint(off) * 8
	}
	return l
}

func (l lane) get(w uint32) uint32 {
	return (w >> l.shift) & l.mask
}

func (l lane) put(w, v uint32) uint32 {
	return w&^(l.mask<<l.shift) | (v&l.mask)<<l.shift
}

func (l lane) load() uint32 {
	return l.get(atomic.LoadUint32(l.word))
}

// update applies o to the lane with operand v and returns the previous lane
// value. Bytes outside the lane are carried through unchanged.
func (l lane) update(o op, v uint32) (old uint32) {
	for {
		w := atomic.LoadUint32(l.word)
		old = l.get(w)
		var next uint32
		switch o {
		case opSwap:
			next = v
		case opAdd:
			next = old + v
		case opXor:
			next = old ^ v
		}
		if atomic.CompareAndSwapUint32(l.word, w, l.put(w, next)) {
			return old
		}
	}
}

// compareAndSwap only fails when the lane itself differs from old; changes
// to neighbouring lanes cause a retry.
func (l lane) compareAndSwap(old, new uint32) bool {
	for {
		w := atomic.LoadUint32(l.word)
		if l.get(w) != old {
			return false
		}
		if atomic.CompareAndSwapUint32(l.word, w, l.put(w, new)) {
			return true
		}
	}
}

// and keeps every bit outside the lane set in the mask so a single native
// 32-bit AND touches only the lane.
func (l lane) and(v uint32) uint32 {
	keep := ^(l.mask << l.shift)
	return l.get(atomic.AndUint32(l.word, keep|(v&l.mask)<<l.shift))
}

func (l lane) or(v uint32) uint32 {
	return l.get(atomic.OrUint32(l.word, (v&l.mask)<<l.shift))
}
