// Package word implements atomic operations on 1, 2, 4 and 8 byte machine
// words addressed by unsafe.Pointer. Values travel as the low bits of a uint64.
//
// 4 and 8 byte words map directly onto sync/atomic. 1 and 2 byte words have no
// sync/atomic counterpart and are emulated on the naturally aligned 32-bit word
// that contains them: every update is a compare-and-swap of the whole
// containing word. Neighbouring bytes updated through this package are never
// clobbered, but a neighbour written non-atomically races with the
// compare-and-swap, which rewrites it with the value it read.
//
// Callers validate addresses and sizes; the functions here assume a non-nil,
// naturally aligned address of a supported size.
package word

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// bigEndian records whether the first byte of a word holds its most
// significant bits on this platform.
const bigEndian = cpu.IsBigEndian

// BigEndian reports the byte order the lane arithmetic was built for.
func BigEndian() bool {
	return bigEndian
}

// Supported reports whether size is an operand width this package handles.
func Supported(size uintptr) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Native reports whether size maps directly onto a sync/atomic operation.
func Native(size uintptr) bool {
	return size == 4 || size == 8
}

// Aligned reports whether addr is naturally aligned for a word of size bytes.
func Aligned(addr unsafe.Pointer, size uintptr) bool {
	return uintptr(addr)&(size-1) == 0
}

// Mask returns the value mask for a word of size bytes.
func Mask(size uintptr) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return 1<<(size*8) - 1
}

func badSize() {
	panic("word: unsupported operand size")
}

// Load atomically loads the word at addr.
func Load(addr unsafe.Pointer, size uintptr) uint64 {
	switch size {
	case 8:
		return atomic.LoadUint64((*uint64)(addr))
	case 4:
		return uint64(atomic.LoadUint32((*uint32)(addr)))
	case 1, 2:
		return uint64(laneOf(addr, size).load())
	}
	badSize()
	return 0
}

// Store atomically stores val into the word at addr.
func Store(addr unsafe.Pointer, size uintptr, val uint64) {
	switch size {
	case 8:
		atomic.StoreUint64((*uint64)(addr), val)
	case 4:
		atomic.StoreUint32((*uint32)(addr), uint32(val))
	case 1, 2:
		laneOf(addr, size).update(opSwap, uint32(val))
	default:
		badSize()
	}
}

// Swap atomically stores val into the word at addr and returns the previous value.
func Swap(addr unsafe.Pointer, size uintptr, val uint64) (old uint64) {
	switch size {
	case 8:
		return atomic.SwapUint64((*uint64)(addr), val)
	case 4:
		return uint64(atomic.SwapUint32((*uint32)(addr), uint32(val)))
	case 1, 2:
		return uint64(laneOf(addr, size).update(opSwap, uint32(val)))
	}
	badSize()
	return 0
}

// CompareAndSwap stores new into the word at addr if it currently holds old.
// It never fails while the word holds old.
func CompareAndSwap(addr unsafe.Pointer, size uintptr, old, new uint64) (swapped bool) {
	switch size {
	case 8:
		return atomic.CompareAndSwapUint64((*uint64)(addr), old, new)
	case 4:
		return atomic.CompareAndSwapUint32((*uint32)(addr), uint32(old), uint32(new))
	case 1, 2:
		return laneOf(addr, size).compareAndSwap(uint32(old), uint32(new))
	}
	badSize()
	return false
}

// CompareExchange compares the word at addr with *expected and, if equal,
// replaces it with desired. On failure the value actually observed is written
// to *expected.
//
// With weak set a single attempt is made, so the call may report failure even
// though the word held *expected. Otherwise a failed hardware compare whose
// reload still equals *expected is retried, and false is only returned when
// the comparison genuinely failed.
func CompareExchange(addr unsafe.Pointer, size uintptr, expected *uint64, desired uint64, weak bool) bool {
	for {
		if CompareAndSwap(addr, size, *expected, desired) {
			return true
		}
		cur := Load(addr, size)
		if weak || cur != *expected {
			*expected = cur
			return false
		}
	}
}

// FetchAdd atomically adds delta to the word at addr, wrapping at the word
// width, and returns the previous value.
func FetchAdd(addr unsafe.Pointer, size uintptr, delta uint64) (old uint64) {
	switch size {
	case 8:
		return atomic.AddUint64((*uint64)(addr), delta) - delta
	case 4:
		d := uint32(delta)
		return uint64(atomic.AddUint32((*uint32)(addr), d) - d)
	case 1, 2:
		return uint64(laneOf(addr, size).update(opAdd, uint32(delta)))
	}
	badSize()
	return 0
}

// FetchAnd atomically replaces the word at addr with word & val and returns
// the previous value.
func FetchAnd(addr unsafe.Pointer, size uintptr, val uint64) (old uint64) {
	switch size {
	case 8:
		return atomic.AndUint64((*uint64)(addr), val)
	case 4:
		return uint64(atomic.AndUint32((*uint32)(addr), uint32(val)))
	case 1, 2:
		return uint64(laneOf(addr, size).and(uint32(val)))
	}
	badSize()
	return 0
}

// FetchOr atomically replaces the word at addr with word | val and returns
// the previous value.
func FetchOr(addr unsafe.Pointer, size uintptr, val uint64) (old uint64) {
	switch size {
	case 8:
		return atomic.OrUint64((*uint64)(addr), val)
	case 4:
		return uint64(atomic.OrUint32((*uint32)(addr), uint32(val)))
	case 1, 2:
		return uint64(laneOf(addr, size).or(uint32(val)))
	}
	badSize()
	return 0
}

// FetchXor atomically replaces the word at addr with word ^ val and returns
// the previous value. sync/atomic has no xor, so every width uses a
// compare-and-swap loop.
func FetchXor(addr unsafe.Pointer, size uintptr, val uint64) (old uint64) {
	switch size {
	case 8:
		p := (*uint64)(addr)
		for {
			cur := atomic.LoadUint64(p)
			if atomic.CompareAndSwapUint64(p, cur, cur^val) {
				return cur
			}
		}
	case 4:
		p, v := (*uint32)(addr), uint32(val)
		for {
			cur := atomic.LoadUint32(p)
			if atomic.CompareAndSwapUint32(p, cur, cur^v) {
				return uint64(cur)
			}
		}
	case 1, 2:
		return uint64(laneOf(addr, size).update(opXor, uint32(val)))
	}
	badSize()
	return 0
}

// CompareExchangePointer is CompareExchange for pointer words. Pointers go
// through the sync/atomic pointer functions so the garbage collector observes
// every store.
func CompareExchangePointer(addr *unsafe.Pointer, expected *unsafe.Pointer, desired unsafe.Pointer, weak bool) bool {
	for {
		if atomic.CompareAndSwapPointer(addr, *expected, desired) {
			return true
		}
		cur := atomic.LoadPointer(addr)
		if weak || cur != *expected {
			*expected = cur
			return false
		}
	}
}
