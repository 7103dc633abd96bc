package fiberatomic

import (
	"unsafe"

	"github.com/carterww/fiber-atomic/internal/word"
)

// The fetch-and-op family returns the value *addr held before the update; the
// op-and-fetch family returns the value it holds after. Arithmetic wraps
// modulo 2^width in two's complement for signed and unsigned types alike.
// Every order is accepted.

func fetchAdd[T Integer](op string, addr *T, delta uint64, order Ordering) T {
	p := operand(op, addr)
	orderOf(op, order)
	return fromBits[T](word.FetchAdd(p, unsafe.Sizeof(*addr), delta))
}

func fetchAnd[T Integer](op string, addr *T, val T, order Ordering) T {
	p := operand(op, addr)
	orderOf(op, order)
	return fromBits[T](word.FetchAnd(p, unsafe.Sizeof(*addr), toBits(val)))
}

func fetchOr[T Integer](op string, addr *T, val T, order Ordering) T {
	p := operand(op, addr)
	orderOf(op, order)
	return fromBits[T](word.FetchOr(p, unsafe.Sizeof(*addr), toBits(val)))
}

func fetchXor[T Integer](op string, addr *T, val T, order Ordering) T {
	p := operand(op, addr)
	orderOf(op, order)
	return fromBits[T](word.FetchXor(p, unsafe.Sizeof(*addr), toBits(val)))
}

// FetchAdd atomically adds val to *addr and returns the previous value. Like
// every 8 and 16-bit update it rewrites the containing 32-bit word, so no
// other byte of that word may be accessed non-atomically.
func FetchAdd[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAdd("FetchAdd", addr, toBits(val), order)
}

// FetchSub atomically subtracts val from *addr and returns the previous value.
func FetchSub[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAdd("FetchSub", addr, -toBits(val), order)
}

// FetchAnd atomically replaces *addr with *addr & val and returns the
// previous value.
func FetchAnd[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAnd("FetchAnd", addr, val, order)
}

// FetchXor atomically replaces *addr with *addr ^ val and returns the
// previous value.
func FetchXor[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchXor("FetchXor", addr, val, order)
}

// FetchOr atomically replaces *addr with *addr | val and returns the previous
// value.
func FetchOr[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchOr("FetchOr", addr, val, order)
}

// AddFetch atomically adds val to *addr and returns the new value.
func AddFetch[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAdd("AddFetch", addr, toBits(val), order) + val
}

// SubFetch atomically subtracts val from *addr and returns the new value.
func SubFetch[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAdd("SubFetch", addr, -toBits(val), order) - val
}

// AndFetch atomically replaces *addr with *addr & val and returns the new
// value.
func AndFetch[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchAnd("AndFetch", addr, val, order) & val
}

// XorFetch atomically replaces *addr with *addr ^ val and returns the new
// value.
func XorFetch[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchXor("XorFetch", addr, val, order) ^ val
}

// OrFetch atomically replaces *addr with *addr | val and returns the new
// value.
func OrFetch[T Integer, O Ordering](addr *T, val T, order O) T {
	return fetchOr("OrFetch", addr, val, order) | val
}

// IncFetch atomically increments *addr and returns the new value.
func IncFetch[T Integer, O Ordering](addr *T, order O) T {
	return fetchAdd("IncFetch", addr, 1, order) + 1
}

// DecFetch atomically decrements *addr and returns the new value.
func DecFetch[T Integer, O Ordering](addr *T, order O) T {
	return fetchAdd("DecFetch", addr, ^uint64(0), order) - 1
}

// FetchInc atomically increments *addr and returns the previous value.
func FetchInc[T Integer, O Ordering](addr *T, order O) T {
	return fetchAdd("FetchInc", addr, 1, order)
}

// FetchDec atomically decrements *addr and returns the previous value.
func FetchDec[T Integer, O Ordering](addr *T, order O) T {
	return fetchAdd("FetchDec", addr, ^uint64(0), order)
}
