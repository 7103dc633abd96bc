// Package fiberatomic provides generic atomic memory operations with an
// explicit, caller-selected memory order.
//
// Every operation takes the address of a caller-owned variable and one order
// selector per ordered endpoint:
//
//	var n uint32
//	fiberatomic.Store(&n, 5, fiberatomic.Release)
//	v := fiberatomic.Load(&n, fiberatomic.Acquire)
//
// Orders that make no sense for an operation (Acquire on a store, Release on
// a load) do not compile. Orders chosen at run time are converted to
// selectors with MemoryOrder.Ordering, LoadOrdering and StoreOrdering, which
// report invalid combinations as errors.
//
// The operations are implemented on sync/atomic, whose operations are all
// sequentially consistent, so each operation is at least as strong as the
// order requested. 8 and 16-bit operands are updated through the naturally
// aligned 32-bit word that contains them: an update rewrites the other bytes
// of that word with the values it read. While an 8 or 16-bit variable is in
// use atomically, no other byte of its containing 32-bit word may be read or
// written non-atomically, even under a lock. Pad narrow fields onto a word of
// their own, or keep every neighbour in the word atomic too.
//
// A nil or misaligned address is a programming error and panics with *Error.
package fiberatomic

import (
	"unsafe"

	"github.com/carterww/fiber-atomic/internal/word"
)

// Integer is the set of integer operand types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Value is the set of operand types accepted by the load, store, exchange and
// compare-exchange operations.
//
// Operands narrower than 32 bits share their aligned 32-bit word with their
// neighbours, and those neighbours must only be accessed through this package
// while the operand is in use.
type Value interface {
	Integer | ~bool
}

// toBits reinterprets v as an unsigned integer of the same width.
func toBits[T Value](v T) uint64 {
	p := unsafe.Pointer(&v)
	switch unsafe.Sizeof(v) {
	case 1:
		return uint64(*(*uint8)(p))
	case 2:
		return uint64(*(*uint16)(p))
	case 4:
		return uint64(*(*uint32)(p))
	case 8:
		return *(*uint64)(p)
	}
	panic(unsupportedWidth("toBits", unsafe.Sizeof(v)))
}

// fromBits is the inverse of toBits; bits above the width of T are ignored.
func fromBits[T Value](b uint64) (v T) {
	p := unsafe.Pointer(&v)
	switch unsafe.Sizeof(v) {
	case 1:
		*(*uint8)(p) = uint8(b)
	case 2:
		*(*uint16)(p) = uint16(b)
	case 4:
		*(*uint32)(p) = uint32(b)
	case 8:
		*(*uint64)(p) = b
	default:
		panic(unsupportedWidth("fromBits", unsafe.Sizeof(v)))
	}
	return v
}

func unsupportedWidth(op string, size uintptr) *Error {
	return &Error{Op: op, Code: ErrCodeUnsupportedWidth, Size: size}
}

// ValidateWidth reports whether size is an operand width in bytes the package
// can operate on.
func ValidateWidth(size uintptr) error {
	if !word.Supported(size) {
		e := unsupportedWidth("ValidateWidth", size)
		e.Msg = "operand width must be 1, 2, 4 or 8 bytes"
		return e
	}
	return nil
}

// Load atomically reads *addr. For 8 and 16-bit operands the rest of the
// containing 32-bit word must not be written non-atomically.
func Load[T Value, O LoadOrdering](addr *T, order O) T {
	p := operand("Load", addr)
	orderOf("Load", order)
	return fromBits[T](word.Load(p, unsafe.Sizeof(*addr)))
}

// LoadInto atomically reads *addr and writes the result to *dest. The write to
// dest is an ordinary, non-atomic store.
func LoadInto[T Value, O LoadOrdering](addr, dest *T, order O) {
	p := operand("LoadInto", addr)
	orderOf("LoadInto", order)
	*dest = fromBits[T](word.Load(p, unsafe.Sizeof(*addr)))
}

// Store atomically writes val to *addr. For 8 and 16-bit operands the write
// rewrites the whole containing 32-bit word, so no other byte of it may be
// accessed non-atomically.
func Store[T Value, O StoreOrdering](addr *T, val T, order O) {
	p := operand("Store", addr)
	orderOf("Store", order)
	word.Store(p, unsafe.Sizeof(*addr), toBits(val))
}

// StoreFrom atomically writes *src to *addr. The read of src is an ordinary,
// non-atomic load.
func StoreFrom[T Value, O StoreOrdering](addr, src *T, order O) {
	p := operand("StoreFrom", addr)
	orderOf("StoreFrom", order)
	word.Store(p, unsafe.Sizeof(*addr), toBits(*src))
}

// Exchange atomically replaces *addr with val and returns the previous value.
func Exchange[T Value, O Ordering](addr *T, val T, order O) (old T) {
	p := operand("Exchange", addr)
	orderOf("Exchange", order)
	return fromBits[T](word.Swap(p, unsafe.Sizeof(*addr), toBits(val)))
}

// ExchangeInto atomically replaces *addr with *val and writes the previous
// value to *ret. val and ret may point to the same variable.
func ExchangeInto[T Value, O Ordering](addr, val, ret *T, order O) {
	p := operand("ExchangeInto", addr)
	orderOf("ExchangeInto", order)
	*ret = fromBits[T](word.Swap(p, unsafe.Sizeof(*addr), toBits(*val)))
}

// CompareExchange atomically compares *addr with *expected and, if they are
// equal, replaces *addr with desired and returns true using the success order.
// Otherwise it writes the current value of *addr to *expected and returns
// false using the failure order.
//
// A strong compare-exchange (weak == false) only fails when *addr differs
// from *expected. A weak one may fail spuriously and is meant to be called in
// a retry loop.
//
// failure must not be stronger than the load side of success; see
// ValidateCompareExchangeOrders.
func CompareExchange[T Value, S Ordering, F LoadOrdering](addr, expected *T, desired T, weak bool, success S, failure F) bool {
	return compareExchange("CompareExchange", addr, expected, desired, weak, success, failure)
}

// CompareExchangeFrom is CompareExchange with the desired value read from
// *desired.
func CompareExchangeFrom[T Value, S Ordering, F LoadOrdering](addr, expected, desired *T, weak bool, success S, failure F) bool {
	return compareExchange("CompareExchangeFrom", addr, expected, *desired, weak, success, failure)
}

func compareExchange[T Value](op string, addr, expected *T, desired T, weak bool, success Ordering, failure LoadOrdering) bool {
	p := operand(op, addr)
	if expected == nil {
		violate(&Error{Op: op, Code: ErrCodeNilAddress, Size: unsafe.Sizeof(*addr), Msg: "nil expected value"})
	}
	checkOrders(op, orderOf(op, success), orderOf(op, failure))

	exp := toBits(*expected)
	if word.CompareExchange(p, unsafe.Sizeof(*addr), &exp, toBits(desired), weak) {
		return true
	}
	*expected = fromBits[T](exp)
	return false
}
