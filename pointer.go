package fiberatomic

import (
	"sync/atomic"
	"unsafe"

	"github.com/carterww/fiber-atomic/internal/word"
)

// Pointer operands go through the sync/atomic pointer functions rather than
// the integer backend so the garbage collector sees every store.

func pointerOperand[E any](op string, addr **E) *unsafe.Pointer {
	return (*unsafe.Pointer)(operand(op, addr))
}

// LoadPointer atomically reads the pointer *addr.
func LoadPointer[E any, O LoadOrdering](addr **E, order O) *E {
	orderOf("LoadPointer", order)
	return (*E)(atomic.LoadPointer(pointerOperand("LoadPointer", addr)))
}

// StorePointer atomically writes val to the pointer *addr.
func StorePointer[E any, O StoreOrdering](addr **E, val *E, order O) {
	orderOf("StorePointer", order)
	atomic.StorePointer(pointerOperand("StorePointer", addr), unsafe.Pointer(val))
}

// ExchangePointer atomically replaces the pointer *addr with val and returns
// the previous pointer.
func ExchangePointer[E any, O Ordering](addr **E, val *E, order O) (old *E) {
	orderOf("ExchangePointer", order)
	return (*E)(atomic.SwapPointer(pointerOperand("ExchangePointer", addr), unsafe.Pointer(val)))
}

// CompareExchangePointer is CompareExchange for pointer variables. Pointers
// compare by address.
func CompareExchangePointer[E any, S Ordering, F LoadOrdering](addr, expected **E, desired *E, weak bool, success S, failure F) bool {
	const op = "CompareExchangePointer"
	p := pointerOperand(op, addr)
	if expected == nil {
		violate(&Error{Op: op, Code: ErrCodeNilAddress, Size: unsafe.Sizeof(*addr), Msg: "nil expected value"})
	}
	checkOrders(op, orderOf(op, success), orderOf(op, failure))

	exp := unsafe.Pointer(*expected)
	if word.CompareExchangePointer(p, &exp, unsafe.Pointer(desired), weak) {
		return true
	}
	*expected = (*E)(exp)
	return false
}
