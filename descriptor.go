package fiberatomic

import "fmt"

// OpKind classifies facade operations by the memory accesses they perform,
// which decides the orders they accept.
type OpKind uint8

const (
	// OpFence orders surrounding accesses without accessing memory itself
	OpFence OpKind = iota
	// OpLoad is a pure read: Load, LoadInto, LoadPointer
	OpLoad
	// OpStore is a pure write: Store, StoreFrom, StorePointer
	OpStore
	// OpExchange is an unconditional read-modify-write
	OpExchange
	// OpCompareExchange is a conditional read-modify-write with separate
	// success and failure orders
	OpCompareExchange
	// OpFetch covers the fetch-and-op and op-and-fetch families
	OpFetch
)

var opKindNames = [...]string{
	OpFence:           "fence",
	OpLoad:            "load",
	OpStore:           "store",
	OpExchange:        "exchange",
	OpCompareExchange: "compare_exchange",
	OpFetch:           "fetch_op",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// ValidateOrder reports whether order may be used for an operation of kind.
// Loads reject Release and AcqRel, stores reject Acquire and AcqRel, and the
// read-modify-write kinds and fences accept every order. For
// OpCompareExchange the order checked is the success order.
func ValidateOrder(kind OpKind, order MemoryOrder) error {
	if err := orderError("ValidateOrder", kind, order); err != nil {
		return err
	}
	return nil
}

// ValidateCompareExchangeOrders reports whether failure may accompany success
// on a compare-exchange. A failed compare-exchange performs no write, so the
// failure order must be valid on a load, and it may not be stronger than the
// load side of the success order.
func ValidateCompareExchangeOrders(success, failure MemoryOrder) error {
	if err := compareExchangeOrderError("ValidateCompareExchangeOrders", success, failure); err != nil {
		return err
	}
	return nil
}

func orderError(op string, kind OpKind, order MemoryOrder) *Error {
	if !order.Valid() {
		return newOrderError(op, order, "undefined memory order")
	}
	switch kind {
	case OpLoad:
		if order == OrderRelease || order == OrderAcqRel {
			return newOrderError(op, order, fmt.Sprintf("%s is not valid on a load", order))
		}
	case OpStore:
		if order == OrderAcquire || order == OrderAcqRel {
			return newOrderError(op, order, fmt.Sprintf("%s is not valid on a store", order))
		}
	case OpFence, OpExchange, OpCompareExchange, OpFetch:
	default:
		return &Error{Op: op, Code: ErrCodeInvalidOrder, Order: order, Msg: fmt.Sprintf("unknown operation kind %s", kind)}
	}
	return nil
}

func compareExchangeOrderError(op string, success, failure MemoryOrder) *Error {
	if err := orderError(op, OpCompareExchange, success); err != nil {
		return err
	}
	if err := orderError(op, OpLoad, failure); err != nil {
		err.Msg = "failure order: " + err.Msg
		return err
	}
	if !success.LoadSide().AtLeast(failure) {
		return newOrderError(op, failure, fmt.Sprintf("failure order %s is stronger than success order %s", failure, success))
	}
	return nil
}
