package fiberatomic

import (
	"fmt"
	"strings"
)

// MemoryOrder identifies the ordering strength of one endpoint of an atomic
// operation. The five values form a partial order:
//
//	Relaxed < Acquire, Release < AcqRel < SeqCst
//
// with Acquire and Release incomparable.
type MemoryOrder uint8

const (
	// OrderRelaxed makes the operation atomic (no tearing) but imposes no
	// ordering relative to other memory operations in either goroutine.
	OrderRelaxed MemoryOrder = iota

	// OrderAcquire is valid on loads and on the load side of a combined
	// operation. No memory operation after it in program order may be
	// reordered before it. An acquire load that observes a release (or
	// stronger) store makes every write that preceded the store visible.
	OrderAcquire

	// OrderRelease is valid on stores and on the store side of a combined
	// operation. No memory operation before it in program order may be
	// reordered after it. Synchronizes-with an acquire (or stronger) load.
	OrderRelease

	// OrderAcqRel combines OrderAcquire and OrderRelease. It is meant for
	// read-modify-write operations, which both observe the prior value and
	// publish a new one.
	OrderAcqRel

	// OrderSeqCst places the operation in the single total order shared by
	// every sequentially consistent operation, consistent with each
	// goroutine's program order. Strictly stronger than OrderAcqRel.
	OrderSeqCst
)

// orderUnknown marks an Error raised for a selector that names no order.
const orderUnknown MemoryOrder = 0xff

var orderNames = [...]string{
	OrderRelaxed: "relaxed",
	OrderAcquire: "acquire",
	OrderRelease: "release",
	OrderAcqRel:  "acq_rel",
	OrderSeqCst:  "seq_cst",
}

func (o MemoryOrder) String() string {
	if o.Valid() {
		return orderNames[o]
	}
	return fmt.Sprintf("MemoryOrder(%d)", uint8(o))
}

// Valid reports whether o is one of the five defined orders.
func (o MemoryOrder) Valid() bool {
	return o <= OrderSeqCst
}

// Acquires reports whether o carries acquire semantics.
func (o MemoryOrder) Acquires() bool {
	return o == OrderAcquire || o == OrderAcqRel || o == OrderSeqCst
}

// Releases reports whether o carries release semantics.
func (o MemoryOrder) Releases() bool {
	return o == OrderRelease || o == OrderAcqRel || o == OrderSeqCst
}

// AtLeast reports whether o is at least as strong as p. Acquire and Release
// are incomparable, so neither is at least as strong as the other.
func (o MemoryOrder) AtLeast(p MemoryOrder) bool {
	if !o.Valid() || !p.Valid() {
		return false
	}
	switch {
	case o == p, o == OrderSeqCst, p == OrderRelaxed:
		return true
	case o == OrderAcqRel:
		return p == OrderAcquire || p == OrderRelease
	}
	return false
}

// LoadSide returns the strongest order valid on a pure load that o implies:
// the release half of o is dropped. It is the failure order a compare-exchange
// uses when the caller states a single order.
func (o MemoryOrder) LoadSide() MemoryOrder {
	switch o {
	case OrderRelease:
		return OrderRelaxed
	case OrderAcqRel:
		return OrderAcquire
	}
	return o
}

// ParseMemoryOrder parses the name of a memory order. Names are case
// insensitive; "acq_rel" and "seq_cst" may also be written with a hyphen or
// with no separator.
func ParseMemoryOrder(s string) (MemoryOrder, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "acqrel":
		name = "acq_rel"
	case "seqcst":
		name = "seq_cst"
	}
	for o, n := range orderNames {
		if n == name {
			return MemoryOrder(o), nil
		}
	}
	return 0, &Error{
		Op:   "ParseMemoryOrder",
		Code: ErrCodeUnknownOrder,
		Msg:  fmt.Sprintf("unknown memory order %q", s),
	}
}

// Ordering is a compile-time order selector. The selectors are the package
// variables Relaxed, Acquire, Release, AcqRel and SeqCst; the interface is
// sealed and operations reject any other implementation.
type Ordering interface {
	Order() MemoryOrder
	ordering()
}

// LoadOrdering is implemented by the selectors valid on a load: Relaxed,
// Acquire and SeqCst. Passing Release or AcqRel where a LoadOrdering is
// required does not compile.
type LoadOrdering interface {
	Ordering
	loadOrdering()
}

// StoreOrdering is implemented by the selectors valid on a store: Relaxed,
// Release and SeqCst.
type StoreOrdering interface {
	Ordering
	storeOrdering()
}

type (
	RelaxedOrder struct{}
	AcquireOrder struct{}
	ReleaseOrder struct{}
	AcqRelOrder  struct{}
	SeqCstOrder  struct{}
)

func (RelaxedOrder) Order() MemoryOrder { return OrderRelaxed }
func (AcquireOrder) Order() MemoryOrder { return OrderAcquire }
func (ReleaseOrder) Order() MemoryOrder { return OrderRelease }
func (AcqRelOrder) Order() MemoryOrder  { return OrderAcqRel }
func (SeqCstOrder) Order() MemoryOrder  { return OrderSeqCst }

func (RelaxedOrder) ordering() {}
func (AcquireOrder) ordering() {}
func (ReleaseOrder) ordering() {}
func (AcqRelOrder) ordering()  {}
func (SeqCstOrder) ordering()  {}

func (RelaxedOrder) loadOrdering() {}
func (AcquireOrder) loadOrdering() {}
func (SeqCstOrder) loadOrdering()  {}

func (RelaxedOrder) storeOrdering() {}
func (ReleaseOrder) storeOrdering() {}
func (SeqCstOrder) storeOrdering()  {}

// Order selectors
var (
	Relaxed RelaxedOrder
	Acquire AcquireOrder
	Release ReleaseOrder
	AcqRel  AcqRelOrder
	SeqCst  SeqCstOrder
)

// orderOf resolves a selector by its concrete type, so a type that embeds a
// selector and overrides Order is still rejected.
func orderOf(op string, o Ordering) MemoryOrder {
	switch o.(type) {
	case RelaxedOrder:
		return OrderRelaxed
	case AcquireOrder:
		return OrderAcquire
	case ReleaseOrder:
		return OrderRelease
	case AcqRelOrder:
		return OrderAcqRel
	case SeqCstOrder:
		return OrderSeqCst
	}
	violate(&Error{Op: op, Code: ErrCodeInvalidOrder, Order: orderUnknown,
		Msg: fmt.Sprintf("unrecognised order selector %T", o)})
	return orderUnknown
}

var selectors = [...]Ordering{
	OrderRelaxed: Relaxed,
	OrderAcquire: Acquire,
	OrderRelease: Release,
	OrderAcqRel:  AcqRel,
	OrderSeqCst:  SeqCst,
}

// Ordering returns the selector for o, for callers that pick an order at run
// time.
func (o MemoryOrder) Ordering() (Ordering, error) {
	if !o.Valid() {
		return nil, newOrderError("Ordering", o, "undefined memory order")
	}
	return selectors[o], nil
}

// LoadOrdering returns the selector for o if o is valid on a load.
func (o MemoryOrder) LoadOrdering() (LoadOrdering, error) {
	if err := orderError("LoadOrdering", OpLoad, o); err != nil {
		return nil, err
	}
	return selectors[o].(LoadOrdering), nil
}

// StoreOrdering returns the selector for o if o is valid on a store.
func (o MemoryOrder) StoreOrdering() (StoreOrdering, error) {
	if err := orderError("StoreOrdering", OpStore, o); err != nil {
		return nil, err
	}
	return selectors[o].(StoreOrdering), nil
}
