package fiberatomic

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/carterww/fiber-atomic/internal/logging"
)

// Error represents a structured fiberatomic error. Operations on atomic
// variables never return errors: every Error raised by them is a programming
// error and is delivered as a panic. Only the dynamic order helpers
// (ParseMemoryOrder, ValidateOrder, MemoryOrder.LoadOrdering, ...) return one.
type Error struct {
	Op    string      // Operation that failed (e.g., "Load", "CompareExchange")
	Code  ErrorCode   // High-level error category
	Order MemoryOrder // Offending order (only meaningful for ErrCodeInvalidOrder)
	Size  uintptr     // Operand width in bytes (0 if not applicable)
	Addr  uintptr     // Operand address (0 if not applicable)
	Msg   string      // Human-readable message
	Inner error       // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Size != 0 {
		parts = append(parts, fmt.Sprintf("size=%d", e.Size))
	}

	if e.Addr != 0 {
		parts = append(parts, fmt.Sprintf("addr=%#x", e.Addr))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("fiberatomic: %s (%s)", msg, strings.Join(parts, ", "))
	}

	return fmt.Sprintf("fiberatomic: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches sentinel errors and other *Error values by code
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if s, ok := target.(Sentinel); ok {
		return e.Code == ErrorCode(s)
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	ErrCodeInvalidOrder     ErrorCode = "invalid memory order"
	ErrCodeUnknownOrder     ErrorCode = "unknown memory order"
	ErrCodeUnsupportedWidth ErrorCode = "unsupported operand width"
	ErrCodeUnaligned        ErrorCode = "unaligned operand address"
	ErrCodeNilAddress       ErrorCode = "nil operand address"
)

// Sentinel is a comparable error value matching every *Error of the same code
type Sentinel string

func (e Sentinel) Error() string {
	return "fiberatomic: " + string(e)
}

// Sentinel errors for errors.Is
const (
	ErrInvalidOrder     Sentinel = Sentinel(ErrCodeInvalidOrder)
	ErrUnknownOrder     Sentinel = Sentinel(ErrCodeUnknownOrder)
	ErrUnsupportedWidth Sentinel = Sentinel(ErrCodeUnsupportedWidth)
	ErrUnaligned        Sentinel = Sentinel(ErrCodeUnaligned)
	ErrNilAddress       Sentinel = Sentinel(ErrCodeNilAddress)
)

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

func newOrderError(op string, order MemoryOrder, msg string) *Error {
	return &Error{
		Op:    op,
		Code:  ErrCodeInvalidOrder,
		Order: order,
		Msg:   msg,
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// violate reports a broken usage contract. It never returns.
func violate(e *Error) {
	var order fmt.Stringer
	if e.Code == ErrCodeInvalidOrder {
		order = e.Order
	}
	logging.Default().WithOp(e.Op, order).Error("atomic contract violation",
		"code", string(e.Code),
		"size", e.Size,
		"addr", fmt.Sprintf("%#x", e.Addr),
		"msg", e.Msg)
	panic(e)
}

// operand validates the address of an atomic variable and returns it as an
// unsafe.Pointer.
func operand[T any](op string, addr *T) unsafe.Pointer {
	p := unsafe.Pointer(addr)
	size := unsafe.Sizeof(*addr)
	if p == nil {
		violate(&Error{Op: op, Code: ErrCodeNilAddress, Size: size})
	}
	if uintptr(p)&(size-1) != 0 {
		violate(&Error{Op: op, Code: ErrCodeUnaligned, Size: size, Addr: uintptr(p)})
	}
	return p
}

// checkOrders panics when failure may not accompany success on a
// compare-exchange.
func checkOrders(op string, success, failure MemoryOrder) {
	if e := compareExchangeOrderError(op, success, failure); e != nil {
		violate(e)
	}
}
