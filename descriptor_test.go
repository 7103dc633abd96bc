package fiberatomic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		kind    OpKind
		invalid []MemoryOrder
	}{
		{OpFence, nil},
		{OpLoad, []MemoryOrder{OrderRelease, OrderAcqRel}},
		{OpStore, []MemoryOrder{OrderAcquire, OrderAcqRel}},
		{OpExchange, nil},
		{OpCompareExchange, nil},
		{OpFetch, nil},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			for _, o := range allOrders {
				err := ValidateOrder(tt.kind, o)
				if contains(tt.invalid, o) {
					assert.ErrorIs(t, err, ErrInvalidOrder, o.String())
				} else {
					assert.NoError(t, err, o.String())
				}
			}
			assert.ErrorIs(t, ValidateOrder(tt.kind, MemoryOrder(42)), ErrInvalidOrder)
		})
	}

	assert.ErrorIs(t, ValidateOrder(OpKind(99), OrderSeqCst), ErrInvalidOrder)
}

func contains(orders []MemoryOrder, o MemoryOrder) bool {
	for _, x := range orders {
		if x == o {
			return true
		}
	}
	return false
}

func TestValidateOrderReturnsUntypedNil(t *testing.T) {
	err := ValidateOrder(OpLoad, OrderAcquire)
	assert.True(t, err == nil)
}

func TestValidateCompareExchangeOrders(t *testing.T) {
	tests := []struct {
		success, failure MemoryOrder
		ok               bool
	}{
		{OrderSeqCst, OrderSeqCst, true},
		{OrderSeqCst, OrderAcquire, true},
		{OrderSeqCst, OrderRelaxed, true},
		{OrderAcqRel, OrderAcquire, true},
		{OrderAcqRel, OrderRelaxed, true},
		{OrderAcqRel, OrderSeqCst, false},
		{OrderAcquire, OrderAcquire, true},
		{OrderAcquire, OrderSeqCst, false},
		{OrderRelease, OrderRelaxed, true},
		{OrderRelease, OrderAcquire, false},
		{OrderRelaxed, OrderRelaxed, true},
		{OrderRelaxed, OrderAcquire, false},
		{OrderSeqCst, OrderRelease, false},
		{OrderSeqCst, OrderAcqRel, false},
	}
	for _, tt := range tests {
		t.Run(tt.success.String()+"/"+tt.failure.String(), func(t *testing.T) {
			err := ValidateCompareExchangeOrders(tt.success, tt.failure)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidOrder)
			}
		})
	}
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "load", OpLoad.String())
	assert.Equal(t, "compare_exchange", OpCompareExchange.String())
	assert.Equal(t, "OpKind(12)", OpKind(12).String())
}
