package fiberatomic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allOrders = []MemoryOrder{OrderRelaxed, OrderAcquire, OrderRelease, OrderAcqRel, OrderSeqCst}

func TestMemoryOrderString(t *testing.T) {
	assert.Equal(t, "relaxed", OrderRelaxed.String())
	assert.Equal(t, "acquire", OrderAcquire.String())
	assert.Equal(t, "release", OrderRelease.String())
	assert.Equal(t, "acq_rel", OrderAcqRel.String())
	assert.Equal(t, "seq_cst", OrderSeqCst.String())
	assert.Equal(t, "MemoryOrder(9)", MemoryOrder(9).String())
}

func TestMemoryOrderSemantics(t *testing.T) {
	tests := []struct {
		order    MemoryOrder
		acquires bool
		releases bool
	}{
		{OrderRelaxed, false, false},
		{OrderAcquire, true, false},
		{OrderRelease, false, true},
		{OrderAcqRel, true, true},
		{OrderSeqCst, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			assert.True(t, tt.order.Valid())
			assert.Equal(t, tt.acquires, tt.order.Acquires())
			assert.Equal(t, tt.releases, tt.order.Releases())
		})
	}
	assert.False(t, MemoryOrder(5).Valid())
}

func TestMemoryOrderAtLeast(t *testing.T) {
	// Every order is at least as strong as itself and as Relaxed
	for _, o := range allOrders {
		assert.True(t, o.AtLeast(o), o.String())
		assert.True(t, o.AtLeast(OrderRelaxed), o.String())
		assert.True(t, OrderSeqCst.AtLeast(o), o.String())
	}

	assert.False(t, OrderAcquire.AtLeast(OrderRelease))
	assert.False(t, OrderRelease.AtLeast(OrderAcquire))
	assert.True(t, OrderAcqRel.AtLeast(OrderAcquire))
	assert.True(t, OrderAcqRel.AtLeast(OrderRelease))
	assert.False(t, OrderAcqRel.AtLeast(OrderSeqCst))
	assert.False(t, OrderRelaxed.AtLeast(OrderAcquire))
	assert.False(t, MemoryOrder(7).AtLeast(OrderRelaxed))
}

func TestMemoryOrderLoadSide(t *testing.T) {
	assert.Equal(t, OrderRelaxed, OrderRelaxed.LoadSide())
	assert.Equal(t, OrderAcquire, OrderAcquire.LoadSide())
	assert.Equal(t, OrderRelaxed, OrderRelease.LoadSide())
	assert.Equal(t, OrderAcquire, OrderAcqRel.LoadSide())
	assert.Equal(t, OrderSeqCst, OrderSeqCst.LoadSide())
}

func TestParseMemoryOrder(t *testing.T) {
	tests := []struct {
		in   string
		want MemoryOrder
	}{
		{"relaxed", OrderRelaxed},
		{"Acquire", OrderAcquire},
		{" release ", OrderRelease},
		{"acq_rel", OrderAcqRel},
		{"acq-rel", OrderAcqRel},
		{"ACQREL", OrderAcqRel},
		{"seq_cst", OrderSeqCst},
		{"seq-cst", OrderSeqCst},
		{"seqcst", OrderSeqCst},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemoryOrder(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMemoryOrder("consume")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOrder)
	assert.Contains(t, err.Error(), `"consume"`)
}

func TestMemoryOrderSelectors(t *testing.T) {
	for _, o := range allOrders {
		sel, err := o.Ordering()
		require.NoError(t, err)
		assert.Equal(t, o, sel.Order())
	}

	_, err := MemoryOrder(8).Ordering()
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestMemoryOrderLoadOrdering(t *testing.T) {
	valid := map[MemoryOrder]bool{OrderRelaxed: true, OrderAcquire: true, OrderSeqCst: true}
	for _, o := range allOrders {
		sel, err := o.LoadOrdering()
		if valid[o] {
			require.NoError(t, err, o.String())
			assert.Equal(t, o, sel.Order())
		} else {
			assert.ErrorIs(t, err, ErrInvalidOrder, o.String())
			assert.Nil(t, sel)
		}
	}
}

func TestMemoryOrderStoreOrdering(t *testing.T) {
	valid := map[MemoryOrder]bool{OrderRelaxed: true, OrderRelease: true, OrderSeqCst: true}
	for _, o := range allOrders {
		sel, err := o.StoreOrdering()
		if valid[o] {
			require.NoError(t, err, o.String())
			assert.Equal(t, o, sel.Order())
		} else {
			assert.ErrorIs(t, err, ErrInvalidOrder, o.String())
			assert.Nil(t, sel)
		}
	}
}

// The selector sets are enforced by the compiler. These assignments only
// compile for the permitted selectors.
var (
	_ LoadOrdering  = Relaxed
	_ LoadOrdering  = Acquire
	_ LoadOrdering  = SeqCst
	_ StoreOrdering = Relaxed
	_ StoreOrdering = Release
	_ StoreOrdering = SeqCst
	_ Ordering      = AcqRel
)

func TestSelectorSets(t *testing.T) {
	_, ok := any(Release).(LoadOrdering)
	assert.False(t, ok, "Release must not be a load ordering")
	_, ok = any(AcqRel).(LoadOrdering)
	assert.False(t, ok, "AcqRel must not be a load ordering")
	_, ok = any(Acquire).(StoreOrdering)
	assert.False(t, ok, "Acquire must not be a store ordering")
	_, ok = any(AcqRel).(StoreOrdering)
	assert.False(t, ok, "AcqRel must not be a store ordering")
}
