package fiberatomic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	val  int
	next *node
}

func TestPointerLoadStoreExchange(t *testing.T) {
	a, b := &node{val: 1}, &node{val: 2}

	var head *node
	assert.Nil(t, LoadPointer(&head, Acquire))

	StorePointer(&head, a, Release)
	assert.Same(t, a, LoadPointer(&head, Acquire))

	old := ExchangePointer(&head, b, AcqRel)
	assert.Same(t, a, old)
	assert.Same(t, b, head)
}

func TestCompareExchangePointer(t *testing.T) {
	a, b, c := &node{val: 1}, &node{val: 2}, &node{val: 3}
	head := a

	expected := b
	ok := CompareExchangePointer(&head, &expected, c, false, SeqCst, Acquire)
	assert.False(t, ok)
	assert.Same(t, a, expected, "failure writes back the current pointer")
	assert.Same(t, a, head)

	ok = CompareExchangePointer(&head, &expected, c, false, SeqCst, Acquire)
	assert.True(t, ok)
	assert.Same(t, c, head)

	err := recoverError(t, func() {
		CompareExchangePointer(&head, &expected, a, false, Relaxed, SeqCst)
	})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.Equal(t, "CompareExchangePointer", err.Op)
}

func TestPointerNilAddress(t *testing.T) {
	var pp **node
	err := recoverError(t, func() { LoadPointer(pp, Relaxed) })
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeNilAddress, err.Code)
}

// A Treiber stack push exercises weak compare-exchange retries and the
// failure write-back under contention.
func TestCompareExchangePointerStackPush(t *testing.T) {
	const workers, pushes = 8, 1000

	var head *node
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < pushes; i++ {
				n := &node{val: w*pushes + i}
				n.next = LoadPointer(&head, Relaxed)
				for !CompareExchangePointer(&head, &n.next, n, true, Release, Relaxed) {
				}
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[int]bool, workers*pushes)
	for n := LoadPointer(&head, Acquire); n != nil; n = n.next {
		require.False(t, seen[n.val], "value %d pushed twice", n.val)
		seen[n.val] = true
	}
	assert.Len(t, seen, workers*pushes)
}
