// Package barrier provides standalone memory fences.
//
// Go exposes no fence instruction, so a fence is an atomic read-modify-write
// on a package-private word. On x86-64 the add compiles to LOCK XADD and on
// arm64 to an acquire-release RMW; either orders all earlier memory operations
// of the calling goroutine before all later ones. All fences target the same
// word, so under the Go memory model two fences in different goroutines are
// themselves ordered with respect to each other.
package barrier

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// fenceWord sits on its own cache line so fences never contend with
// unrelated data.
var fenceWord struct {
	_ cpu.CacheLinePad
	n uint32
	_ cpu.CacheLinePad
}

// Full issues a full memory fence.
func Full() {
	atomic.AddUint32(&fenceWord.n, 0)
}

// Acquire issues an acquire fence. There is no cheaper acquire-only form
// available from Go, so this is a full fence.
func Acquire() {
	Full()
}

// Release issues a release fence. Same implementation as Acquire.
func Release() {
	Full()
}

// Count returns the value of the fence word, which fences never change.
func Count() uint32 {
	return atomic.LoadUint32(&fenceWord.n)
}
