package fiberatomic

import "github.com/carterww/fiber-atomic/internal/barrier"

// MemoryBarrier issues a standalone fence of the given order without touching
// any caller memory. A Relaxed barrier does nothing. Acquire and Release
// barriers are implemented as full fences.
func MemoryBarrier[O Ordering](order O) {
	switch orderOf("MemoryBarrier", order) {
	case OrderRelaxed:
	case OrderAcquire:
		barrier.Acquire()
	case OrderRelease:
		barrier.Release()
	default:
		barrier.Full()
	}
}
