package fiberatomic

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/carterww/fiber-atomic/internal/word"
)

// Capabilities describes how the package implements atomics on the running
// platform.
type Capabilities struct {
	GOARCH        string
	BigEndian     bool
	CacheLineSize uintptr

	// NativeWidths map directly onto a hardware atomic instruction.
	NativeWidths []uintptr
	// EmulatedWidths are updated through their containing 32-bit word.
	EmulatedWidths []uintptr

	HasCX16 bool // x86-64 CMPXCHG16B
	HasSSE2 bool // x86 SSE2 fences
	HasLSE  bool // arm64 large system extensions (LDADD, CAS, SWP)
}

// Detect reports the capabilities of the running platform.
func Detect() Capabilities {
	c := Capabilities{
		GOARCH:        runtime.GOARCH,
		BigEndian:     word.BigEndian(),
		CacheLineSize: unsafe.Sizeof(cpu.CacheLinePad{}),
		HasCX16:       cpu.X86.HasCX16,
		HasSSE2:       cpu.X86.HasSSE2,
		HasLSE:        cpu.ARM64.HasATOMICS,
	}
	for _, size := range []uintptr{Width8, Width16, Width32, Width64} {
		if word.Native(size) {
			c.NativeWidths = append(c.NativeWidths, size)
		} else {
			c.EmulatedWidths = append(c.EmulatedWidths, size)
		}
	}
	return c
}

// Native reports whether operands of size bytes use a hardware atomic
// directly.
func (c Capabilities) Native(size uintptr) bool {
	for _, w := range c.NativeWidths {
		if w == size {
			return true
		}
	}
	return false
}

// Supported reports whether operands of size bytes are supported at all.
func (c Capabilities) Supported(size uintptr) bool {
	if c.Native(size) {
		return true
	}
	for _, w := range c.EmulatedWidths {
		if w == size {
			return true
		}
	}
	return false
}
