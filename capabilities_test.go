package fiberatomic

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	c := Detect()

	assert.Equal(t, runtime.GOARCH, c.GOARCH)
	assert.NotZero(t, c.CacheLineSize)
	assert.ElementsMatch(t, []uintptr{Width32, Width64}, c.NativeWidths)
	assert.ElementsMatch(t, []uintptr{Width8, Width16}, c.EmulatedWidths)

	if runtime.GOARCH == "amd64" {
		assert.True(t, c.HasSSE2)
	}
	if runtime.GOARCH != "arm64" {
		assert.False(t, c.HasLSE)
	}
}

func TestCapabilitiesWidths(t *testing.T) {
	c := Detect()

	tests := []struct {
		size      uintptr
		native    bool
		supported bool
	}{
		{1, false, true},
		{2, false, true},
		{3, false, false},
		{4, true, true},
		{8, true, true},
		{16, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.native, c.Native(tt.size), "Native(%d)", tt.size)
		assert.Equal(t, tt.supported, c.Supported(tt.size), "Supported(%d)", tt.size)
	}
}
