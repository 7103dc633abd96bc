package fiberatomic

import "github.com/carterww/fiber-atomic/internal/constants"

// Re-export constants for public API
const (
	Width8   = constants.Width8
	Width16  = constants.Width16
	Width32  = constants.Width32
	Width64  = constants.Width64
	MaxWidth = constants.MaxWidth
)
