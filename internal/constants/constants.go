package constants

import "time"

// Operand widths in bytes
const (
	// Width8 is the width of int8, uint8 and bool operands
	Width8 = 1

	// Width16 is the width of int16 and uint16 operands
	Width16 = 2

	// Width32 is the smallest width sync/atomic operates on natively
	Width32 = 4

	// Width64 is the widest operand the facade accepts
	Width64 = 8

	// MaxWidth bounds every supported operand; wider types are rejected
	MaxWidth = Width64
)

// Stress harness defaults
const (
	// DefaultIterations is the number of operations each stress worker performs
	DefaultIterations = 100_000

	// DefaultWorkers is used when the host CPU count cannot be determined
	DefaultWorkers = 4

	// DefaultSampleEvery controls latency sampling (one timed op per N ops)
	DefaultSampleEvery = 1024

	// DefaultRunTimeout caps a single scenario run
	DefaultRunTimeout = 2 * time.Minute
)

// Litmus test constants
const (
	// LitmusRounds is the number of rounds for two-thread litmus scenarios
	// when the configured iteration count is larger
	LitmusRounds = 50_000

	// MessagePayload is the value published before the release flag
	MessagePayload = 0x5A
)
