// Package stress drives the atomic operations under real multi-core
// contention and checks that no update is lost, torn or reordered. Each
// scenario ends with an invariant that only holds if every operation was
// atomic and ordered as requested.
package stress

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	fiberatomic "github.com/carterww/fiber-atomic"
	"github.com/carterww/fiber-atomic/internal/constants"
	"github.com/carterww/fiber-atomic/internal/logging"
	"github.com/carterww/fiber-atomic/internal/word"
)

// Scenario names a stress workload
type Scenario string

const (
	// ScenarioFetchAdd: every worker adds 1 per iteration; the counter must
	// end at workers*iterations modulo 2^width.
	ScenarioFetchAdd Scenario = "fetch-add"

	// ScenarioCASIncrement increments through a compare-exchange retry loop.
	ScenarioCASIncrement Scenario = "cas-increment"

	// ScenarioExchange swaps unique tokens in and out of one variable; every
	// token must come back out exactly once or remain as the final value.
	ScenarioExchange Scenario = "exchange"

	// ScenarioBitmask gives every worker one bit it alone sets and clears.
	ScenarioBitmask Scenario = "bitmask"

	// ScenarioLanes gives every worker its own 8 or 16-bit lane of a shared
	// 32-bit word.
	ScenarioLanes Scenario = "lanes"

	// ScenarioMessagePassing publishes data behind a flag (litmus MP).
	ScenarioMessagePassing Scenario = "message-passing"

	// ScenarioStoreBuffering checks that two store-then-load sequences cannot
	// both miss the other's store (litmus SB).
	ScenarioStoreBuffering Scenario = "store-buffering"
)

var scenarios = []Scenario{
	ScenarioFetchAdd,
	ScenarioCASIncrement,
	ScenarioExchange,
	ScenarioBitmask,
	ScenarioLanes,
	ScenarioMessagePassing,
	ScenarioStoreBuffering,
}

// Scenarios returns every known scenario in run order
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// ParseScenario looks up a scenario by name
func ParseScenario(name string) (Scenario, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range scenarios {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

// Kind reports the operation kind whose orders the scenario's Order must be
// valid for.
func (s Scenario) Kind() fiberatomic.OpKind {
	switch s {
	case ScenarioCASIncrement:
		return fiberatomic.OpCompareExchange
	case ScenarioExchange:
		return fiberatomic.OpExchange
	case ScenarioMessagePassing, ScenarioStoreBuffering:
		return fiberatomic.OpStore
	}
	return fiberatomic.OpFetch
}

// litmus reports whether the scenario runs as a fixed pair of goroutines
func (s Scenario) litmus() bool {
	return s == ScenarioMessagePassing || s == ScenarioStoreBuffering
}

// Config holds the parameters of one stress run
type Config struct {
	Scenario   Scenario
	Workers    int
	Iterations int
	Width      uintptr                 // Operand width in bytes
	Order      fiberatomic.MemoryOrder // Order of the operation under test
	Weak       bool                    // Use weak compare-exchange (cas-increment)
	Pin        bool                    // Pin each worker to its own CPU

	// SampleEvery times one operation in every SampleEvery. Zero disables
	// latency sampling.
	SampleEvery int

	Timeout  time.Duration
	Logger   *logging.Logger
	Observer Observer
}

// DefaultConfig returns a configuration that runs scenario on every CPU
func DefaultConfig(scenario Scenario) Config {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = constants.DefaultWorkers
	}
	return Config{
		Scenario:    scenario,
		Workers:     workers,
		Iterations:  constants.DefaultIterations,
		Width:       constants.Width32,
		Order:       fiberatomic.OrderSeqCst,
		SampleEvery: constants.DefaultSampleEvery,
		Timeout:     constants.DefaultRunTimeout,
	}
}

// Validate checks the configuration for the selected scenario
func (c *Config) Validate() error {
	if _, err := ParseScenario(string(c.Scenario)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("sample interval must not be negative, got %d", c.SampleEvery)
	}
	if err := fiberatomic.ValidateWidth(c.Width); err != nil {
		return err
	}
	if err := fiberatomic.ValidateOrder(c.Scenario.Kind(), c.Order); err != nil {
		return fmt.Errorf("%s: %w", c.Scenario, err)
	}

	bits := int(c.Width * 8)
	switch c.Scenario {
	case ScenarioExchange:
		// Tokens are 1..workers*iterations and must be distinct at this width.
		if uint64(c.Workers)*uint64(c.Iterations) > word.Mask(c.Width) {
			return fmt.Errorf("exchange: %d workers x %d iterations do not fit in %d-bit tokens",
				c.Workers, c.Iterations, bits)
		}
	case ScenarioBitmask:
		if c.Workers > bits {
			return fmt.Errorf("bitmask: %d workers exceed the %d bits of the mask", c.Workers, bits)
		}
	case ScenarioLanes:
		if word.Native(c.Width) {
			return fmt.Errorf("lanes: width %d is not an emulated width", c.Width)
		}
	case ScenarioMessagePassing:
		// A relaxed flag store does not publish the data.
		if !c.Order.Releases() {
			return fmt.Errorf("message-passing: flag store order %s does not release: %w",
				c.Order, fiberatomic.ErrInvalidOrder)
		}
	case ScenarioStoreBuffering:
		// Only sequential consistency forbids both loads missing both stores.
		if c.Order != fiberatomic.OrderSeqCst {
			return fmt.Errorf("store-buffering: requires %s, got %s: %w",
				fiberatomic.OrderSeqCst, c.Order, fiberatomic.ErrInvalidOrder)
		}
	}
	return nil
}

// workers returns the number of goroutines the scenario actually starts
func (c *Config) workers() int {
	if c.Scenario.litmus() {
		return 2
	}
	return c.Workers
}

// rounds returns the number of rounds for litmus scenarios
func (c *Config) rounds() int {
	if c.Iterations > constants.LitmusRounds {
		return constants.LitmusRounds
	}
	return c.Iterations
}

func (c *Config) logger() *logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Default()
}

func (c *Config) observer() Observer {
	if c.Observer != nil {
		return c.Observer
	}
	return NoOpObserver{}
}

// Result summarizes one stress run
type Result struct {
	Scenario   Scenario                `json:"scenario"`
	Width      uintptr                 `json:"width"`
	Order      fiberatomic.MemoryOrder `json:"-"`
	OrderName  string                  `json:"order"`
	Weak       bool                    `json:"weak,omitempty"`
	Workers    int                     `json:"workers"`
	Ops        uint64                  `json:"ops"`
	Retries    uint64                  `json:"retries"`
	Violations uint64                  `json:"violations"`
	Final      uint64                  `json:"final"`
	Expected   uint64                  `json:"expected"`
	Elapsed    time.Duration           `json:"elapsed_ns"`

	// Samples holds descriptions of the first few violations
	Samples []string `json:"samples,omitempty"`
}

// OK reports whether the run upheld its invariant
func (r *Result) OK() bool {
	return r.Violations == 0 && r.Final == r.Expected
}

// OpsPerSecond returns the aggregate operation rate of the run
func (r *Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

const maxSamples = 8

func (r *Result) violation(format string, args ...any) {
	r.Violations++
	if len(r.Samples) < maxSamples {
		r.Samples = append(r.Samples, fmt.Sprintf(format, args...))
	}
}
