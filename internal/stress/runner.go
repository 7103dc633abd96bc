package stress

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"

	fiberatomic "github.com/carterww/fiber-atomic"
)

// unsigned is the set of operand types the scenarios are instantiated with,
// one per supported width.
type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// cell holds one shared variable on its own cache line. The leading field
// aligns narrow variables so their containing 32-bit word lies inside the
// cell.
type cell[T unsigned] struct {
	_ [0]uint64
	v T
	_ cpu.CacheLinePad
}

// scenario is one workload instantiated for a width
type scenario interface {
	// worker runs the body of worker id, recording into t
	worker(ctx context.Context, id int, t *tally) error
	// finish checks the final state once every worker has returned
	finish(res *Result)
}

// tally accumulates the counts of one worker. Each worker owns its tally, so
// plain fields suffice; tallies are merged after the workers have returned.
type tally struct {
	ops        uint64
	retries    uint64
	violations uint64
	samples    []string

	sampleEvery int
	observer    Observer
}

// checkEvery is how many iterations a worker runs between cancellation checks
const checkEvery = 1024

// sample reports whether iteration i should be timed
func (t *tally) sample(i int) bool {
	return t.sampleEvery > 0 && i%t.sampleEvery == 0
}

func (t *tally) latency(start time.Time) {
	t.observer.ObserveLatency(uint64(time.Since(start).Nanoseconds()))
}

func (t *tally) violation(format string, args ...any) {
	t.violations++
	if len(t.samples) < maxSamples {
		t.samples = append(t.samples, fmt.Sprintf(format, args...))
	}
}

// gate releases all workers at once so they contend from the first iteration
type gate struct {
	ready uint32
	open  uint32
}

// arrive announces the worker and waits until the gate opens
func (g *gate) arrive(ctx context.Context) error {
	fiberatomic.IncFetch(&g.ready, fiberatomic.AcqRel)
	return spinUntil(ctx, func() bool {
		return fiberatomic.Load(&g.open, fiberatomic.Acquire) != 0
	})
}

// release waits for n workers to arrive and opens the gate
func (g *gate) release(ctx context.Context, n int) error {
	err := spinUntil(ctx, func() bool {
		return fiberatomic.Load(&g.ready, fiberatomic.Acquire) >= uint32(n)
	})
	if err != nil {
		return err
	}
	fiberatomic.Store(&g.open, 1, fiberatomic.Release)
	return nil
}

// spinUntil busy-waits for cond, yielding the processor between polls so
// workers on an oversubscribed machine still make progress.
func spinUntil(ctx context.Context, cond func() bool) error {
	for i := 0; !cond(); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		runtime.Gosched()
	}
	return nil
}

// Run executes one scenario and checks its invariant. An error is returned
// for invalid configurations, cancellation and pinning failures; a run that
// merely violates its invariant returns a Result with Violations set.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stress: invalid config: %w", err)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger := cfg.logger().WithScenario(string(cfg.Scenario))
	observer := cfg.observer()
	n := cfg.workers()

	var cpus []int
	if cfg.Pin {
		var err error
		if cpus, err = allowedCPUs(); err != nil {
			return nil, fmt.Errorf("stress: %w", err)
		}
		if len(cpus) == 0 {
			return nil, fmt.Errorf("stress: no CPUs available for pinning")
		}
	}

	res := &Result{
		Scenario:  cfg.Scenario,
		Width:     cfg.Width,
		Order:     cfg.Order,
		OrderName: cfg.Order.String(),
		Weak:      cfg.Weak && cfg.Scenario == ScenarioCASIncrement,
		Workers:   n,
	}

	sc := newScenario(&cfg)
	tallies := make([]tally, n)

	logger.DebugContext(ctx, "starting run", "workers", n, "iterations", cfg.Iterations,
		"width", cfg.Width, "order", cfg.Order.String(), "pin", cfg.Pin)

	var g gate
	group, gctx := errgroup.WithContext(ctx)
	for id := 0; id < n; id++ {
		t := &tallies[id]
		t.sampleEvery = cfg.SampleEvery
		t.observer = observer

		group.Go(func() error {
			if cfg.Pin {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
				if err := pinToCPU(cpus[id%len(cpus)]); err != nil {
					return fmt.Errorf("worker %d: %w", id, err)
				}
				logger.WithWorker(id).Debug("worker pinned", "cpu", cpus[id%len(cpus)])
			}
			if err := g.arrive(gctx); err != nil {
				return err
			}
			return sc.worker(gctx, id, t)
		})
	}

	gateErr := g.release(gctx, n)
	start := time.Now()
	err := group.Wait()
	res.Elapsed = time.Since(start)
	if err == nil {
		err = gateErr
	}

	for i := range tallies {
		t := &tallies[i]
		res.Ops += t.ops
		res.Retries += t.retries
		res.Violations += t.violations
		for _, s := range t.samples {
			if len(res.Samples) < maxSamples {
				res.Samples = append(res.Samples, s)
			}
		}
		observer.ObserveOps(t.ops)
		observer.ObserveRetries(t.retries)
	}

	if err != nil {
		observer.ObserveRun(false)
		logger.WithError(err).WarnContext(ctx, "run aborted", "elapsed", res.Elapsed.String())
		return res, fmt.Errorf("stress: %s: %w", cfg.Scenario, err)
	}

	before := res.Violations
	sc.finish(res)
	observer.ObserveViolations(res.Violations)
	observer.ObserveRun(res.OK())

	if res.OK() {
		logger.InfoContext(ctx, "run passed", "ops", res.Ops, "retries", res.Retries,
			"elapsed", res.Elapsed.String(), "ops_per_sec", int64(res.OpsPerSecond()))
	} else {
		logger.ErrorContext(ctx, "run violated its invariant", "violations", res.Violations,
			"final_check_violations", res.Violations-before,
			"final", res.Final, "expected", res.Expected, "samples", res.Samples)
	}
	return res, nil
}

// RunAll runs each scenario with base as the template and returns the results
// in order. It stops at the first error.
func RunAll(ctx context.Context, base Config, scenarios []Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		cfg := base
		cfg.Scenario = s
		res, err := Run(ctx, cfg)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func newScenario(cfg *Config) scenario {
	switch cfg.Width {
	case 1:
		return build[uint8](cfg)
	case 2:
		return build[uint16](cfg)
	case 4:
		return build[uint32](cfg)
	}
	return build[uint64](cfg)
}

func build[T unsigned](cfg *Config) scenario {
	switch cfg.Scenario {
	case ScenarioCASIncrement:
		return newCASIncrement[T](cfg)
	case ScenarioExchange:
		return newExchange[T](cfg)
	case ScenarioBitmask:
		return newBitmask[T](cfg)
	case ScenarioLanes:
		return newLanes[T](cfg)
	case ScenarioMessagePassing:
		return newMessagePassing[T](cfg)
	case ScenarioStoreBuffering:
		return newStoreBuffering[T](cfg)
	}
	return newFetchAdd[T](cfg)
}
