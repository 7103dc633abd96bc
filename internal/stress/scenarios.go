package stress

import (
	"context"
	"time"
	"unsafe"

	fiberatomic "github.com/carterww/fiber-atomic"
)

// checkpoint returns the context error every checkEvery iterations
func checkpoint(ctx context.Context, i int) error {
	if i%checkEvery != 0 {
		return nil
	}
	return ctx.Err()
}

// wrapped reduces n to the range of T
func wrapped[T unsigned](n uint64) uint64 {
	return uint64(T(n))
}

// fetchAdd: N workers x M FetchAdd(1) must leave N*M in the counter.
type fetchAdd[T unsigned] struct {
	counter    cell[T]
	order      fiberatomic.Ordering
	workers    int
	iterations int
}

func newFetchAdd[T unsigned](cfg *Config) *fetchAdd[T] {
	order, _ := cfg.Order.Ordering()
	return &fetchAdd[T]{order: order, workers: cfg.workers(), iterations: cfg.Iterations}
}

func (s *fetchAdd[T]) worker(ctx context.Context, id int, t *tally) error {
	for i := 0; i < s.iterations; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return err
		}
		if t.sample(i) {
			start := time.Now()
			fiberatomic.FetchAdd(&s.counter.v, 1, s.order)
			t.latency(start)
		} else {
			fiberatomic.FetchAdd(&s.counter.v, 1, s.order)
		}
		t.ops++
	}
	return nil
}

func (s *fetchAdd[T]) finish(res *Result) {
	res.Final = uint64(fiberatomic.Load(&s.counter.v, fiberatomic.SeqCst))
	res.Expected = wrapped[T](uint64(s.workers) * uint64(s.iterations))
}

// casIncrement increments through a compare-exchange loop. Besides the final
// count it checks that a strong compare-exchange never fails while the
// variable holds the expected value.
type casIncrement[T unsigned] struct {
	counter    cell[T]
	success    fiberatomic.Ordering
	failure    fiberatomic.LoadOrdering
	weak       bool
	workers    int
	iterations int
}

func newCASIncrement[T unsigned](cfg *Config) *casIncrement[T] {
	success, _ := cfg.Order.Ordering()
	failure, _ := cfg.Order.LoadSide().LoadOrdering()
	return &casIncrement[T]{
		success:    success,
		failure:    failure,
		weak:       cfg.Weak,
		workers:    cfg.workers(),
		iterations: cfg.Iterations,
	}
}

func (s *casIncrement[T]) increment(t *tally, cur *T) {
	for {
		prev := *cur
		if fiberatomic.CompareExchange(&s.counter.v, cur, prev+1, s.weak, s.success, s.failure) {
			*cur = prev + 1
			return
		}
		t.retries++
		if !s.weak && *cur == prev {
			t.violation("strong compare-exchange failed with expected value %d in place", prev)
		}
	}
}

func (s *casIncrement[T]) worker(ctx context.Context, id int, t *tally) error {
	cur := fiberatomic.Load(&s.counter.v, s.failure)
	for i := 0; i < s.iterations; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return err
		}
		if t.sample(i) {
			start := time.Now()
			s.increment(t, &cur)
			t.latency(start)
		} else {
			s.increment(t, &cur)
		}
		t.ops++
	}
	return nil
}

func (s *casIncrement[T]) finish(res *Result) {
	res.Final = uint64(fiberatomic.Load(&s.counter.v, fiberatomic.SeqCst))
	res.Expected = wrapped[T](uint64(s.workers) * uint64(s.iterations))
}

// exchange swaps unique tokens through one slot. Token 0 is the initial
// value; every token must be returned by exactly one Exchange or be the final
// value, so the set of observed tokens is exactly 0..N.
type exchange[T unsigned] struct {
	slot       cell[T]
	seen       []uint32 // bitmap of observed tokens
	order      fiberatomic.Ordering
	workers    int
	iterations int
}

func newExchange[T unsigned](cfg *Config) *exchange[T] {
	order, _ := cfg.Order.Ordering()
	tokens := uint64(cfg.workers())*uint64(cfg.Iterations) + 1
	return &exchange[T]{
		seen:       make([]uint32, (tokens+31)/32),
		order:      order,
		workers:    cfg.workers(),
		iterations: cfg.Iterations,
	}
}

// mark records token v and reports whether it was seen before
func (s *exchange[T]) mark(v T) (dup bool) {
	idx := uint64(v)
	if idx/32 >= uint64(len(s.seen)) {
		return true
	}
	bit := uint32(1) << (idx % 32)
	return fiberatomic.FetchOr(&s.seen[idx/32], bit, fiberatomic.Relaxed)&bit != 0
}

func (s *exchange[T]) worker(ctx context.Context, id int, t *tally) error {
	base := uint64(id) * uint64(s.iterations)
	for i := 0; i < s.iterations; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return err
		}
		token := T(base + uint64(i) + 1)

		var old T
		if t.sample(i) {
			start := time.Now()
			old = fiberatomic.Exchange(&s.slot.v, token, s.order)
			t.latency(start)
		} else {
			old = fiberatomic.Exchange(&s.slot.v, token, s.order)
		}
		t.ops++

		if s.mark(old) {
			t.violation("token %d returned twice", old)
		}
	}
	return nil
}

func (s *exchange[T]) finish(res *Result) {
	final := fiberatomic.Load(&s.slot.v, fiberatomic.SeqCst)
	if s.mark(final) {
		res.violation("final token %d was also returned by an exchange", final)
	}

	tokens := uint64(s.workers)*uint64(s.iterations) + 1
	for idx := uint64(0); idx < tokens; idx++ {
		if s.seen[idx/32]&(1<<(idx%32)) != 0 {
			res.Final++
		} else {
			res.violation("token %d lost", idx)
		}
	}
	res.Expected = tokens
}

// bitmask gives worker id sole ownership of bit id. Every fetch-op must see
// the owner's bit in the state the owner left it.
type bitmask[T unsigned] struct {
	mask       cell[T]
	order      fiberatomic.Ordering
	iterations int
}

func newBitmask[T unsigned](cfg *Config) *bitmask[T] {
	order, _ := cfg.Order.Ordering()
	return &bitmask[T]{order: order, iterations: cfg.Iterations}
}

func (s *bitmask[T]) worker(ctx context.Context, id int, t *tally) error {
	bit := T(1) << id
	for i := 0; i < s.iterations; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return err
		}

		var set, cleared T
		if i&1 == 0 {
			set = fiberatomic.FetchOr(&s.mask.v, bit, s.order)
			cleared = fiberatomic.FetchAnd(&s.mask.v, ^bit, s.order)
		} else {
			set = fiberatomic.FetchXor(&s.mask.v, bit, s.order)
			cleared = fiberatomic.FetchXor(&s.mask.v, bit, s.order)
		}
		t.ops += 2

		if set&bit != 0 {
			t.violation("worker %d: bit already set before setting (mask %#x)", id, set)
		}
		if cleared&bit == 0 {
			t.violation("worker %d: bit already clear before clearing (mask %#x)", id, cleared)
		}
	}
	return nil
}

func (s *bitmask[T]) finish(res *Result) {
	res.Final = uint64(fiberatomic.Load(&s.mask.v, fiberatomic.SeqCst))
	res.Expected = 0
}

// lanes packs one counter per worker group into the lanes of a single 32-bit
// word. A lane update that clobbers a neighbour shows up as a wrong count in
// that neighbour.
type lanes[T unsigned] struct {
	word       cell[uint32]
	order      fiberatomic.Ordering
	n          int // lanes per word
	workers    int
	iterations int
}

func newLanes[T unsigned](cfg *Config) *lanes[T] {
	order, _ := cfg.Order.Ordering()
	var zero T
	return &lanes[T]{
		order:      order,
		n:          int(4 / unsafe.Sizeof(zero)),
		workers:    cfg.workers(),
		iterations: cfg.Iterations,
	}
}

// laneAt returns lane i of the 32-bit word at w
func laneAt[T unsigned](w *uint32, i int) *T {
	var zero T
	return (*T)(unsafe.Add(unsafe.Pointer(w), uintptr(i)*unsafe.Sizeof(zero)))
}

func (s *lanes[T]) worker(ctx context.Context, id int, t *tally) error {
	p := laneAt[T](&s.word.v, id%s.n)
	for i := 0; i < s.iterations; i++ {
		if err := checkpoint(ctx, i); err != nil {
			return err
		}
		if t.sample(i) {
			start := time.Now()
			fiberatomic.AddFetch(p, 1, s.order)
			t.latency(start)
		} else {
			fiberatomic.FetchAdd(p, 1, s.order)
		}
		t.ops++
	}
	return nil
}

func (s *lanes[T]) finish(res *Result) {
	var want uint32
	got := fiberatomic.Load(&s.word.v, fiberatomic.SeqCst)
	for l := 0; l < s.n; l++ {
		owners := (s.workers - l + s.n - 1) / s.n
		expected := T(uint64(owners) * uint64(s.iterations))
		*laneAt[T](&want, l) = expected

		if actual := *laneAt[T](&got, l); actual != expected {
			res.violation("lane %d: count %d, want %d", l, actual, expected)
		}
	}
	res.Final = uint64(got)
	res.Expected = uint64(want)
}
