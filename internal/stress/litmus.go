package stress

import (
	"context"

	fiberatomic "github.com/carterww/fiber-atomic"
	"github.com/carterww/fiber-atomic/internal/constants"
)

// payload is the data value published in round r
func payload[T unsigned](r int) T {
	return T(uint64(r) + constants.MessagePayload)
}

// messagePassing is the MP litmus test. The writer stores data relaxed and
// then the round number into a flag with the configured releasing order; the
// reader acquires the flag and must then see that round's data. The reader
// acknowledges each round before the writer starts the next.
type messagePassing[T unsigned] struct {
	data   cell[T]
	flag   cell[uint32]
	ack    cell[uint32]
	store  fiberatomic.StoreOrdering
	rounds int
}

func newMessagePassing[T unsigned](cfg *Config) *messagePassing[T] {
	store, _ := cfg.Order.StoreOrdering()
	return &messagePassing[T]{store: store, rounds: cfg.rounds()}
}

func (s *messagePassing[T]) worker(ctx context.Context, id int, t *tally) error {
	if id == 0 {
		return s.write(ctx, t)
	}
	return s.read(ctx, t)
}

func (s *messagePassing[T]) write(ctx context.Context, t *tally) error {
	for r := 1; r <= s.rounds; r++ {
		fiberatomic.Store(&s.data.v, payload[T](r), fiberatomic.Relaxed)
		fiberatomic.Store(&s.flag.v, uint32(r), s.store)
		t.ops += 2

		err := spinUntil(ctx, func() bool {
			return fiberatomic.Load(&s.ack.v, fiberatomic.Acquire) == uint32(r)
		})
		if err != nil {
			return err
		}
		t.ops++
	}
	return nil
}

func (s *messagePassing[T]) read(ctx context.Context, t *tally) error {
	for r := 1; r <= s.rounds; r++ {
		err := spinUntil(ctx, func() bool {
			return fiberatomic.Load(&s.flag.v, fiberatomic.Acquire) == uint32(r)
		})
		if err != nil {
			return err
		}

		if got, want := fiberatomic.Load(&s.data.v, fiberatomic.Relaxed), payload[T](r); got != want {
			t.violation("round %d: flag observed but data is %#x, want %#x", r, got, want)
		}
		fiberatomic.Store(&s.ack.v, uint32(r), fiberatomic.Release)
		t.ops += 3
	}
	return nil
}

func (s *messagePassing[T]) finish(res *Result) {}

// storeBuffering is the SB litmus test. In each round both workers store the
// round number into their own variable and then load the other's. Under
// sequential consistency at least one of the two loads observes the other
// worker's store. Workers meet at a barrier between rounds.
type storeBuffering[T unsigned] struct {
	x, y    cell[T]
	arrived cell[uint32]
	store   fiberatomic.StoreOrdering
	rounds  int

	// missed[id][r] is set when worker id did not observe the other store
	// in round r+1. Each worker writes only its own slice.
	missed [2][]bool
}

func newStoreBuffering[T unsigned](cfg *Config) *storeBuffering[T] {
	store, _ := cfg.Order.StoreOrdering()
	s := &storeBuffering[T]{store: store, rounds: cfg.rounds()}
	s.missed[0] = make([]bool, s.rounds)
	s.missed[1] = make([]bool, s.rounds)
	return s
}

func (s *storeBuffering[T]) worker(ctx context.Context, id int, t *tally) error {
	mine, theirs := &s.x.v, &s.y.v
	if id == 1 {
		mine, theirs = theirs, mine
	}

	for r := 1; r <= s.rounds; r++ {
		v := T(uint64(r))
		fiberatomic.Store(mine, v, s.store)
		s.missed[id][r-1] = fiberatomic.Load(theirs, fiberatomic.SeqCst) != v
		t.ops += 2

		fiberatomic.IncFetch(&s.arrived.v, fiberatomic.AcqRel)
		err := spinUntil(ctx, func() bool {
			return fiberatomic.Load(&s.arrived.v, fiberatomic.Acquire) >= uint32(2*r)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *storeBuffering[T]) finish(res *Result) {
	for r := 0; r < s.rounds; r++ {
		if s.missed[0][r] && s.missed[1][r] {
			res.violation("round %d: both loads missed both stores", r+1)
		}
	}
}
