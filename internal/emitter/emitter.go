package emitter

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/composer"
	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/refdata"
	"github.com/terminal-bench/casgen/internal/temporal"
)

const defaultPolytraumaProb = 0.25

// Stream delivers fully formed patient records one at a time, in
// non-decreasing event-timestamp order, without ever materializing the
// whole dataset. The channel buffer bounds the peak working set
// independently of total_patients, and the consumer's receive pace is the
// backpressure signal.
type Stream struct {
	ch    chan *composer.Patient
	group *errgroup.Group
}

// Start launches the producer for one generation run. The same
// configuration and seed produce a byte-identical record sequence.
func Start(ctx context.Context, cfg *exercise.Config, ref *refdata.Store, c *cache.Cache, buffer int) *Stream {
	if buffer <= 0 {
		buffer = 16
	}
	s := &Stream{ch: make(chan *composer.Patient, buffer)}
	g, ctx := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		defer close(s.ch)

		rng := rand.New(rand.NewSource(cfg.Seed))
		scheduler := temporal.NewScheduler(ref)
		events, err := scheduler.Schedule(cfg, rng)
		if err != nil {
			return err
		}

		polyProb := cfg.PolytraumaProb
		if polyProb == 0 {
			polyProb = defaultPolytraumaProb
		}
		comp := composer.New(ref, c, polyProb)

		frontsByName := make(map[string]exercise.Front, len(cfg.Fronts))
		for _, f := range cfg.Fronts {
			frontsByName[f.Name] = f
		}

		for i, ev := range events {
			front, ok := frontsByName[ev.Front]
			if !ok {
				front = cfg.Fronts[0]
			}
			for unit := 0; unit < ev.Casualties; unit++ {
				p, err := comp.Compose(ctx, composer.Input{
					EventIndex:   i,
					WarfareType:  ev.WarfareType,
					Front:        front,
					InjuredAt:    cfg.StartDate.Add(ev.Offset),
					ClusterSpan:  ev.ClusterSpan,
					EvacDelayMin: ev.EvacDelayMin,
				}, rng)
				if err != nil {
					return err
				}
				select {
				case s.ch <- p:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})
	return s
}

// Next blocks for the next record. ok is false at end of stream or once the
// context is done; after a false ok the caller should check Err.
func (s *Stream) Next(ctx context.Context) (*composer.Patient, bool) {
	select {
	case p, open := <-s.ch:
		if !open {
			return nil, false
		}
		return p, true
	case <-ctx.Done():
		return nil, false
	}
}

// Err waits for the producer to finish and reports its error, if any. Call
// only after Next has returned false.
func (s *Stream) Err() error {
	return s.group.Wait()
}
