package simulation

import (
	"golang.org/x/sync/errgroup"
)

// sweepParallel runs one goroutine per repetition, bounded by Options.Workers.
// A repetition only reads the committed state and writes its own slot of each
// node, and draws from its own substream with its own walk set, so the result
// depends on the seed alone and not on scheduling. Tallies are merged in
// repetition order.
func (s *Simulation) sweepParallel(age int, res *IterationResult) error {
	reps := s.params.Repetitions
	tallies := make([]tally, reps)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for rep := 0; rep < reps; rep++ {
		g.Go(func() error {
			src, visited := s.streams[rep], s.walks[rep]
			for start := range s.graph.Nodes() {
				if !start.IsOccupied(rep) {
					continue
				}
				if err := s.jumpFrom(src, visited, start, rep, age, &tallies[rep]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, t := range tallies {
		res.merge(t)
	}
	return nil
}
