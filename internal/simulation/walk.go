package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/logging"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
)

type outcome int

const (
	introduced outcome = iota // budget exhausted on an in-graph node
	stalled                   // no selectable edge; the walk ends where it stands
	absorbed                  // a sink edge was selected
	wasted                    // the walk returned to its start node
)

func (o outcome) String() string {
	switch o {
	case introduced:
		return "introduced"
	case stalled:
		return "stalled"
	case absorbed:
		return "absorbed"
	case wasted:
		return "wasted"
	default:
		return "unknown"
	}
}

// sweep runs the sequential node, repetition, jump order on the shared stream.
func (s *Simulation) sweep(age int, res *IterationResult) error {
	var t tally
	for start := range s.graph.Nodes() {
		for rep := 0; rep < s.params.Repetitions; rep++ {
			if !start.IsOccupied(rep) {
				continue
			}
			if err := s.jumpFrom(s.src, s.visited, start, rep, age, &t); err != nil {
				return err
			}
		}
	}
	res.merge(t)
	return nil
}

// jumpFrom emits the jumps of one occupied (node, repetition) pair.
func (s *Simulation) jumpFrom(src *prng.Source, visited *graph.WalkSet, start *graph.Node, rep, age int, t *tally) error {
	k := src.Poisson(s.params.Lambda * start.Connectivity())
	for j := 0; j < k; j++ {
		budget := s.drawHopBudget(src)
		end, hops, out, err := s.walk(src, visited, start, budget)
		if err != nil {
			return fmt.Errorf("walk from node %d (rep %d): %w", start.ID, rep, err)
		}
		t.jumps++
		if s.traceWalks {
			s.logger.Log(context.Background(), logging.LevelTrace, "walk",
				"rep", rep, "start", start.ID, "budget", budget, "hops", hops, "outcome", out)
		}
		switch out {
		case absorbed:
			t.absorbed++
			continue
		case wasted:
			t.wasted++
			continue
		case stalled:
			t.stalled++
		}

		dest := s.graph.NodeAt(end)
		dest.AddIntroduction(rep, age)
		t.introductions++
		if s.opts.RecordLineage {
			t.lineage = append(t.lineage, models.LineageEvent{
				Repetition: rep,
				StartID:    start.ID,
				EndID:      dest.ID,
				Hops:       hops,
				Euclidean:  start.Distance(dest),
				Iteration:  age,
			})
		}
	}
	return nil
}

// walk performs one self-avoiding walk of at most budget hops from start and
// returns the arena index it ended on. The visitation set is cleared on every
// exit path. A non-positive budget introduces at the start node.
func (s *Simulation) walk(src *prng.Source, visited *graph.WalkSet, start *graph.Node, budget int) (end, hops int, out outcome, err error) {
	defer visited.Reset()

	cur := start.Index()
	for hops < budget {
		visited.Visit(cur)
		next, jumpErr := s.graph.NodeAt(cur).Jump(src, visited)
		if jumpErr != nil {
			return 0, hops, 0, jumpErr
		}
		switch {
		case next == graph.Sink:
			return 0, hops, absorbed, nil
		case next == cur:
			// Includes a start node with nothing selectable: the jump
			// still founds where it stands.
			return cur, hops, stalled, nil
		case next == start.Index():
			return 0, hops, wasted, nil
		}
		cur = next
		hops++
	}
	return cur, hops, introduced, nil
}

// drawHopBudget draws a jump distance from the configured law and floors it
// to a hop count. A self-avoiding walk cannot take more hops than the graph
// has nodes, which also bounds heavy-tailed Cauchy draws.
func (s *Simulation) drawHopBudget(src *prng.Source) int {
	var d float64
	switch s.params.JumpLaw {
	case models.JumpDirac:
		d = s.params.Mu
	case models.JumpNormal:
		d = src.Gaussian(s.params.Mu, s.params.Sigma)
	case models.JumpLogNormal:
		d = src.LogNormal(s.params.Mu, s.params.Sigma)
	case models.JumpCauchy:
		d = math.Abs(src.Cauchy(0, s.params.Gamma))
	default:
		panic(fmt.Sprintf("simulation: unhandled jump law %q", s.params.JumpLaw))
	}
	if math.IsNaN(d) || d <= 0 {
		return 0
	}
	if limit := float64(s.graph.Len()); d > limit {
		d = limit
	}
	return int(math.Floor(d))
}
