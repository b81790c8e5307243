// Package simulation drives the spread process over a graph: every iteration
// each occupied (node, repetition) pair emits a Poisson number of jumps, each
// jump performs a self-avoiding walk of a drawn hop budget, and successful
// walks introduce the population at their end node for the next iteration.
//
// By default the sweep is sequential and every draw comes from one stream in
// node, repetition, jump, hop order. With Options.Workers > 1 repetitions
// run in parallel, each on its own derived substream.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/logging"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
)

// Options tunes how a Simulation executes. The zero value is a sequential
// run without lineage recording.
type Options struct {
	// Workers is the number of repetitions simulated concurrently. Values
	// below 2 select the sequential single-stream sweep.
	Workers int

	// RecordLineage keeps one LineageEvent per successful jump.
	RecordLineage bool

	// OnIteration, when non-nil, is called after every committed iteration.
	// A non-nil error stops Run.
	OnIteration func(IterationResult) error
}

// IterationResult tallies one committed iteration.
type IterationResult struct {
	Iteration     int                   `json:"iteration"`
	Jumps         int                   `json:"jumps"`
	Introductions int                   `json:"introductions"`
	Stalled       int                   `json:"stalled"`
	Absorbed      int                   `json:"absorbed"`
	Wasted        int                   `json:"wasted"`
	Occupied      float64               `json:"occupied_fraction"`
	Lineage       []models.LineageEvent `json:"-"`
}

func (r *IterationResult) merge(t tally) {
	r.Jumps += t.jumps
	r.Introductions += t.introductions
	r.Stalled += t.stalled
	r.Absorbed += t.absorbed
	r.Wasted += t.wasted
	r.Lineage = append(r.Lineage, t.lineage...)
}

// tally counts walk outcomes for one sweep or one repetition.
type tally struct {
	jumps         int
	introductions int
	stalled       int
	absorbed      int
	wasted        int
	lineage       []models.LineageEvent
}

// Simulation owns a graph for the duration of a run.
type Simulation struct {
	graph  *graph.Graph
	params models.Parameters
	src    *prng.Source
	opts   Options

	iteration int
	visited   *graph.WalkSet
	lineage   []models.LineageEvent

	// Per-repetition substreams and walk sets, only used with Workers > 1.
	streams []*prng.Source
	walks   []*graph.WalkSet

	logger     *slog.Logger
	trace      *logging.TraceLogger
	traceWalks bool
}

// New creates a simulation over g. src must be the stream g was seeded from
// so that the whole run is reproducible from one seed.
func New(g *graph.Graph, src *prng.Source, opts Options) *Simulation {
	s := &Simulation{
		graph:   g,
		params:  g.Params(),
		src:     src,
		opts:    opts,
		visited: g.NewWalkSet(),
	}
	if opts.Workers > 1 {
		reps := s.params.Repetitions
		s.streams = make([]*prng.Source, reps)
		s.walks = make([]*graph.WalkSet, reps)
		for rep := 0; rep < reps; rep++ {
			s.streams[rep] = src.Derive(uint64(rep))
			s.walks[rep] = g.NewWalkSet()
		}
	}
	return s
}

// SetLogger sets the structured logger and trace logger for observability.
func (s *Simulation) SetLogger(logger *slog.Logger, trace *logging.TraceLogger) {
	s.logger = logger
	s.trace = trace
	s.traceWalks = logger != nil && logger.Enabled(context.Background(), logging.LevelTrace)
}

// Graph returns the simulated graph.
func (s *Simulation) Graph() *graph.Graph { return s.graph }

// Iteration returns the number of committed iterations.
func (s *Simulation) Iteration() int { return s.iteration }

// Lineage returns every recorded lineage event of the run so far.
func (s *Simulation) Lineage() []models.LineageEvent { return s.lineage }

// ComputeNextIteration performs one full jump sweep and commits the state of
// every node. Arrivals are stamped with the age iteration+1; the founding
// state has age 0.
func (s *Simulation) ComputeNextIteration() (IterationResult, error) {
	start := time.Now()
	age := s.iteration + 1
	res := IterationResult{Iteration: age}

	var err error
	if s.opts.Workers > 1 {
		err = s.sweepParallel(age, &res)
	} else {
		err = s.sweep(age, &res)
	}
	if err != nil {
		return IterationResult{}, fmt.Errorf("iteration %d: %w", age, err)
	}

	s.graph.UpdateState()
	s.iteration++
	res.Occupied = s.graph.OccupiedFraction()
	if s.opts.RecordLineage {
		s.lineage = append(s.lineage, res.Lineage...)
	}

	if s.logger != nil {
		s.logger.Debug("iteration committed",
			"iteration", res.Iteration,
			"jumps", res.Jumps,
			"introductions", res.Introductions,
			"absorbed", res.Absorbed,
			"wasted", res.Wasted,
			"occupied", res.Occupied,
			"duration", time.Since(start))
	}
	s.trace.Event("iteration", map[string]any{
		"iteration":     res.Iteration,
		"jumps":         res.Jumps,
		"introductions": res.Introductions,
		"stalled":       res.Stalled,
		"absorbed":      res.Absorbed,
		"wasted":        res.Wasted,
		"occupied":      res.Occupied,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	return res, nil
}

// Run advances the simulation until the configured iteration count. The
// context is only checked between iterations, so a cancelled run always
// stops on a fully committed state.
func (s *Simulation) Run(ctx context.Context) error {
	for s.iteration < s.params.Iterations {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped after iteration %d: %w", s.iteration, err)
		}
		res, err := s.ComputeNextIteration()
		if err != nil {
			return err
		}
		if s.opts.OnIteration != nil {
			if err := s.opts.OnIteration(res); err != nil {
				return fmt.Errorf("iteration %d callback: %w", res.Iteration, err)
			}
		}
	}
	return nil
}

// ComputeScore scores the committed state of the graph.
func (s *Simulation) ComputeScore() (float64, error) {
	score, err := s.graph.ComputeScore()
	if err != nil {
		return 0, fmt.Errorf("compute score: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("score computed", "empty_score", s.graph.EmptyScore(), "score", score, "iterations", s.iteration)
	}
	s.trace.Event("score", map[string]any{
		"iteration": s.iteration,
		"score":     score,
		"sampled":   s.graph.Summary().Sampled,
	})
	return score, nil
}
