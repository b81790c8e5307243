package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
	"github.com/nvandessel/spread/internal/simulation"
	"github.com/nvandessel/spread/internal/store"
)

// Runner orchestrates simulation experiments against the real graph builder,
// driver and run log.
type Runner struct {
	t     *testing.T
	store *store.SQLiteRunStore
}

// NewRunner creates a runner with an isolated SQLite run log.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	s, err := store.NewSQLiteRunStore(store.LocalRunsPath(t.TempDir()))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &Runner{t: t, store: s}
}

// Store returns the runner's run log.
func (r *Runner) Store() store.RunStore { return r.store }

// Parameters returns the parameters a scenario runs with.
func (sc Scenario) Parameters() models.Parameters {
	p := models.DefaultParameters()
	p.Repetitions = 20
	p.Iterations = 3
	p.TrackInvasionAge = true
	if len(sc.Nodes) > 0 {
		p.IntroductionX, p.IntroductionY = sc.Nodes[0].X, sc.Nodes[0].Y
	}
	if sc.Seed != 0 {
		p.Seed = sc.Seed
	}
	if sc.Configure != nil {
		sc.Configure(&p)
	}
	return p
}

// Run executes the scenario and returns the collected results. Build and
// simulation errors fail the test.
func (r *Runner) Run(sc Scenario) Result {
	r.t.Helper()
	ctx := context.Background()
	started := time.Now()

	// Phase 1: Build the graph.
	params := sc.Parameters()
	src := prng.New(params.Seed)
	g, err := graph.Build(params, src, mapRecords(sc), networkRecords(sc), sampleRecords(sc))
	if err != nil {
		r.t.Fatalf("scenario %s: Build: %v", sc.Name, err)
	}

	// Phase 2: Run every iteration, snapshotting after each commit.
	result := Result{Name: sc.Name, Graph: g, Snapshots: []Snapshot{capture(g, 0, simulation.IterationResult{})}}
	sim := simulation.New(g, src, simulation.Options{
		Workers:       sc.Workers,
		RecordLineage: true,
		OnIteration: func(res simulation.IterationResult) error {
			result.Snapshots = append(result.Snapshots, capture(g, res.Iteration, res))
			return nil
		},
	})
	if err := sim.Run(ctx); err != nil {
		r.t.Fatalf("scenario %s: Run: %v", sc.Name, err)
	}
	result.Lineage = sim.Lineage()

	// Phase 3: Score. Scenarios without observations are allowed.
	result.EmptyScore = g.EmptyScore()
	result.Score, result.ScoreErr = sim.ComputeScore()
	if result.ScoreErr != nil && !errors.Is(result.ScoreErr, graph.ErrNoObservations) {
		r.t.Fatalf("scenario %s: ComputeScore: %v", sc.Name, result.ScoreErr)
	}

	// Phase 4: Record the run.
	jumps := 0
	for _, s := range result.Snapshots {
		jumps += s.Tally.Jumps
	}
	id, err := r.store.SaveRun(ctx, store.Record{
		Run: store.Run{
			StartedAt:  started,
			FinishedAt: time.Now(),
			Parameters: params,
			EmptyScore: result.EmptyScore,
			Score:      result.Score,
			Jumps:      jumps,
		},
		States:  g.Snapshot().Nodes,
		Lineage: result.Lineage,
	})
	if err != nil {
		r.t.Fatalf("scenario %s: SaveRun: %v", sc.Name, err)
	}
	result.RunID = id
	return result
}

func capture(g *graph.Graph, iteration int, tally simulation.IterationResult) Snapshot {
	s := Snapshot{Iteration: iteration, Occupied: make(map[int][]bool, g.Len()), Tally: tally}
	for n := range g.Nodes() {
		reps := make([]bool, n.Repetitions())
		for rep := range reps {
			reps[rep] = n.IsOccupied(rep)
		}
		s.Occupied[n.ID] = reps
	}
	return s
}

func mapRecords(sc Scenario) []models.MapRecord {
	out := make([]models.MapRecord, len(sc.Nodes))
	for i, n := range sc.Nodes {
		out[i] = n.ToRecord()
	}
	return out
}

func networkRecords(sc Scenario) []models.NetworkRecord {
	out := make([]models.NetworkRecord, len(sc.Edges))
	for i, e := range sc.Edges {
		out[i] = e.ToRecord()
	}
	return out
}

func sampleRecords(sc Scenario) []models.SampleRecord {
	out := make([]models.SampleRecord, len(sc.Samples))
	for i, s := range sc.Samples {
		out[i] = s.ToRecord()
	}
	return out
}

// FormatSnapshotDebug returns a debug string for a snapshot.
func FormatSnapshotDebug(s Snapshot, ids ...int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Iteration %d: jumps=%d introductions=%d absorbed=%d wasted=%d\n",
		s.Iteration, s.Tally.Jumps, s.Tally.Introductions, s.Tally.Absorbed, s.Tally.Wasted)
	for _, id := range ids {
		fmt.Fprintf(&b, "  node %d: occupied=%.2f\n", id, s.Fraction(id))
	}
	return b.String()
}
