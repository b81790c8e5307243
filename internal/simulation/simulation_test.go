package simulation

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
)

func cell(id int, x, y float64) models.MapRecord {
	return models.MapRecord{ID: id, X: x, Y: y, Area: 1, SuitableArea: 1}
}

func road(id1, id2 int, count float64) models.NetworkRecord {
	return models.NetworkRecord{ID1: id1, ID2: id2, Roads: [constants.RoadCategories]float64{count}}
}

func params(reps, iterations int, lambda, mu float64) models.Parameters {
	p := models.DefaultParameters()
	p.Repetitions = reps
	p.Iterations = iterations
	p.Lambda = lambda
	p.Mu = mu
	p.TrackInvasionAge = true
	return p
}

func newSimulation(t *testing.T, p models.Parameters, maps []models.MapRecord, network []models.NetworkRecord, samples []models.SampleRecord, opts Options) *Simulation {
	t.Helper()
	src := prng.New(p.Seed)
	g, err := graph.Build(p, src, maps, network, samples)
	if err != nil {
		t.Fatalf("graph.Build() error = %v", err)
	}
	return New(g, src, opts)
}

// chain is the path A(1) - B(2) - C(3) with equal weights.
func chain() ([]models.MapRecord, []models.NetworkRecord) {
	return []models.MapRecord{cell(1, 0, 0), cell(2, 1, 0), cell(3, 2, 0)},
		[]models.NetworkRecord{road(1, 2, 1), road(2, 3, 1)}
}

// grid returns an n x n lattice with 4-neighborhood roads and a sink edge on
// the left border.
func grid(n int) ([]models.MapRecord, []models.NetworkRecord, []models.SampleRecord) {
	var maps []models.MapRecord
	var network []models.NetworkRecord
	var samples []models.SampleRecord
	id := func(i, j int) int { return i*n + j + 1 }
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			maps = append(maps, cell(id(i, j), float64(j), float64(i)))
			if j+1 < n {
				network = append(network, road(id(i, j), id(i, j+1), float64(1+(i+j)%3)))
			}
			if i+1 < n {
				network = append(network, road(id(i, j), id(i+1, j), 1))
			}
			if j == 0 {
				network = append(network, road(id(i, j), constants.SinkID, 0.5))
			}
			if (i+j)%2 == 0 {
				samples = append(samples, models.SampleRecord{ID: id(i, j), YObs: float64((i * j) % 3), NObs: 3})
			}
		}
	}
	return maps, network, samples
}

func occupiedCount(g *graph.Graph, id int) int {
	n, ok := g.Node(id)
	if !ok {
		return -1
	}
	count := 0
	for rep := 0; rep < n.Repetitions(); rep++ {
		if n.IsOccupied(rep) {
			count++
		}
	}
	return count
}

func TestRun_Deterministic(t *testing.T) {
	maps, network, samples := grid(5)
	p := params(20, 6, 3, 2)
	p.JumpLaw = models.JumpLogNormal
	p.Sigma = 0.6
	p.Seed = 99

	run := func(t *testing.T, workers int) (graph.Snapshot, []models.LineageEvent) {
		t.Helper()
		s := newSimulation(t, p, maps, network, samples, Options{Workers: workers, RecordLineage: true})
		if err := s.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if _, err := s.ComputeScore(); err != nil {
			t.Fatalf("ComputeScore() error = %v", err)
		}
		return s.Graph().Snapshot(), s.Lineage()
	}

	tests := []struct {
		name     string
		workersA int
		workersB int
	}{
		{"sequential", 1, 1},
		{"parallel independent of worker count", 2, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapA, linA := run(t, tt.workersA)
			snapB, linB := run(t, tt.workersB)
			if !reflect.DeepEqual(snapA, snapB) {
				t.Error("snapshots differ between identical runs")
			}
			if !reflect.DeepEqual(linA, linB) {
				t.Errorf("lineage differs between identical runs (%d vs %d events)", len(linA), len(linB))
			}
			if len(linA) == 0 {
				t.Error("expected some lineage events")
			}
		})
	}
}

func TestRun_MonotonicColonization(t *testing.T) {
	maps, network, _ := grid(4)
	p := params(10, 8, 2, 1)
	p.JumpLaw = models.JumpNormal
	p.Sigma = 1.5

	for _, workers := range []int{1, 3} {
		s := newSimulation(t, p, maps, network, nil, Options{Workers: workers})
		g := s.Graph()
		prev := make(map[int][]bool)
		for it := 0; it < p.Iterations; it++ {
			if _, err := s.ComputeNextIteration(); err != nil {
				t.Fatalf("ComputeNextIteration() error = %v", err)
			}
			for n := range g.Nodes() {
				cur := make([]bool, p.Repetitions)
				for rep := range cur {
					cur[rep] = n.IsOccupied(rep)
					if prev[n.ID] != nil && prev[n.ID][rep] && !cur[rep] {
						t.Fatalf("workers=%d: node %d rep %d went from occupied to unoccupied at iteration %d", workers, n.ID, rep, it+1)
					}
				}
				prev[n.ID] = cur
			}
		}
	}
}

func TestRun_ChainPropagation(t *testing.T) {
	maps, network := chain()
	for _, workers := range []int{1, 4} {
		s := newSimulation(t, params(20, 2, 40, 1), maps, network, nil, Options{Workers: workers})
		g := s.Graph()

		if _, err := s.ComputeNextIteration(); err != nil {
			t.Fatalf("iteration 1: %v", err)
		}
		if got := occupiedCount(g, 2); got == 0 {
			t.Errorf("workers=%d: after 1 iteration B occupied in %d repetitions, want > 0", workers, got)
		}
		if got := occupiedCount(g, 3); got != 0 {
			t.Errorf("workers=%d: after 1 iteration C occupied in %d repetitions, want 0", workers, got)
		}

		if _, err := s.ComputeNextIteration(); err != nil {
			t.Fatalf("iteration 2: %v", err)
		}
		if got := occupiedCount(g, 3); got == 0 {
			t.Errorf("workers=%d: after 2 iterations C occupied in %d repetitions, want > 0", workers, got)
		}
		if s.Iteration() != 2 {
			t.Errorf("Iteration() = %d, want 2", s.Iteration())
		}
	}
}

func TestRun_SinkAbsorption(t *testing.T) {
	// X has one real edge and one sink edge of equal weight; Y is unreachable
	// otherwise. Only X is occupied during the first sweep.
	maps := []models.MapRecord{cell(1, 0, 0), cell(2, 1, 0)}
	network := []models.NetworkRecord{road(1, 2, 1), road(1, constants.SinkID, 1)}
	s := newSimulation(t, params(200, 1, 20, 1), maps, network, nil, Options{})

	res, err := s.ComputeNextIteration()
	if err != nil {
		t.Fatalf("ComputeNextIteration() error = %v", err)
	}
	if res.Jumps < 1000 {
		t.Fatalf("expected many jumps, got %d", res.Jumps)
	}
	frac := float64(res.Absorbed) / float64(res.Jumps)
	if math.Abs(frac-0.5) > 0.05 {
		t.Errorf("absorbed fraction = %.3f, want ~0.5", frac)
	}
	if res.Absorbed+res.Introductions != res.Jumps {
		t.Errorf("absorbed (%d) + introductions (%d) != jumps (%d)", res.Absorbed, res.Introductions, res.Jumps)
	}
	y, _ := s.Graph().Node(2)
	if y.TotalIntroductions() != int64(res.Introductions) {
		t.Errorf("Y introductions = %d, want %d", y.TotalIntroductions(), res.Introductions)
	}
}

func TestWalk_DeadEndStallsInPlace(t *testing.T) {
	// A - B with a budget of 5 hops: the walk reaches B, every neighbor of B
	// is visited, so it stalls and introduces at B.
	maps := []models.MapRecord{cell(1, 0, 0), cell(2, 1, 0)}
	s := newSimulation(t, params(5, 1, 10, 5), maps, []models.NetworkRecord{road(1, 2, 1)}, nil, Options{RecordLineage: true})

	res, err := s.ComputeNextIteration()
	if err != nil {
		t.Fatalf("ComputeNextIteration() error = %v", err)
	}
	if res.Jumps == 0 || res.Stalled != res.Jumps || res.Introductions != res.Jumps {
		t.Errorf("got jumps=%d stalled=%d introductions=%d, want all stalled introductions", res.Jumps, res.Stalled, res.Introductions)
	}
	for _, ev := range s.Lineage() {
		if ev.StartID != 1 || ev.EndID != 2 || ev.Hops != 1 || ev.Iteration != 1 || ev.Euclidean != 1 {
			t.Fatalf("unexpected lineage event %+v", ev)
		}
	}
	if got := occupiedCount(s.Graph(), 2); got != 5 {
		t.Errorf("B occupied in %d repetitions, want 5", got)
	}
}

func TestWalk_CannotLeaveStartIntroducesAtStart(t *testing.T) {
	// Human-activity connectivity lets a node with zero-weight roads jump.
	rec := func(id int, x float64) models.MapRecord {
		r := cell(id, x, 0)
		r.HasCovariates = true
		r.PopulationDensity = 10
		return r
	}
	p := params(4, 1, 5, 2)
	p.Connectivity = models.ConnectivityHumanActivityMax
	s := newSimulation(t, p, []models.MapRecord{rec(1, 0), rec(2, 1)}, []models.NetworkRecord{road(1, 2, 0)}, nil, Options{})
	a, _ := s.Graph().Node(1)
	before := a.TotalIntroductions()

	res, err := s.ComputeNextIteration()
	if err != nil {
		t.Fatalf("ComputeNextIteration() error = %v", err)
	}
	if res.Jumps == 0 || res.Wasted != 0 || res.Stalled != res.Jumps || res.Introductions != res.Jumps {
		t.Errorf("got jumps=%d wasted=%d stalled=%d introductions=%d, want every jump stalled at the start",
			res.Jumps, res.Wasted, res.Stalled, res.Introductions)
	}
	if got, want := a.TotalIntroductions(), before+int64(res.Jumps); got != want {
		t.Errorf("A introductions = %d, want %d", got, want)
	}
	if got := occupiedCount(s.Graph(), 2); got != 0 {
		t.Errorf("B occupied in %d repetitions, want 0", got)
	}
}

func TestWalk_ZeroBudgetIntroducesAtStart(t *testing.T) {
	maps, network := chain()
	s := newSimulation(t, params(3, 1, 4, 0), maps, network, nil, Options{})
	a, _ := s.Graph().Node(1)
	before := a.TotalIntroductions()

	res, err := s.ComputeNextIteration()
	if err != nil {
		t.Fatalf("ComputeNextIteration() error = %v", err)
	}
	if a.TotalIntroductions() != before+int64(res.Jumps) {
		t.Errorf("A introductions = %d, want %d", a.TotalIntroductions(), before+int64(res.Jumps))
	}
	if got := occupiedCount(s.Graph(), 2); got != 0 {
		t.Errorf("B occupied in %d repetitions, want 0", got)
	}
}

func TestDrawHopBudget(t *testing.T) {
	maps, network := chain()
	tests := []struct {
		name string
		law  models.JumpLaw
		mu   float64
		max  int
	}{
		{"dirac floors", models.JumpDirac, 2.7, 2},
		{"dirac capped at graph size", models.JumpDirac, 40, 3},
		{"cauchy bounded", models.JumpCauchy, 1, 3},
		{"normal bounded", models.JumpNormal, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(1, 0, 1, tt.mu)
			p.JumpLaw = tt.law
			p.Sigma = 2
			p.Gamma = 50
			s := newSimulation(t, p, maps, network, nil, Options{})
			src := prng.New(5)
			for i := 0; i < 500; i++ {
				d := s.drawHopBudget(src)
				if d < 0 || d > tt.max {
					t.Fatalf("drawHopBudget() = %d, want in [0, %d]", d, tt.max)
				}
				if tt.law == models.JumpDirac && d != tt.max {
					t.Fatalf("drawHopBudget() = %d, want %d", d, tt.max)
				}
			}
		})
	}
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	maps, network := chain()
	s := newSimulation(t, params(2, 5, 1, 1), maps, network, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if s.Iteration() != 0 {
		t.Errorf("Iteration() = %d, want 0", s.Iteration())
	}
}

func TestRun_OnIteration(t *testing.T) {
	maps, network := chain()
	var seen []int
	stop := errors.New("stop")
	opts := Options{OnIteration: func(r IterationResult) error {
		seen = append(seen, r.Iteration)
		if r.Iteration == 3 {
			return stop
		}
		return nil
	}}
	s := newSimulation(t, params(2, 10, 1, 1), maps, network, nil, opts)

	err := s.Run(context.Background())
	if !errors.Is(err, stop) {
		t.Fatalf("Run() error = %v, want callback error", err)
	}
	if !reflect.DeepEqual(seen, []int{1, 2, 3}) {
		t.Errorf("callback iterations = %v, want [1 2 3]", seen)
	}
}

func TestComputeScore_ImprovesOnEmptyWhenObservationsMatchSpread(t *testing.T) {
	// B is observed fully occupied; a run that reaches B must score better
	// than the empty baseline.
	maps, network := chain()
	samples := []models.SampleRecord{{ID: 2, YObs: 10, NObs: 10}, {ID: 3, YObs: 0, NObs: 10}}
	p := params(10, 1, 40, 1)
	p.ScoreFunction = models.ScoreLSS
	s := newSimulation(t, p, maps, network, samples, Options{})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	score, err := s.ComputeScore()
	if err != nil {
		t.Fatalf("ComputeScore() error = %v", err)
	}
	if empty := s.Graph().EmptyScore(); score >= empty {
		t.Errorf("score %g should improve on empty score %g", score, empty)
	}
}
