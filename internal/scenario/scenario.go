package scenario

import (
	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/simulation"
)

// Sink is the EdgeSpec target leaving the modeled area.
const Sink = constants.SinkID

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name    string
	Nodes   []NodeSpec
	Edges   []EdgeSpec
	Samples []SampleSpec

	// Seed overrides the parameter seed when non-zero.
	Seed uint64

	// Configure, when non-nil, adjusts the parameters after defaults are
	// applied. Defaults are models.DefaultParameters with 20 repetitions,
	// 3 iterations and invasion-age tracking on; the introduction point is
	// the first node.
	Configure func(p *models.Parameters)

	// Workers > 1 runs repetitions in parallel.
	Workers int
}

// NodeSpec defines one cell. Area and SuitableArea default to 1.
type NodeSpec struct {
	ID           int
	X, Y         float64
	Area         float64
	SuitableArea float64

	// Covariates, when non-nil, are (population, population density, road density).
	Covariates *[3]float64
}

// ToRecord converts a NodeSpec to a map record, applying defaults.
func (n NodeSpec) ToRecord() models.MapRecord {
	area := n.Area
	if area == 0 {
		area = 1
	}
	suitable := n.SuitableArea
	if suitable == 0 {
		suitable = area
	}
	rec := models.MapRecord{ID: n.ID, X: n.X, Y: n.Y, Area: area, SuitableArea: suitable}
	if n.Covariates != nil {
		rec.HasCovariates = true
		rec.Population, rec.PopulationDensity, rec.RoadDensity = n.Covariates[0], n.Covariates[1], n.Covariates[2]
	}
	return rec
}

// EdgeSpec defines one road connection. Weight is written to the first road
// category, so it is the edge weight whenever road weight w1 is 1.
type EdgeSpec struct {
	From, To int
	Weight   float64
}

// ToRecord converts an EdgeSpec to a network record.
func (e EdgeSpec) ToRecord() models.NetworkRecord {
	rec := models.NetworkRecord{ID1: e.From, ID2: e.To}
	rec.Roads[0] = e.Weight
	return rec
}

// SampleSpec defines field observations at one cell.
type SampleSpec struct {
	ID   int
	Y, N float64
}

// ToRecord converts a SampleSpec to a sample record.
func (s SampleSpec) ToRecord() models.SampleRecord {
	return models.SampleRecord{ID: s.ID, YObs: s.Y, NObs: s.N}
}

// Snapshot captures the committed occupancy after one iteration.
type Snapshot struct {
	// Iteration 0 is the founding state.
	Iteration int

	// Occupied maps node id to its per-repetition occupancy.
	Occupied map[int][]bool

	// Tally is the driver's summary of the iteration; zero for iteration 0.
	Tally simulation.IterationResult
}

// Fraction returns the share of repetitions in which id is occupied.
func (s Snapshot) Fraction(id int) float64 {
	reps := s.Occupied[id]
	if len(reps) == 0 {
		return 0
	}
	n := 0
	for _, occ := range reps {
		if occ {
			n++
		}
	}
	return float64(n) / float64(len(reps))
}

// Result captures every snapshot and the final scores of one scenario run.
type Result struct {
	Name      string
	RunID     string
	Graph     *graph.Graph
	Snapshots []Snapshot
	Lineage   []models.LineageEvent

	EmptyScore float64
	Score      float64

	// ScoreErr is set when the scenario has no usable observations.
	ScoreErr error
}

// Final returns the last snapshot.
func (r Result) Final() Snapshot {
	return r.Snapshots[len(r.Snapshots)-1]
}
