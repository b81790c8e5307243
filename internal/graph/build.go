package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/models"
)

// Random is the randomness Build consumes to seed the introduction node.
type Random interface {
	Bernoulli(p float64) bool
}

// Build constructs a graph from input records:
//
//  1. load map records into the arena
//  2. load network records as weighted edges
//  3. attach sample records
//  4. compute graph statistics
//  5. locate the introduction node
//  6. derive connectivity and reset all state
//  7. seed the introduction node, one Bernoulli trial per repetition
//  8. compute the empty baseline score
func Build(params models.Parameters, rng Random, maps []models.MapRecord, network []models.NetworkRecord, samples []models.SampleRecord) (*Graph, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	g := &Graph{
		params: params,
		nodes:  make([]*Node, 0, len(maps)),
		index:  make(map[int]int, len(maps)),
	}

	if err := g.loadMap(maps); err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	if err := g.loadNetwork(network); err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	if err := g.loadSample(samples); err != nil {
		return nil, fmt.Errorf("load sample: %w", err)
	}

	g.computeStats()
	g.introduction = g.closestNode(params.IntroductionX, params.IntroductionY)

	if err := g.computeConnectivity(); err != nil {
		return nil, err
	}
	for _, n := range g.nodes {
		n.ResetState()
	}
	g.seed(rng)

	empty, err := g.score()
	switch {
	case errors.Is(err, ErrNoObservations):
		empty = ScoreSummary{Score: math.NaN()}
	case err != nil:
		return nil, fmt.Errorf("empty score: %w", err)
	}
	g.empty = empty
	return g, nil
}

func (g *Graph) loadMap(maps []models.MapRecord) error {
	if len(maps) == 0 {
		return ErrEmptyGraph
	}
	nSim := g.params.VirtualSampleSize()
	for _, rec := range maps {
		if _, dup := g.index[rec.ID]; dup {
			return fmt.Errorf("node %d: %w", rec.ID, ErrDuplicateNode)
		}
		if rec.ID == constants.SinkID {
			return fmt.Errorf("node %d: id is reserved for sink edges: %w", rec.ID, ErrInvalidRecord)
		}
		if rec.Area <= 0 {
			return fmt.Errorf("node %d: area %g must be positive: %w", rec.ID, rec.Area, ErrInvalidRecord)
		}
		if rec.SuitableArea < 0 || rec.SuitableArea > rec.Area {
			return fmt.Errorf("node %d: suitable area %g outside [0, %g]: %w", rec.ID, rec.SuitableArea, rec.Area, ErrInvalidRecord)
		}
		if rec.HasCovariates && (rec.Population < 0 || rec.PopulationDensity < 0 || rec.RoadDensity < 0) {
			return fmt.Errorf("node %d: negative covariate: %w", rec.ID, ErrInvalidRecord)
		}
		idx := len(g.nodes)
		g.index[rec.ID] = idx
		g.nodes = append(g.nodes, newNode(idx, rec, g.params.Repetitions, nSim, g.params.TrackInvasionAge))
	}
	return nil
}

func (g *Graph) loadNetwork(network []models.NetworkRecord) error {
	for i, rec := range network {
		weight := 0.0
		for k, count := range rec.Roads {
			if count < 0 {
				return fmt.Errorf("record %d (%d, %d): road count r%d=%g is negative: %w", i+1, rec.ID1, rec.ID2, k+1, count, ErrInvalidRecord)
			}
			weight += g.params.RoadWeights[k] * count
		}
		if weight < g.params.MinimalConnectivity {
			weight = g.params.MinimalConnectivity
		}

		from, to := rec.ID1, rec.ID2
		if from == constants.SinkID {
			from, to = to, from
		}
		if from == constants.SinkID {
			return fmt.Errorf("record %d: both ends are outside the map: %w", i+1, ErrInvalidRecord)
		}
		src, ok := g.index[from]
		if !ok {
			return fmt.Errorf("record %d: node %d: %w", i+1, from, ErrUnknownNode)
		}
		if to == constants.SinkID {
			g.nodes[src].addEdge(weight, Sink)
			continue
		}
		dst, ok := g.index[to]
		if !ok {
			return fmt.Errorf("record %d: node %d: %w", i+1, to, ErrUnknownNode)
		}
		g.nodes[src].addEdge(weight, dst)
		g.nodes[dst].addEdge(weight, src)
	}
	return nil
}

func (g *Graph) loadSample(samples []models.SampleRecord) error {
	for i, rec := range samples {
		idx, ok := g.index[rec.ID]
		if !ok {
			return fmt.Errorf("record %d: node %d: %w", i+1, rec.ID, ErrUnknownNode)
		}
		if rec.YObs < 0 || rec.NObs < 0 || rec.YObs > rec.NObs {
			return fmt.Errorf("record %d: node %d: y=%g n=%g violates 0 <= y <= n: %w", i+1, rec.ID, rec.YObs, rec.NObs, ErrInvalidRecord)
		}
		g.nodes[idx].setSample(rec.YObs, rec.NObs)
	}
	return nil
}

func (g *Graph) computeStats() {
	s := Stats{Nodes: len(g.nodes), HasCovariates: true}
	var x, y, ws, pop, dens, road boundsAcc
	for _, n := range g.nodes {
		x.add(n.X)
		y.add(n.Y)
		ws.add(n.weightSum)
		for _, e := range n.edges {
			s.Edges++
			if e.IsSink() {
				s.SinkEdges++
			}
		}
		if n.Sampled() {
			s.Sampled++
		}
		if !n.HasCovariates {
			s.HasCovariates = false
			continue
		}
		pop.add(n.Population)
		dens.add(n.PopulationDensity)
		road.add(n.RoadDensity)
	}
	s.X, s.Y, s.WeightSum = x.bounds(), y.bounds(), ws.bounds()
	if s.HasCovariates {
		s.Population, s.PopulationDensity, s.RoadDensity = pop.bounds(), dens.bounds(), road.bounds()
	}
	g.stats = s
}

// closestNode returns the arena index minimizing the Euclidean distance to
// (x, y). Ties go to the first node in load order.
func (g *Graph) closestNode(x, y float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, n := range g.nodes {
		if d := math.Hypot(n.X-x, n.Y-y); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (g *Graph) computeConnectivity() error {
	metric := g.params.Connectivity
	if metric.RequiresCovariates() && !g.stats.HasCovariates {
		return fmt.Errorf("connectivity %s: %w", metric, ErrMissingCovariates)
	}
	for _, n := range g.nodes {
		switch metric {
		case models.ConnectivityJumpProbability:
			n.connectivity = ratio(n.weightSum, g.stats.WeightSum.Max)
		case models.ConnectivityHumanActivityMax:
			n.connectivity = ratio(n.PopulationDensity, g.stats.PopulationDensity.Max)
		case models.ConnectivityHumanActivityMean:
			n.connectivity = math.Min(1, ratio(n.PopulationDensity, g.stats.PopulationDensity.Mean))
		default:
			return fmt.Errorf("connectivity: unhandled metric %q", metric)
		}
	}
	return nil
}

// seed founds the introduction node independently in every repetition,
// then commits so that the aggregates reflect the founding state.
func (g *Graph) seed(rng Random) {
	intro := g.nodes[g.introduction]
	for rep := 0; rep < g.params.Repetitions; rep++ {
		if rng.Bernoulli(g.params.IntroductionProbability) {
			intro.found(rep)
		}
	}
	g.UpdateState()
}

func ratio(v, denom float64) float64 {
	if denom <= 0 {
		return 0
	}
	return v / denom
}

type boundsAcc struct {
	min, max, sum float64
	count         int
}

func (b *boundsAcc) add(v float64) {
	if b.count == 0 || v < b.min {
		b.min = v
	}
	if b.count == 0 || v > b.max {
		b.max = v
	}
	b.sum += v
	b.count++
}

func (b *boundsAcc) bounds() Bounds {
	if b.count == 0 {
		return Bounds{}
	}
	return Bounds{Min: b.min, Max: b.max, Mean: b.sum / float64(b.count)}
}
