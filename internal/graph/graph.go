// Package graph holds the spatial network of the spread model: cells stored
// in a flat arena, weighted road edges with sink edges leaving the modeled
// area, per-repetition double-buffered occupancy, and hypergeometric scoring
// of simulated occupancy against field observations.
//
// A Graph is built once per run. Its topology (nodes, edges, weights,
// connectivity) is read-only after Build; only occupancy state and scores
// change afterwards.
package graph

import (
	"iter"

	"github.com/nvandessel/spread/internal/models"
)

// Bounds is the min/max/mean of one attribute across the graph.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// Stats holds graph-wide aggregates computed at build time.
type Stats struct {
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	SinkEdges int    `json:"sink_edges"`
	Sampled   int    `json:"sampled"`
	X         Bounds `json:"x"`
	Y         Bounds `json:"y"`
	WeightSum Bounds `json:"weight_sum"`

	// Covariate bounds are only set when every node carries covariates.
	HasCovariates     bool   `json:"has_covariates"`
	Population        Bounds `json:"population"`
	PopulationDensity Bounds `json:"population_density"`
	RoadDensity       Bounds `json:"road_density"`
}

// Graph owns every node of a run.
type Graph struct {
	params       models.Parameters
	nodes        []*Node
	index        map[int]int
	introduction int
	stats        Stats

	empty  ScoreSummary
	final  ScoreSummary
	scored bool
}

// Params returns the parameters the graph was built with.
func (g *Graph) Params() models.Parameters { return g.params }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes yields every node in load order. Each call starts a fresh iteration.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range g.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// NodeAt returns the node at arena index i.
func (g *Graph) NodeAt(i int) *Node { return g.nodes[i] }

// IntroductionNode returns the node closest to the introduction coordinates.
func (g *Graph) IntroductionNode() *Node { return g.nodes[g.introduction] }

// Stats returns the build-time aggregates.
func (g *Graph) Stats() Stats { return g.stats }

// UpdateState commits the pending state of every node. It must run once per
// iteration, after the full jump sweep.
func (g *Graph) UpdateState() {
	for _, n := range g.nodes {
		n.UpdateState()
	}
}

// Occupancy returns, per repetition, the number of committed occupied nodes.
func (g *Graph) Occupancy() []int {
	occ := make([]int, g.params.Repetitions)
	for _, n := range g.nodes {
		for rep, on := range n.current {
			if on {
				occ[rep]++
			}
		}
	}
	return occ
}

// OccupiedFraction returns the mean fraction of nodes occupied across
// repetitions.
func (g *Graph) OccupiedFraction() float64 {
	if len(g.nodes) == 0 || g.params.Repetitions == 0 {
		return 0
	}
	total := 0
	for _, c := range g.Occupancy() {
		total += c
	}
	return float64(total) / float64(len(g.nodes)*g.params.Repetitions)
}
