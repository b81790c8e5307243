// Package sampling draws artificial observation samples from a simulated
// graph. Each sampled trial at a node is positive with probability p_sim, so
// a sample generated from a known parameter vector can be used to check that
// an optimizer recovers it.
package sampling

import (
	"fmt"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
)

// Strategy selects how trials are spread over nodes.
type Strategy string

const (
	// Homogeneous draws every trial at a node chosen uniformly at random.
	Homogeneous Strategy = "homogeneous"

	// Imitate reuses the per-node trial counts of an existing sample.
	Imitate Strategy = "imitate"
)

// Random is the randomness a sampler consumes.
type Random interface {
	UniformInt(min, max int) int
	Bernoulli(p float64) bool
}

// Draw generates a sample from the committed state of g. size is the total
// number of trials for Homogeneous; template supplies the trial counts for
// Imitate. Records are returned in graph load order and only for nodes with
// at least one trial.
func Draw(g *graph.Graph, rng Random, strategy Strategy, size int, template []models.SampleRecord) ([]models.SampleRecord, error) {
	trials := make([]int, g.Len())
	switch strategy {
	case Homogeneous:
		if size <= 0 {
			return nil, fmt.Errorf("homogeneous sampling: size must be positive, got %d", size)
		}
		for i := 0; i < size; i++ {
			trials[rng.UniformInt(0, g.Len()-1)]++
		}
	case Imitate:
		if len(template) == 0 {
			return nil, fmt.Errorf("imitate sampling: template sample is empty")
		}
		for _, rec := range template {
			n, ok := g.Node(rec.ID)
			if !ok {
				return nil, fmt.Errorf("imitate sampling: node %d: %w", rec.ID, graph.ErrUnknownNode)
			}
			trials[n.Index()] += int(rec.NObs)
		}
	default:
		return nil, fmt.Errorf("unknown sampling strategy %q", strategy)
	}

	var out []models.SampleRecord
	for n := range g.Nodes() {
		total := trials[n.Index()]
		if total == 0 {
			continue
		}
		positives := 0
		for i := 0; i < total; i++ {
			if rng.Bernoulli(n.PSim()) {
				positives++
			}
		}
		out = append(out, models.SampleRecord{ID: n.ID, YObs: float64(positives), NObs: float64(total)})
	}
	return out, nil
}
