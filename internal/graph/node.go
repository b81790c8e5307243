package graph

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/models"
)

// Sink is the neighbor index of an edge leaving the modeled area. A sink edge
// carries weight and can be selected by a walk, but never hosts an introduction.
const Sink = constants.SinkID

// Edge is one outgoing, weighted connection.
type Edge struct {
	Weight float64
	To     int // neighbor index in the graph arena, or Sink
}

// IsSink reports whether the edge leaves the modeled area.
func (e Edge) IsSink() bool { return e.To == Sink }

// Uniformer supplies uniform variates in [0, 1).
type Uniformer interface {
	Uniform() float64
}

// Node is one spatial cell. Map, covariate and sample attributes are fixed
// after the build; occupancy state is double-buffered per repetition and only
// changes through AddIntroduction and UpdateState.
type Node struct {
	ID           int
	X            float64
	Y            float64
	Area         float64
	SuitableArea float64

	HasCovariates     bool
	Population        float64
	PopulationDensity float64
	RoadDensity       float64

	YObs float64
	NObs float64
	PObs float64

	index        int
	edges        []Edge
	weightSum    float64
	connectivity float64

	trackAge bool
	nSim     float64

	// Per-repetition slots. During a sweep each repetition writes only its own
	// slot; totalIntroductions is shared across repetitions.
	current            []bool
	next               []bool
	introductions      []int
	firstAge           []int
	lastAge            []int
	totalIntroductions atomic.Int64

	ySim         float64
	pSim         float64
	meanIntro    float64
	varIntro     float64
	meanFirstAge float64
	varFirstAge  float64
	meanLastAge  float64
	varLastAge   float64

	likelihood       float64
	maxLikelihood    float64
	negLogLikelihood float64
	negLogMaxLikely  float64
	score            float64
}

func newNode(index int, rec models.MapRecord, repetitions int, nSim float64, trackAge bool) *Node {
	n := &Node{
		ID:                rec.ID,
		X:                 rec.X,
		Y:                 rec.Y,
		Area:              rec.Area,
		SuitableArea:      rec.SuitableArea,
		HasCovariates:     rec.HasCovariates,
		Population:        rec.Population,
		PopulationDensity: rec.PopulationDensity,
		RoadDensity:       rec.RoadDensity,
		index:             index,
		trackAge:          trackAge,
		nSim:              nSim,
		current:           make([]bool, repetitions),
		next:              make([]bool, repetitions),
		introductions:     make([]int, repetitions),
		firstAge:          make([]int, repetitions),
		lastAge:           make([]int, repetitions),
	}
	n.ResetState()
	return n
}

// Index returns the node's position in the graph arena.
func (n *Node) Index() int { return n.index }

// Edges returns a copy of the outgoing edges in insertion order.
func (n *Node) Edges() []Edge { return slices.Clone(n.edges) }

// Degree returns the number of outgoing edges, sink edges included.
func (n *Node) Degree() int { return len(n.edges) }

// WeightSum returns the sum of all outgoing edge weights.
func (n *Node) WeightSum() float64 { return n.weightSum }

// Connectivity returns the jump-rate multiplier in [0, 1].
func (n *Node) Connectivity() float64 { return n.connectivity }

// Repetitions returns the number of per-repetition slots.
func (n *Node) Repetitions() int { return len(n.current) }

// IsOccupied reports the committed state for repetition rep.
func (n *Node) IsOccupied(rep int) bool { return n.current[rep] }

// IsNextOccupied reports the pending state for repetition rep.
func (n *Node) IsNextOccupied(rep int) bool { return n.next[rep] }

// Introductions returns the introduction count of repetition rep.
func (n *Node) Introductions(rep int) int { return n.introductions[rep] }

// TotalIntroductions returns the introduction count summed over repetitions.
func (n *Node) TotalIntroductions() int64 { return n.totalIntroductions.Load() }

// FirstAge returns the first invasion age of repetition rep, or
// constants.NoInvasionAge when the node was never reached.
func (n *Node) FirstAge(rep int) int { return n.firstAge[rep] }

// LastAge returns the last invasion age of repetition rep.
func (n *Node) LastAge(rep int) int { return n.lastAge[rep] }

// YSim returns the number of occupied repetitions at the last commit.
func (n *Node) YSim() float64 { return n.ySim }

// NSim returns the virtual sample size R / p_intro.
func (n *Node) NSim() float64 { return n.nSim }

// PSim returns the simulated prevalence y_sim / n_sim.
func (n *Node) PSim() float64 { return n.pSim }

// MeanIntroductions returns the mean per-repetition introduction count.
func (n *Node) MeanIntroductions() float64 { return n.meanIntro }

// VarIntroductions returns the population variance of per-repetition
// introduction counts.
func (n *Node) VarIntroductions() float64 { return n.varIntro }

// Likelihood returns the hypergeometric likelihood of the last ComputeScore.
func (n *Node) Likelihood() float64 { return n.likelihood }

// MaxLikelihood returns the likelihood of the simulated-equals-observed
// configuration.
func (n *Node) MaxLikelihood() float64 { return n.maxLikelihood }

// NegLogLikelihood returns -ln Likelihood().
func (n *Node) NegLogLikelihood() float64 { return n.negLogLikelihood }

// NegLogMaxLikelihood returns -ln MaxLikelihood().
func (n *Node) NegLogMaxLikelihood() float64 { return n.negLogMaxLikely }

// Score returns the per-node score of the last ComputeScore.
func (n *Node) Score() float64 { return n.score }

// Sampled reports whether the node carries presence-absence observations.
func (n *Node) Sampled() bool { return n.NObs > 0 }

// Distance returns the Euclidean distance between two nodes.
func (n *Node) Distance(other *Node) float64 {
	return math.Hypot(other.X-n.X, other.Y-n.Y)
}

func (n *Node) addEdge(weight float64, to int) {
	n.edges = append(n.edges, Edge{Weight: weight, To: to})
	n.weightSum += weight
}

func (n *Node) setSample(y, total float64) {
	n.YObs = y
	n.NObs = total
	n.PObs = 0
	if total > 0 {
		n.PObs = y / total
	}
}

// ResetState clears every repetition back to unoccupied and zeroes all
// counters and aggregates. It is only called while building a graph.
func (n *Node) ResetState() {
	for rep := range n.current {
		n.current[rep] = false
		n.next[rep] = false
		n.introductions[rep] = 0
		n.firstAge[rep] = constants.NoInvasionAge
		n.lastAge[rep] = constants.NoInvasionAge
	}
	n.totalIntroductions.Store(0)
	n.ySim, n.pSim = 0, 0
	n.meanIntro, n.varIntro = 0, 0
	n.meanFirstAge, n.varFirstAge = 0, 0
	n.meanLastAge, n.varLastAge = 0, 0
	n.likelihood, n.maxLikelihood = 0, 0
	n.negLogLikelihood, n.negLogMaxLikely = 0, 0
	n.score = 0
}

// AddIntroduction records an arrival in repetition rep. The node becomes
// occupied in the next buffer; the committed state is untouched until
// UpdateState. With age tracking on, the first age is set once and the last
// age always follows the latest arrival.
func (n *Node) AddIntroduction(rep, iteration int) {
	n.next[rep] = true
	n.introductions[rep]++
	n.totalIntroductions.Add(1)
	if n.trackAge {
		if n.firstAge[rep] == constants.NoInvasionAge {
			n.firstAge[rep] = iteration
		}
		n.lastAge[rep] = iteration
	}
}

// found marks the node occupied in both buffers for repetition rep.
func (n *Node) found(rep int) {
	n.AddIntroduction(rep, constants.FoundingAge)
	n.current[rep] = true
}

// UpdateState commits next into current for every repetition and refreshes
// the simulated aggregates.
func (n *Node) UpdateState() {
	reps := len(n.current)
	n.ySim = 0
	for rep := 0; rep < reps; rep++ {
		n.current[rep] = n.next[rep]
		if n.current[rep] {
			n.ySim++
		}
	}
	n.pSim = 0
	if n.nSim > 0 {
		n.pSim = n.ySim / n.nSim
	}

	var sum, sumSq float64
	for _, k := range n.introductions {
		v := float64(k)
		sum += v
		sumSq += v * v
	}
	n.meanIntro, n.varIntro = meanVar(sum, sumSq, reps)

	if n.trackAge {
		n.meanFirstAge, n.varFirstAge = ageMeanVar(n.firstAge)
		n.meanLastAge, n.varLastAge = ageMeanVar(n.lastAge)
	}
}

// Jump draws the next node of a self-avoiding walk. Edges to visited
// neighbors are excluded; sink edges always count. It returns the chosen
// neighbor index, Sink, or the node's own index when no edge is selectable.
func (n *Node) Jump(u Uniformer, visited *WalkSet) (int, error) {
	sum := 0.0
	for _, e := range n.edges {
		if e.IsSink() || !visited.Visited(e.To) {
			sum += e.Weight
		}
	}
	if sum == 0 {
		return n.index, nil
	}

	draw := u.Uniform() * sum
	acc := 0.0
	for _, e := range n.edges {
		if e.IsSink() || !visited.Visited(e.To) {
			acc += e.Weight
			if draw < acc {
				return e.To, nil
			}
		}
	}
	return 0, fmt.Errorf("node %d: draw %g over weight %g: %w", n.ID, draw, sum, ErrSelectionFailed)
}

// ComputeScore evaluates the hypergeometric likelihood of the simulated
// occupancy against the observations and stores the per-node score under fn.
func (n *Node) ComputeScore(fn models.ScoreFunction) float64 {
	a := math.Floor(n.ySim)
	b := math.Floor(n.YObs)
	c := math.Floor(n.nSim - n.ySim)
	d := math.Floor(n.NObs - n.YObs)

	logL := logHypergeometric(a, a+b, c+d, a+c)
	logML := logHypergeometric(b, 2*b, 2*d, b+d)

	n.likelihood = math.Exp(logL)
	n.maxLikelihood = math.Exp(logML)
	n.negLogLikelihood = -logL
	n.negLogMaxLikely = -logML

	switch fn {
	case models.ScoreLSS:
		diff := n.pSim - n.PObs
		n.score = diff * diff
	case models.ScoreLogLikelihood:
		n.score = n.negLogLikelihood
	case models.ScoreLikelihoodLSS:
		r := 1 - math.Exp(logL-logML)
		n.score = r * r
	default:
		panic(fmt.Sprintf("graph: unhandled score function %q", fn))
	}
	return n.score
}

func meanVar(sum, sumSq float64, count int) (mean, variance float64) {
	if count == 0 {
		return 0, 0
	}
	mean = sum / float64(count)
	variance = sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// ageMeanVar aggregates over the repetitions where an age was recorded.
func ageMeanVar(ages []int) (mean, variance float64) {
	var sum, sumSq float64
	count := 0
	for _, a := range ages {
		if a == constants.NoInvasionAge {
			continue
		}
		v := float64(a)
		sum += v
		sumSq += v * v
		count++
	}
	return meanVar(sum, sumSq, count)
}
