package graph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/models"
)

// ScoreSummary aggregates one scoring pass over the graph.
type ScoreSummary struct {
	Score float64 `json:"score"`

	// Sampled is the number of nodes that contributed to Score.
	Sampled int `json:"sampled"`

	// Likelihood aggregates are only set for presence-absence data.
	MeanLikelihood    float64 `json:"mean_likelihood,omitempty"`
	MeanMaxLikelihood float64 `json:"mean_max_likelihood,omitempty"`
	NegLogLikelihood  float64 `json:"neg_log_likelihood,omitempty"`
}

// logHypergeometric returns ln H(k; K, F, n): the log probability of drawing
// k successes in n draws without replacement from K successes and F failures.
func logHypergeometric(k, successes, failures, draws float64) float64 {
	if k < 0 || k > successes || draws-k < 0 || draws-k > failures {
		return math.Inf(-1)
	}
	return combin.LogGeneralizedBinomial(successes, k) +
		combin.LogGeneralizedBinomial(failures, draws-k) -
		combin.LogGeneralizedBinomial(successes+failures, draws)
}

// ComputeScore scores the committed state against the observations and
// stores the result as the graph's final score.
func (g *Graph) ComputeScore() (float64, error) {
	s, err := g.score()
	if err != nil {
		return 0, err
	}
	g.final = s
	g.scored = true
	return s.Score, nil
}

// EmptyScore returns the baseline score computed before any spread. It is NaN
// when the baseline could not be computed because no node was sampled.
func (g *Graph) EmptyScore() float64 { return g.empty.Score }

// EmptySummary returns the full baseline aggregate.
func (g *Graph) EmptySummary() ScoreSummary { return g.empty }

// Score returns the last score computed by ComputeScore, or 0 before the
// first call.
func (g *Graph) Score() float64 { return g.final.Score }

// Summary returns the last aggregate computed by ComputeScore.
func (g *Graph) Summary() ScoreSummary { return g.final }

// Scored reports whether ComputeScore has succeeded at least once.
func (g *Graph) Scored() bool { return g.scored }

func (g *Graph) score() (ScoreSummary, error) {
	switch g.params.DataType {
	case models.DataPresenceOnly:
		return g.presenceOnlyScore(), nil
	case models.DataPresenceAbsence:
		return g.presenceAbsenceScore()
	default:
		return ScoreSummary{}, fmt.Errorf("score: unhandled data type %q", g.params.DataType)
	}
}

// presenceOnlyScore sums squared residuals between observed abundance and the
// mean introduction count. Under the log transform a residual-free sum maps
// to constants.PresenceOnlyLogFloor rather than log10(0).
func (g *Graph) presenceOnlyScore() ScoreSummary {
	var s ScoreSummary
	for _, n := range g.nodes {
		if n.YObs <= 0 {
			continue
		}
		r := n.YObs - n.meanIntro
		n.score = r * r
		s.Score += n.score
		s.Sampled++
	}
	if g.params.LogScore {
		if s.Score > 0 {
			s.Score = math.Log10(s.Score)
		} else {
			s.Score = constants.PresenceOnlyLogFloor
		}
	}
	return s
}

// presenceAbsenceScore aggregates per-node hypergeometric scores over the
// sampled nodes: LSS and LIKELIHOOD_LSS are averaged, LOG_LIKELIHOOD is summed.
func (g *Graph) presenceAbsenceScore() (ScoreSummary, error) {
	var s ScoreSummary
	var sumL, sumML float64
	for _, n := range g.nodes {
		if !n.Sampled() {
			continue
		}
		s.Score += n.ComputeScore(g.params.ScoreFunction)
		sumL += n.likelihood
		sumML += n.maxLikelihood
		s.NegLogLikelihood += n.negLogLikelihood
		s.Sampled++
	}
	if s.Sampled == 0 {
		return ScoreSummary{}, ErrNoObservations
	}
	count := float64(s.Sampled)
	s.MeanLikelihood = sumL / count
	s.MeanMaxLikelihood = sumML / count
	if g.params.ScoreFunction != models.ScoreLogLikelihood {
		s.Score /= count
	}
	return s, nil
}
