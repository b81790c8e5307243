package models

import (
	"errors"
	"fmt"

	"github.com/nvandessel/spread/internal/constants"
)

// Parameters is the immutable configuration of one simulation run.
type Parameters struct {
	Seed uint64 `json:"seed" yaml:"seed"`

	DataType      DataType      `json:"type_of_data" yaml:"type_of_data"`
	ScoreFunction ScoreFunction `json:"score_function" yaml:"score_function"`

	// LogScore applies log10 to the presence-only sum of squared residuals.
	LogScore bool `json:"log_score" yaml:"log_score"`

	Repetitions int `json:"repetitions" yaml:"repetitions"`
	Iterations  int `json:"iterations" yaml:"iterations"`

	IntroductionX           float64 `json:"x_intro" yaml:"x_intro"`
	IntroductionY           float64 `json:"y_intro" yaml:"y_intro"`
	IntroductionProbability float64 `json:"p_intro" yaml:"p_intro"`

	Lambda  float64 `json:"lambda" yaml:"lambda"`
	Mu      float64 `json:"mu" yaml:"mu"`
	Sigma   float64 `json:"sigma" yaml:"sigma"`
	Gamma   float64 `json:"gamma" yaml:"gamma"`
	JumpLaw JumpLaw `json:"jump_law" yaml:"jump_law"`

	// RoadWeights are the linear-combination coefficients applied to the six
	// road-category counts of each network record.
	RoadWeights         [constants.RoadCategories]float64 `json:"road_weights" yaml:"road_weights"`
	MinimalConnectivity float64                           `json:"min_connectivity" yaml:"min_connectivity"`

	Connectivity ConnectivityMetric `json:"connectivity" yaml:"connectivity"`

	// TrackInvasionAge records first/last arrival iterations per repetition.
	TrackInvasionAge bool `json:"track_invasion_age" yaml:"track_invasion_age"`
}

// DefaultParameters returns parameters for a presence-absence run with a
// Dirac jump law of one hop.
func DefaultParameters() Parameters {
	return Parameters{
		Seed:                    constants.DefaultSeed,
		DataType:                DataPresenceAbsence,
		ScoreFunction:           ScoreLikelihoodLSS,
		Repetitions:             constants.DefaultRepetitions,
		Iterations:              constants.DefaultIterations,
		IntroductionProbability: constants.DefaultIntroductionProbability,
		Lambda:                  constants.DefaultLambda,
		Mu:                      constants.DefaultMu,
		JumpLaw:                 JumpDirac,
		RoadWeights:             [constants.RoadCategories]float64{1, 1, 1, 1, 1, 1},
		MinimalConnectivity:     constants.DefaultMinimalConnectivity,
		Connectivity:            ConnectivityJumpProbability,
	}
}

// Validate checks ranges and enum values.
func (p Parameters) Validate() error {
	var errs []error
	if !p.DataType.Valid() {
		errs = append(errs, fmt.Errorf("type_of_data: unknown value %q", p.DataType))
	}
	if !p.ScoreFunction.Valid() {
		errs = append(errs, fmt.Errorf("score_function: unknown value %q", p.ScoreFunction))
	}
	if !p.JumpLaw.Valid() {
		errs = append(errs, fmt.Errorf("jump_law: unknown value %q", p.JumpLaw))
	}
	if !p.Connectivity.Valid() {
		errs = append(errs, fmt.Errorf("connectivity: unknown value %q", p.Connectivity))
	}
	if p.Repetitions <= 0 {
		errs = append(errs, fmt.Errorf("repetitions must be positive, got %d", p.Repetitions))
	}
	if p.Iterations < 0 {
		errs = append(errs, fmt.Errorf("iterations must be non-negative, got %d", p.Iterations))
	}
	if p.IntroductionProbability <= 0 || p.IntroductionProbability > 1 {
		errs = append(errs, fmt.Errorf("p_intro must be in (0, 1], got %g", p.IntroductionProbability))
	}
	if p.Lambda < 0 {
		errs = append(errs, fmt.Errorf("lambda must be non-negative, got %g", p.Lambda))
	}
	if p.Mu < 0 {
		errs = append(errs, fmt.Errorf("mu must be non-negative, got %g", p.Mu))
	}
	if p.Sigma < 0 {
		errs = append(errs, fmt.Errorf("sigma must be non-negative, got %g", p.Sigma))
	}
	if p.Gamma < 0 {
		errs = append(errs, fmt.Errorf("gamma must be non-negative, got %g", p.Gamma))
	}
	if p.JumpLaw == JumpLogNormal && (p.Mu <= 0 || p.Sigma <= 0) {
		errs = append(errs, fmt.Errorf("lognormal jump law requires mu > 0 and sigma > 0"))
	}
	for i, w := range p.RoadWeights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("road weight w%d must be non-negative, got %g", i+1, w))
		}
	}
	if p.MinimalConnectivity < 0 {
		errs = append(errs, fmt.Errorf("min_connectivity must be non-negative, got %g", p.MinimalConnectivity))
	}
	return errors.Join(errs...)
}

// VirtualSampleSize is the simulated sample size n_sim of every node: the
// repetition count scaled by the founding probability.
func (p Parameters) VirtualSampleSize() float64 {
	return float64(p.Repetitions) / p.IntroductionProbability
}
