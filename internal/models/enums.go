package models

import (
	"fmt"
	"strings"
)

// DataType is the kind of field observation the score is computed against.
type DataType string

const (
	DataPresenceOnly    DataType = "PRESENCE_ONLY"    // Abundance counts at positive cells only
	DataPresenceAbsence DataType = "PRESENCE_ABSENCE" // Positive and total observations per cell
)

// JumpLaw is the distribution jump distances are drawn from.
type JumpLaw string

const (
	JumpDirac     JumpLaw = "DIRAC"     // d = mu
	JumpNormal    JumpLaw = "NORMAL"    // d ~ N(mu, sigma)
	JumpLogNormal JumpLaw = "LOGNORMAL" // d ~ 10^N(log10 mu, sigma)
	JumpCauchy    JumpLaw = "CAUCHY"    // d = |Cauchy(0, gamma)|
)

// ScoreFunction selects how per-node presence-absence comparisons aggregate.
type ScoreFunction string

const (
	ScoreLSS           ScoreFunction = "LSS"            // (p_sim - p_obs)^2
	ScoreLogLikelihood ScoreFunction = "LOG_LIKELIHOOD" // -ln L
	ScoreLikelihoodLSS ScoreFunction = "LIKELIHOOD_LSS" // (1 - L/ML)^2
)

// ConnectivityMetric selects how a node's jump rate multiplier is derived.
type ConnectivityMetric string

const (
	// ConnectivityJumpProbability normalizes the node weight sum by the graph maximum.
	ConnectivityJumpProbability ConnectivityMetric = "JUMP_PROBABILITY"

	// ConnectivityHumanActivityMax normalizes population density by the graph maximum.
	ConnectivityHumanActivityMax ConnectivityMetric = "HUMAN_ACTIVITY_MAX"

	// ConnectivityHumanActivityMean normalizes population density by the graph
	// mean. Values above the mean saturate at 1.
	ConnectivityHumanActivityMean ConnectivityMetric = "HUMAN_ACTIVITY_MEAN"
)

var (
	validDataTypes = map[DataType]bool{
		DataPresenceOnly:    true,
		DataPresenceAbsence: true,
	}
	validJumpLaws = map[JumpLaw]bool{
		JumpDirac:     true,
		JumpNormal:    true,
		JumpLogNormal: true,
		JumpCauchy:    true,
	}
	validScoreFunctions = map[ScoreFunction]bool{
		ScoreLSS:           true,
		ScoreLogLikelihood: true,
		ScoreLikelihoodLSS: true,
	}
	validConnectivity = map[ConnectivityMetric]bool{
		ConnectivityJumpProbability:   true,
		ConnectivityHumanActivityMax:  true,
		ConnectivityHumanActivityMean: true,
	}
)

// jumpLawAliases accepts the spelling used by older parameter files.
var jumpLawAliases = map[string]JumpLaw{
	"GAUSSIAN": JumpNormal,
}

// Valid reports whether d is a known data type.
func (d DataType) Valid() bool { return validDataTypes[d] }

// Valid reports whether l is a known jump law.
func (l JumpLaw) Valid() bool { return validJumpLaws[l] }

// Valid reports whether f is a known score function.
func (f ScoreFunction) Valid() bool { return validScoreFunctions[f] }

// Valid reports whether m is a known connectivity metric.
func (m ConnectivityMetric) Valid() bool { return validConnectivity[m] }

// RequiresCovariates reports whether the metric reads population density.
func (m ConnectivityMetric) RequiresCovariates() bool {
	return m == ConnectivityHumanActivityMax || m == ConnectivityHumanActivityMean
}

// ParseDataType parses a case-insensitive data type name.
func ParseDataType(s string) (DataType, error) {
	d := DataType(normalize(s))
	if !d.Valid() {
		return "", fmt.Errorf("invalid type of data %q (valid: PRESENCE_ONLY, PRESENCE_ABSENCE)", s)
	}
	return d, nil
}

// ParseJumpLaw parses a case-insensitive jump law name.
func ParseJumpLaw(s string) (JumpLaw, error) {
	n := normalize(s)
	if alias, ok := jumpLawAliases[n]; ok {
		return alias, nil
	}
	l := JumpLaw(n)
	if !l.Valid() {
		return "", fmt.Errorf("invalid jump law %q (valid: DIRAC, NORMAL, LOGNORMAL, CAUCHY)", s)
	}
	return l, nil
}

// ParseScoreFunction parses a case-insensitive score function name.
func ParseScoreFunction(s string) (ScoreFunction, error) {
	f := ScoreFunction(normalize(s))
	if !f.Valid() {
		return "", fmt.Errorf("invalid score function %q (valid: LSS, LOG_LIKELIHOOD, LIKELIHOOD_LSS)", s)
	}
	return f, nil
}

// ParseConnectivityMetric parses a case-insensitive connectivity metric name.
func ParseConnectivityMetric(s string) (ConnectivityMetric, error) {
	m := ConnectivityMetric(normalize(s))
	if !m.Valid() {
		return "", fmt.Errorf("invalid connectivity metric %q (valid: JUMP_PROBABILITY, HUMAN_ACTIVITY_MAX, HUMAN_ACTIVITY_MEAN)", s)
	}
	return m, nil
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
