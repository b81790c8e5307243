// Package constants provides named constants used throughout the spread codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

import "math"

// Input record constants
const (
	// SinkID is the sentinel node id used in network records for "outside the
	// modeled area". An edge to SinkID absorbs jumps and never hosts an
	// introduction.
	SinkID = -1

	// RoadCategories is the number of road-count columns in a network record.
	RoadCategories = 6

	// MapRecordFields is the number of mandatory columns in a map record.
	MapRecordFields = 5

	// MapRecordFieldsWithCovariates is the column count of a map record that
	// also carries population, population density and road density.
	MapRecordFieldsWithCovariates = 8

	// NetworkRecordFields is the column count of a network record.
	NetworkRecordFields = 2 + RoadCategories

	// SampleRecordFields is the column count of a sample record.
	SampleRecordFields = 3
)

// Simulation defaults
const (
	// DefaultRepetitions is the number of stochastic replicates per run.
	DefaultRepetitions = 100

	// DefaultIterations is the number of discrete time steps per run.
	DefaultIterations = 10

	// DefaultIntroductionProbability founds the introduction node in every repetition.
	DefaultIntroductionProbability = 1.0

	// DefaultMinimalConnectivity is the floor applied to every edge weight.
	DefaultMinimalConnectivity = 0.0

	// DefaultLambda is the mean number of jumps per occupied cell per iteration.
	DefaultLambda = 1.0

	// DefaultMu is the default location parameter of the jump distance law.
	DefaultMu = 1.0

	// DefaultSeed is used when no seed is configured.
	DefaultSeed = 1
)

// Scoring constants
var (
	// PresenceOnlyLogFloor is the presence-only score reported when the sum of
	// squared residuals is zero and a log10 transform is requested.
	PresenceOnlyLogFloor = math.Log10(math.SmallestNonzeroFloat64)
)

// Invasion age sentinels
const (
	// NoInvasionAge marks a repetition in which a node was never reached.
	NoInvasionAge = -1

	// FoundingAge is the invasion age recorded for the initial introduction.
	FoundingAge = 0
)

// Sampling defaults for artificial data generation.
const (
	// DefaultSampleSize is the number of homogeneous draws when none is given.
	DefaultSampleSize = 1000
)
