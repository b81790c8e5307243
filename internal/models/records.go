package models

import "github.com/nvandessel/spread/internal/constants"

// MapRecord describes one spatial cell.
type MapRecord struct {
	ID           int     `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Area         float64 `json:"area"`
	SuitableArea float64 `json:"suitable_area"`

	// Covariates are optional; HasCovariates is false when the record
	// carried only the five mandatory columns.
	HasCovariates     bool    `json:"has_covariates"`
	Population        float64 `json:"population,omitempty"`
	PopulationDensity float64 `json:"population_density,omitempty"`
	RoadDensity       float64 `json:"road_density,omitempty"`
}

// NetworkRecord describes the road connection between two cells. Either id
// may be constants.SinkID.
type NetworkRecord struct {
	ID1   int                               `json:"id1"`
	ID2   int                               `json:"id2"`
	Roads [constants.RoadCategories]float64 `json:"roads"`
}

// SampleRecord carries field observations for one cell.
type SampleRecord struct {
	ID   int     `json:"id"`
	YObs float64 `json:"y_obs"`
	NObs float64 `json:"n_obs"`
}

// LineageEvent records one successful jump.
type LineageEvent struct {
	Repetition int     `json:"repetition"`
	StartID    int     `json:"start_id"`
	EndID      int     `json:"end_id"`
	Hops       int     `json:"hops"`
	Euclidean  float64 `json:"euclidean"`
	Iteration  int     `json:"iteration"`
}
