// Package store defines the RunStore interface for recording finished
// simulation runs: their parameters, scores, final node states and lineage.
// The run log is write-mostly; nothing in it is read back into a simulation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is the summary row of one simulation run.
type Run struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Parameters models.Parameters `json:"parameters"`

	MapFile     string `json:"map_file,omitempty"`
	NetworkFile string `json:"network_file,omitempty"`
	SampleFile  string `json:"sample_file,omitempty"`

	// EmptyScore is NaN when the run had no observations.
	EmptyScore float64 `json:"empty_score"`
	Score      float64 `json:"score"`
	Nodes      int     `json:"nodes"`
	Jumps      int     `json:"jumps"`
}

// Record is everything saved for one run.
type Record struct {
	Run     Run
	States  []graph.NodeState
	Lineage []models.LineageEvent
}

// RunStore persists run records.
type RunStore interface {
	// SaveRun stores rec and returns its run id. An empty Run.ID is replaced
	// by a fresh UUID.
	SaveRun(ctx context.Context, rec Record) (string, error)

	// GetRun returns the summary row of a run, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// NodeStates returns the saved node rows of a run in load order.
	NodeStates(ctx context.Context, id string) ([]graph.NodeState, error)

	// Lineage returns the saved lineage events of a run in record order.
	Lineage(ctx context.Context, id string) ([]models.LineageEvent, error)

	// DeleteRun removes a run and everything attached to it.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}
