package graph

import "errors"

// Load-time errors abort the build; the corrupted input invalidates every
// downstream statistic, so nothing is repaired silently.
var (
	ErrDuplicateNode     = errors.New("duplicate node id")
	ErrUnknownNode       = errors.New("unknown node id")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrEmptyGraph        = errors.New("graph has no nodes")
	ErrMissingCovariates = errors.New("missing covariates")
)

// ErrSelectionFailed signals an internal bookkeeping fault: a positive
// selectable weight sum that no edge crossed during roulette-wheel selection.
var ErrSelectionFailed = errors.New("roulette wheel selection failed")

// ErrNoObservations is returned when a presence-absence score is requested
// but no node carries a sample with n_obs > 0.
var ErrNoObservations = errors.New("no sampled nodes")
