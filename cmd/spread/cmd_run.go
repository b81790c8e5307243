package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/nvandessel/spread/internal/export"
	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/logging"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/simulation"
	"github.com/nvandessel/spread/internal/store"
	"github.com/nvandessel/spread/internal/visualization"
	"github.com/spf13/cobra"
)

// runSummary is the --json output of spread run. Undefined scores are null.
type runSummary struct {
	RunID      string   `json:"run_id,omitempty"`
	EmptyScore *float64 `json:"empty_score"`
	Score      *float64 `json:"score"`
	Iterations int      `json:"iterations"`
	Jumps      int      `json:"jumps"`
	Occupied   float64  `json:"occupied_fraction"`
	OutputDir  string   `json:"output_dir,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate spread and print the empty and final scores",
		Long: `Build the graph from the map, network and sample files, simulate every
repetition for the configured number of iterations, and print
"<empty_score> <score>" on stdout. Logs go to stderr.

Examples:
  spread run --map map.txt --network network.txt --sample sample.txt
  spread run --config spread.yaml --lambda 2.5 --save-outputs --output-dir out/
  spread run --config spread.yaml --store .spread/runs.db --plot occupancy.png`,
		Args: cobra.NoArgs,
		RunE: runSimulation,
	}
	addModelFlags(cmd)
	cmd.Flags().Bool("save-outputs", false, "Write parameters, final state and lineage tables to the output directory")
	cmd.Flags().String("output-dir", "", "Output directory (default from config: output)")
	cmd.Flags().Int("save-every", 0, "Write a state table every k iterations (0 = never)")
	cmd.Flags().String("store", "", "Record the run in this SQLite run log")
	cmd.Flags().String("plot", "", "Write the occupancy curve as PNG to this path")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	cfg, g, logger := sess.cfg, sess.graph, sess.logger

	trace := logging.NewTraceLogger(cfg.Run.OutputDir, cfg.Logging.Level)
	defer trace.Close()
	if trace != nil {
		logger.Debug("tracing iterations", "path", trace.Path())
	}

	started := time.Now()
	occupied := []float64{g.OccupiedFraction()}
	jumps := 0
	sim := simulation.New(g, sess.src, simulation.Options{
		Workers:       cfg.Run.Workers,
		RecordLineage: cfg.Run.SaveOutputs || cfg.Run.Store != "",
		OnIteration: func(res simulation.IterationResult) error {
			occupied = append(occupied, res.Occupied)
			jumps += res.Jumps
			if cfg.Run.SaveEvery > 0 && res.Iteration%cfg.Run.SaveEvery == 0 {
				path := filepath.Join(cfg.Run.OutputDir, export.IterationStateFile(res.Iteration))
				return export.WriteFile(path, func(w io.Writer) error {
					return export.WriteState(w, g.Snapshot())
				})
			}
			return nil
		},
	})
	sim.SetLogger(logger, trace)

	ctx, stop := signalContext()
	defer stop()
	if err := sim.Run(ctx); err != nil {
		return err
	}

	score, err := sim.ComputeScore()
	switch {
	case errors.Is(err, graph.ErrNoObservations):
		logger.Warn("no sampled nodes, score is undefined")
		score = math.NaN()
	case err != nil:
		return err
	}
	empty := g.EmptyScore()
	snap := g.Snapshot()

	if cfg.Run.SaveOutputs {
		in := export.Inputs{Map: cfg.Inputs.Map, Network: cfg.Inputs.Network, Sample: cfg.Inputs.Sample}
		if err := saveOutputs(cfg.Run.OutputDir, sess.params, in, snap, sim.Lineage()); err != nil {
			return err
		}
		logger.Info("outputs written", "dir", cfg.Run.OutputDir)
	}

	if cfg.Run.Plot != "" {
		if len(occupied) < 2 {
			logger.Warn("occupancy curve needs at least one iteration, skipping plot")
		} else {
			if err := export.WriteFile(cfg.Run.Plot, func(w io.Writer) error {
				return visualization.RenderOccupancyPNG(w, occupied)
			}); err != nil {
				return err
			}
			logger.Info("occupancy curve written", "path", cfg.Run.Plot)
		}
	}

	var runID string
	if cfg.Run.Store != "" {
		rec := store.Record{
			Run: store.Run{
				StartedAt:   started,
				FinishedAt:  time.Now(),
				Parameters:  sess.params,
				MapFile:     cfg.Inputs.Map,
				NetworkFile: cfg.Inputs.Network,
				SampleFile:  cfg.Inputs.Sample,
				EmptyScore:  empty,
				Score:       score,
				Jumps:       jumps,
			},
			States:  snap.Nodes,
			Lineage: sim.Lineage(),
		}
		if runID, err = recordRun(ctx, cfg.Run.Store, rec); err != nil {
			return err
		}
		logger.Info("run recorded", "id", runID, "store", cfg.Run.Store)
	}

	if jsonOut {
		summary := runSummary{
			RunID:      runID,
			EmptyScore: finite(empty),
			Score:      finite(score),
			Iterations: sim.Iteration(),
			Jumps:      jumps,
			Occupied:   g.OccupiedFraction(),
		}
		if cfg.Run.SaveOutputs {
			summary.OutputDir = cfg.Run.OutputDir
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
	}
	return export.WriteScore(cmd.OutOrStdout(), empty, score)
}

// saveOutputs writes the parameters file, final state table and lineage
// table into dir.
func saveOutputs(dir string, p models.Parameters, in export.Inputs, snap graph.Snapshot, lineage []models.LineageEvent) error {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{export.ParametersFile, func(w io.Writer) error { return export.WriteParameters(w, p, in) }},
		{export.FinalStateFile, func(w io.Writer) error { return export.WriteState(w, snap) }},
		{export.LineageFile, func(w io.Writer) error { return export.WriteLineage(w, lineage) }},
	}
	for _, f := range files {
		if err := export.WriteFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}
	return nil
}

func recordRun(ctx context.Context, path string, rec store.Record) (string, error) {
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return "", fmt.Errorf("open run log: %w", err)
	}
	defer s.Close()
	return s.SaveRun(ctx, rec)
}
