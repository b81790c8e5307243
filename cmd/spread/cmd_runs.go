package main

import (
	"encoding/json"
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/spread/internal/export"
	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the SQLite run log",
		Long: `List, show, export, delete and back up runs recorded with spread run --store.

The run log defaults to the run.store config setting, or .spread/runs.db in
the current directory.

Examples:
  spread runs list --limit 10
  spread runs show 3f2a...
  spread runs export 3f2a... --output-dir out/
  spread runs delete 3f2a...
  spread runs backup --keep 5`,
	}
	cmd.PersistentFlags().String("store", "", "Run log path")

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsExportCmd(),
		newRunsDeleteCmd(),
		newRunsBackupCmd(),
		newRunsRestoreCmd(),
	)
	return cmd
}

// openRunStore opens the run log named by --store, the config, or the
// default project location, in that order.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	path, _ := cmd.Flags().GetString("store")
	if path == "" {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Run.Store
	}
	if path == "" {
		path = store.LocalRunsPath(".")
	}
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return s, nil
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if jsonOut {
				out := make([]runJSON, len(runs))
				for i, r := range runs {
					out[i] = toRunJSON(r)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  out,
					"count": len(out),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSEED\tREPS\tITERS\tNODES\tEMPTY\tSCORE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Parameters.Seed,
					r.Parameters.Repetitions, r.Parameters.Iterations, r.Nodes,
					formatScore(r.EmptyScore), formatScore(r.Score))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs (0 = all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			lineage, err := s.Lineage(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run":             toRunJSON(*run),
					"lineage_events":  len(lineage),
					"max_jump_length": maxEuclidean(lineage),
				})
			}

			out := cmd.OutOrStdout()
			p := run.Parameters
			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "  started:      %s (%s)\n", run.StartedAt.Local().Format(time.DateTime), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
			fmt.Fprintf(out, "  inputs:       map=%s network=%s sample=%s\n", valueOrDefault(run.MapFile, "-"), valueOrDefault(run.NetworkFile, "-"), valueOrDefault(run.SampleFile, "-"))
			fmt.Fprintf(out, "  model:        seed=%d reps=%d iters=%d lambda=%g mu=%g sigma=%g gamma=%g law=%s\n",
				p.Seed, p.Repetitions, p.Iterations, p.Lambda, p.Mu, p.Sigma, p.Gamma, p.JumpLaw)
			fmt.Fprintf(out, "  scoring:      %s %s\n", p.DataType, p.ScoreFunction)
			fmt.Fprintf(out, "  nodes:        %d\n", run.Nodes)
			fmt.Fprintf(out, "  jumps:        %d (%d recorded introductions)\n", run.Jumps, len(lineage))
			fmt.Fprintf(out, "  empty score:  %s\n", formatScore(run.EmptyScore))
			fmt.Fprintf(out, "  score:        %s\n", formatScore(run.Score))
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the state and lineage tables of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("output-dir")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			states, err := s.NodeStates(ctx, run.ID)
			if err != nil {
				return err
			}
			lineage, err := s.Lineage(ctx, run.ID)
			if err != nil {
				return err
			}

			snap := graph.Snapshot{EmptyScore: run.EmptyScore, Score: run.Score, Nodes: states}
			in := export.Inputs{Map: run.MapFile, Network: run.NetworkFile, Sample: run.SampleFile}
			if err := saveOutputs(dir, run.Parameters, in, snap, lineage); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s exported to %s\n", run.ID, dir)
			return nil
		},
	}
	cmd.Flags().String("output-dir", "output", "Directory for the exported tables")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

// runJSON is a store.Run with undefined scores encoded as null.
type runJSON struct {
	store.Run
	EmptyScore *float64 `json:"empty_score"`
	Score      *float64 `json:"score"`
}

func toRunJSON(r store.Run) runJSON {
	return runJSON{Run: r, EmptyScore: finite(r.EmptyScore), Score: finite(r.Score)}
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}

func maxEuclidean(events []models.LineageEvent) float64 {
	longest := 0.0
	for _, e := range events {
		longest = math.Max(longest, e.Euclidean)
	}
	return longest
}

func valueOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
