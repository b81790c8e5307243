// Package export writes the flat, space-delimited result files of a run: the
// node state table, the lineage table, the parameters file and the score line.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/models"
)

// Output file names inside a run's output directory.
const (
	ParametersFile = "parameters.txt"
	FinalStateFile = "final_state.txt"
	LineageFile    = "lineage_tree.txt"
)

// IterationStateFile names the state dump written after iteration i.
func IterationStateFile(i int) string {
	return fmt.Sprintf("state_%04d.txt", i)
}

// Inputs names the record files a run was built from.
type Inputs struct {
	Map     string
	Network string
	Sample  string
}

var stateHeader = []string{
	"id", "x", "y", "weight_sum", "connectivity",
	"y_obs", "n_obs", "p_obs",
	"n_sim", "y_sim", "p_sim",
	"total_intro", "mean_intro", "var_intro",
	"mean_first_age", "var_first_age", "mean_last_age", "var_last_age",
	"likelihood", "max_likelihood", "score",
	"empty_score", "final_score",
}

var lineageHeader = []string{"rep", "start", "end", "hops", "euclidean", "iteration"}

// WriteState writes one row per node followed by the graph-level empty and
// final scores repeated on every row.
func WriteState(w io.Writer, snap graph.Snapshot) error {
	cw := newWriter(w)
	if err := cw.Write(stateHeader); err != nil {
		return fmt.Errorf("write state header: %w", err)
	}
	for _, n := range snap.Nodes {
		row := []string{
			strconv.Itoa(n.ID), ff(n.X), ff(n.Y), ff(n.WeightSum), ff(n.Connectivity),
			ff(n.YObs), ff(n.NObs), ff(n.PObs),
			ff(n.NSim), ff(n.YSim), ff(n.PSim),
			strconv.FormatInt(n.TotalIntroductions, 10), ff(n.MeanIntroductions), ff(n.VarIntroductions),
			ff(n.MeanFirstAge), ff(n.VarFirstAge), ff(n.MeanLastAge), ff(n.VarLastAge),
			ff(n.Likelihood), ff(n.MaxLikelihood), ff(n.Score),
			ff(snap.EmptyScore), ff(snap.Score),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write state row for node %d: %w", n.ID, err)
		}
	}
	return flush(cw)
}

// WriteLineage writes one row per successful jump.
func WriteLineage(w io.Writer, events []models.LineageEvent) error {
	cw := newWriter(w)
	if err := cw.Write(lineageHeader); err != nil {
		return fmt.Errorf("write lineage header: %w", err)
	}
	for _, e := range events {
		row := []string{
			strconv.Itoa(e.Repetition), strconv.Itoa(e.StartID), strconv.Itoa(e.EndID),
			strconv.Itoa(e.Hops), ff(e.Euclidean), strconv.Itoa(e.Iteration),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write lineage row: %w", err)
		}
	}
	return flush(cw)
}

// WriteSample writes sample records as "id y n" rows without a header, in
// the form the sample loader reads back.
func WriteSample(w io.Writer, samples []models.SampleRecord) error {
	cw := newWriter(w)
	for _, s := range samples {
		if err := cw.Write([]string{strconv.Itoa(s.ID), ff(s.YObs), ff(s.NObs)}); err != nil {
			return fmt.Errorf("write sample row for node %d: %w", s.ID, err)
		}
	}
	return flush(cw)
}

// WriteParameters writes a header line and a single value line describing the
// run configuration.
func WriteParameters(w io.Writer, p models.Parameters, in Inputs) error {
	header := []string{
		"seed", "type_of_data", "score_function", "log_score", "map", "network", "sample",
		"repetitions", "iterations", "x_introduction", "y_introduction", "p_introduction",
		"lambda", "mu", "sigma", "gamma", "jump_law",
	}
	values := []string{
		strconv.FormatUint(p.Seed, 10), string(p.DataType), string(p.ScoreFunction), strconv.FormatBool(p.LogScore),
		orDash(in.Map), orDash(in.Network), orDash(in.Sample),
		strconv.Itoa(p.Repetitions), strconv.Itoa(p.Iterations),
		ff(p.IntroductionX), ff(p.IntroductionY), ff(p.IntroductionProbability),
		ff(p.Lambda), ff(p.Mu), ff(p.Sigma), ff(p.Gamma), string(p.JumpLaw),
	}
	for i, wgt := range p.RoadWeights {
		header = append(header, fmt.Sprintf("road%d_weight", i+1))
		values = append(values, ff(wgt))
	}
	header = append(header, "minimal_connectivity", "connectivity", "track_invasion_age")
	values = append(values, ff(p.MinimalConnectivity), string(p.Connectivity), strconv.FormatBool(p.TrackInvasionAge))

	cw := newWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write parameters header: %w", err)
	}
	if err := cw.Write(values); err != nil {
		return fmt.Errorf("write parameters: %w", err)
	}
	return flush(cw)
}

// WriteScore writes the "<empty_score> <score>" line read by optimizers.
func WriteScore(w io.Writer, empty, score float64) error {
	_, err := fmt.Fprintf(w, "%s %s\n", ff(empty), ff(score))
	return err
}

// WriteFile creates path, including parent directories, and fills it with write.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ' '
	return cw
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
