package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"

	"github.com/nvandessel/spread/internal/config"
	"github.com/nvandessel/spread/internal/graph"
	"github.com/nvandessel/spread/internal/loader"
	"github.com/nvandessel/spread/internal/logging"
	"github.com/nvandessel/spread/internal/models"
	"github.com/nvandessel/spread/internal/prng"
	"github.com/spf13/cobra"
)

// addModelFlags registers the input and parameter flags shared by every
// command that builds a graph. Flags override the config file.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("map", "", "Map file (id x y area suitable [population density roads])")
	cmd.Flags().String("network", "", "Network file (id1 id2 r1..r6, -1 for outside the map)")
	cmd.Flags().String("sample", "", "Sample file (id y n)")
	cmd.Flags().Uint64("seed", 0, "PRNG seed")
	cmd.Flags().Int("repetitions", 0, "Number of repetitions")
	cmd.Flags().Int("iterations", 0, "Number of iterations")
	cmd.Flags().Float64("lambda", 0, "Mean jump count per occupied node and iteration")
	cmd.Flags().Float64("mu", 0, "Jump distance location parameter")
	cmd.Flags().String("jump-law", "", "Jump law: DIRAC, NORMAL, LOGNORMAL or CAUCHY")
	cmd.Flags().String("score-function", "", "Score function: LSS, LOG_LIKELIHOOD or LIKELIHOOD_LSS")
	cmd.Flags().Int("workers", 0, "Repetitions simulated concurrently (1 = sequential)")
}

// resolveConfig loads the config file named by --config, or the default
// location, and applies command-line overrides. The result is not validated.
func resolveConfig(cmd *cobra.Command) (*config.SpreadConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.SpreadConfig
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.SpreadConfig) error {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	integer := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}
	float := func(name string, dst *float64) {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}

	str("map", &cfg.Inputs.Map)
	str("network", &cfg.Inputs.Network)
	str("sample", &cfg.Inputs.Sample)
	if flags.Changed("seed") {
		cfg.Model.Seed, _ = flags.GetUint64("seed")
	}
	integer("repetitions", &cfg.Model.Repetitions)
	integer("iterations", &cfg.Model.Iterations)
	float("lambda", &cfg.Model.Lambda)
	float("mu", &cfg.Model.Mu)
	integer("workers", &cfg.Run.Workers)

	if flags.Changed("jump-law") {
		s, _ := flags.GetString("jump-law")
		law, err := models.ParseJumpLaw(s)
		if err != nil {
			return err
		}
		cfg.Model.JumpLaw = law
	}
	if flags.Changed("score-function") {
		s, _ := flags.GetString("score-function")
		fn, err := models.ParseScoreFunction(s)
		if err != nil {
			return err
		}
		cfg.Model.ScoreFunction = fn
	}

	// Run-only flags; absent on other commands.
	if flags.Changed("save-outputs") {
		cfg.Run.SaveOutputs, _ = flags.GetBool("save-outputs")
	}
	str("output-dir", &cfg.Run.OutputDir)
	integer("save-every", &cfg.Run.SaveEvery)
	str("store", &cfg.Run.Store)
	str("plot", &cfg.Run.Plot)

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		cfg.Logging.Level = strings.ToLower(level)
	}
	return nil
}

// loadInputs reads the record files named by the config. The sample file is
// optional.
func loadInputs(in config.InputsConfig) (loader.Inputs, error) {
	if in.Map == "" || in.Network == "" {
		return loader.Inputs{}, fmt.Errorf("map and network files are required (--map, --network, or inputs in the config file)")
	}
	var out loader.Inputs
	var err error
	if out.Maps, err = loader.LoadMap(in.Map); err != nil {
		return loader.Inputs{}, err
	}
	if out.Network, err = loader.LoadNetwork(in.Network); err != nil {
		return loader.Inputs{}, err
	}
	if in.Sample != "" {
		if out.Samples, err = loader.LoadSample(in.Sample); err != nil {
			return loader.Inputs{}, err
		}
	}
	return out, nil
}

// session is a built graph together with the stream it was seeded from.
type session struct {
	cfg    *config.SpreadConfig
	params models.Parameters
	inputs loader.Inputs
	graph  *graph.Graph
	src    *prng.Source
	logger *slog.Logger
}

// openSession resolves configuration, loads the inputs and builds the graph.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	params, err := cfg.ToParameters()
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	inputs, err := loadInputs(cfg.Inputs)
	if err != nil {
		return nil, err
	}
	src := prng.New(params.Seed)
	g, err := graph.Build(params, src, inputs.Maps, inputs.Network, inputs.Samples)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	stats := g.Stats()
	logger.Info("graph built",
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"sink_edges", stats.SinkEdges,
		"sampled", stats.Sampled,
		"introduction", g.IntroductionNode().ID,
		"empty_score", g.EmptyScore())

	return &session{cfg: cfg, params: params, inputs: inputs, graph: g, src: src, logger: logger}, nil
}

// signalContext returns a context cancelled on SIGINT (and SIGTERM on Unix).
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}

// finite returns nil for NaN and infinite values so they encode as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
