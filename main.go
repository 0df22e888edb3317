package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/cmfunderburk/vmt-dev-sub002/scenario"
	"github.com/cmfunderburk/vmt-dev-sub002/sim"
	"github.com/cmfunderburk/vmt-dev-sub002/telemetry"
)

func main() {
	// CLI flags
	scenarioPath := flag.String("scenario", "", "Path to scenario.yaml (empty = embedded defaults)")
	seed := flag.Int64("seed", 0, "Override scenario seed (0 = use scenario)")
	ticks := flag.Int64("ticks", 1000, "Number of ticks to run")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and scenario snapshot")
	logDigest := flag.Bool("log-digest", false, "Log the state digest at the end of the run")
	logTimings := flag.Bool("log-timings", false, "Log cumulative per-phase wall time")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	scn, err := scenario.Load(*scenarioPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		scn.Seed = *seed
	}

	sink, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to set up output", "error", err)
		os.Exit(1)
	}
	if sink != nil {
		defer sink.Close()
		if err := sink.WriteScenario(scn); err != nil {
			slog.Error("failed to write scenario snapshot", "error", err)
			os.Exit(1)
		}
	}

	opts := sim.Options{Logger: logger}
	if sink != nil {
		opts.Sink = sink
	}
	s, err := sim.New(scn, opts)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", scn.Seed,
		"agents", s.AgentCount(),
		"goods", len(scn.Goods),
		"exchange", scn.Regime.Exchange,
		"ticks", *ticks,
	)

	s.Run(*ticks)

	slog.Info("simulation finished", "tick", s.Tick(), "agents", s.AgentCount())

	if *logDigest {
		slog.Info("state digest", "tick", s.Tick(), "digest", s.Digest())
	}
	if *logTimings {
		timings := s.PhaseTimings()
		for _, id := range s.PhaseRegistry().IDs() {
			slog.Info("phase timing", "phase", id, "total", timings[id])
		}
	}
}
