package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/liftsim/internal/automation"
	"github.com/san-kum/liftsim/internal/config"
	"github.com/san-kum/liftsim/internal/experiment"
	"github.com/san-kum/liftsim/internal/logging"
	"github.com/san-kum/liftsim/internal/metrics"
	"github.com/san-kum/liftsim/internal/optim"
	"github.com/san-kum/liftsim/internal/store"
)

func scenarioConfig(cfg *config.Config) experiment.Config {
	return experiment.Config{
		Constants:     cfg.Station,
		Controls:      cfg.Controls,
		InitialVolume: initialVolume,
		Duration:      duration,
		Samples:       samples,
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	solver, err := newSolver(cfg)
	if err != nil {
		return err
	}

	e, err := experiment.New(scenarioConfig(cfg), solver,
		experiment.WithMetrics(metrics.Standard()...),
		experiment.WithLogger(log),
	)
	if err != nil {
		return err
	}

	res, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}

	if outPath != "" {
		data := store.ExportData{
			Solver:    cfg.Solver.Method,
			Constants: cfg.Station,
			Controls:  cfg.Controls,
			Result:    res,
		}
		if err := store.Export(outPath, data); err != nil {
			return err
		}
		log.Info().Str("path", outPath).Msg("result exported")
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	experiment.WriteTable(out, res)
	if plot {
		fmt.Fprintf(out, "\n%s\n", experiment.Plot(res, 60, 12))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, expr := range sweepRanges {
		name, values, err := optim.ParseRange(expr)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	solver, err := newSolver(cfg)
	if err != nil {
		return err
	}

	points := 0
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		points++
		ecfg := scenarioConfig(cfg)
		if err := optim.Apply(&ecfg, params); err != nil {
			return nil, err
		}
		return experiment.New(ecfg, solver, experiment.WithMetrics(metrics.Standard()...))
	}

	best, val, err := optim.NewGridSearch(names, ranges).Search(cmd.Context(), build, sweepMetric)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "evaluated %d grid points\n", points)
	fmt.Fprintf(out, "best %s = %g\n", sweepMetric, val)
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-16s %g\n", k, best[k])
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	solver, err := newSolver(cfg)
	if err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), sc, cfg, solver, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", sc.Name)
	fmt.Fprintln(w, "STEP\tSTART (min)\tEND VOLUME (L)\tCAPACITY AT")
	for _, r := range results {
		at := "-"
		if r.Result.Reached {
			at = fmt.Sprintf("%.2f", r.StartTime+r.Result.EventTime)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n", r.Name, r.StartTime, r.FinalVolume(), at)
	}
	return w.Flush()
}
