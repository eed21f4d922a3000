package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/liftsim/internal/config"
)

var (
	configFile string
	envFile    string
	preset     string
	logLevel   string
	logFormat  string
	logFile    string

	transportName string
	brokerHost    string
	brokerPort    int
	solverMethod  string
	tolerance     float64
	tick          string
	httpAddr      string
	dashboard     bool
	inline        bool

	duration      float64
	samples       int
	initialVolume float64
	asJSON        bool
	plot          bool
	outPath       string

	sweepRanges []string
	sweepMetric string

	writePath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "liftsim",
		Short:         "real-time lift station simulator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before LIFTSIM_* variables")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "initial control preset")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (console|json)")
	rootCmd.PersistentFlags().StringVar(&solverMethod, "solver", config.DefaultSolver, "integrator (euler|exact|rk4|rk45)")
	rootCmd.PersistentFlags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "adaptive solver tolerance")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the simulation in real time against a broker",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	runCmd.Flags().StringVar(&transportName, "transport", config.DefaultTransport, "transport (mqtt|kafka|none)")
	runCmd.Flags().StringVar(&brokerHost, "broker-host", config.DefaultBrokerHost, "broker host")
	runCmd.Flags().IntVar(&brokerPort, "broker-port", config.DefaultBrokerPort, "broker port")
	runCmd.Flags().StringVar(&tick, "tick", config.DefaultTick.String(), "wall-clock segment length")
	runCmd.Flags().StringVar(&httpAddr, "http", config.DefaultHTTPAddr, "status/metrics listen address, empty to disable")
	runCmd.Flags().BoolVar(&dashboard, "dashboard", false, "show the interactive dashboard")
	runCmd.Flags().BoolVar(&inline, "inline", true, "rewrite the status line in place")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")

	scenarioCmd := &cobra.Command{
		Use:   "scenario",
		Short: "run the offline fill scenario",
		Args:  cobra.NoArgs,
		RunE:  runScenario,
	}
	scenarioCmd.Flags().Float64Var(&duration, "duration", 300, "simulated minutes")
	scenarioCmd.Flags().IntVar(&samples, "samples", 31, "sample points including t=0")
	scenarioCmd.Flags().Float64Var(&initialVolume, "initial", 0, "initial volume in liters")
	scenarioCmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	scenarioCmd.Flags().BoolVar(&plot, "plot", true, "plot the sampled volume")
	scenarioCmd.Flags().StringVar(&outPath, "out", "", "also export the result (.json, .csv or .svg)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid-search station parameters against a scenario metric",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringArrayVar(&sweepRanges, "param", nil, "parameter grid as name=start:stop:step (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "overflow_fraction", "metric to minimize")
	sweepCmd.Flags().Float64Var(&duration, "duration", 300, "simulated minutes per point")
	sweepCmd.Flags().IntVar(&samples, "samples", 31, "sample points including t=0")
	_ = sweepCmd.MarkFlagRequired("param")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a scripted multi-step scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list initial control presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTANKS\tPUMP\tOUTFLOW\tNET L/min\tDESCRIPTION")
			constants := config.DefaultConfig().Station
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				c := p.Controls
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%+g\t%s\n", name, c.ActiveTanks, c.PumpOn, c.FabOutflow,
					c.Inflow()-c.Outflow(constants.PumpFlowRate), p.Description)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if writePath != "" {
				return config.Save(writePath, cfg)
			}
			out := yaml.NewEncoder(cmd.OutOrStdout())
			out.SetIndent(2)
			defer out.Close()
			return out.Encode(cfg)
		},
	}
	configCmd.Flags().StringVar(&writePath, "write", "", "save to this path instead of printing")

	rootCmd.AddCommand(runCmd, scenarioCmd, sweepCmd, scriptCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// resolveConfig layers defaults, the config file, the environment, the
// preset and finally explicitly set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		p.Apply(cfg)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("solver") {
		cfg.Solver.Method = solverMethod
	}
	if flags.Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("transport") {
		cfg.Transport = transportName
	}
	if flags.Changed("broker-host") {
		cfg.Broker.Host = brokerHost
	}
	if flags.Changed("broker-port") {
		cfg.Broker.Port = brokerPort
	}
	if flags.Changed("http") {
		cfg.HTTPAddr = httpAddr
	}
	if flags.Changed("tick") {
		d, err := parseDuration(tick)
		if err != nil {
			return nil, err
		}
		cfg.Tick = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	atexit.Register(func() { f.Close() })
	return f, nil
}
