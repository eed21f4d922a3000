package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/logging"
	"github.com/san-kum/liftsim/internal/metrics"
	"github.com/san-kum/liftsim/internal/report"
	"github.com/san-kum/liftsim/internal/server"
	"github.com/san-kum/liftsim/internal/sim"
	"github.com/san-kum/liftsim/internal/viz"
)

const dashboardBuffer = 16

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	switch {
	case logFile != "":
		f, err := openLogFile(logFile)
		if err != nil {
			return err
		}
		logOut = f
	case dashboard:
		// The dashboard owns the terminal.
		logOut = io.Discard
	}
	log, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log = log.With().Str("run", xid.New().String()).Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker, err := openBroker(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("transport", cfg.Transport).Msg("Could not connect to broker")
		return err
	}
	atexit.Register(func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg("broker close")
		}
	})

	store := control.NewStore(cfg.Station, cfg.Controls)
	recorder := metrics.NewRecorder()
	clock := sim.NewClock()

	ingestor := control.NewIngestor(store, cfg.Topics,
		control.WithLogger(log),
		control.WithClock(clock.Minutes),
		control.WithUpdateHook(recorder.ControlUpdate),
	)
	if err := broker.Subscribe(ctx, ingestor.Topics(), ingestor.Handle); err != nil {
		return err
	}

	solver, err := newSolver(cfg)
	if err != nil {
		return err
	}

	sinks := []sim.Sink{
		report.NewPublisher(broker,
			report.WithTopic(cfg.VolumeTopic),
			report.WithTimeout(cfg.PublishTimeout),
			report.WithLogger(log),
			report.WithFailureHook(recorder.PublishFailed),
		),
		recorder,
		clock,
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(recorder.Handler(), log)
		sinks = append(sinks, srv)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	var feed *viz.Feed
	if dashboard {
		feed = viz.NewFeed(dashboardBuffer)
		sinks = append(sinks, feed)
	} else {
		sinks = append(sinks, report.NewConsole(os.Stdout, inline, true))
	}

	sched := sim.NewScheduler(store, solver,
		sim.WithSinks(sinks...),
		sim.WithInterval(cfg.Tick),
		sim.WithLogger(log),
	)

	log.Info().
		Float64("capacity", cfg.Station.TotalCapacity()).
		Str("solver", cfg.Solver.Method).
		Msg("starting lift station simulation")

	if !dashboard {
		return sched.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- sched.Run(ctx)
		feed.Close()
	}()

	uiErr := viz.Run(ctx, viz.NewModel(feed.C(), store))
	cancel()
	simErr := <-errc
	log.Info().Int64("dropped_frames", feed.Dropped()).Msg("dashboard closed")
	return errors.Join(simErr, uiErr)
}
