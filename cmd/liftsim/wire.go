package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/config"
	"github.com/san-kum/liftsim/internal/integrators"
	"github.com/san-kum/liftsim/internal/sim"
	"github.com/san-kum/liftsim/internal/transport"
	"github.com/san-kum/liftsim/internal/transport/kafka"
	"github.com/san-kum/liftsim/internal/transport/memory"
	"github.com/san-kum/liftsim/internal/transport/mqtt"
)

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func newSolver(cfg *config.Config) (*sim.SegmentSolver, error) {
	integ, err := integrators.New(cfg.Solver.Method)
	if err != nil {
		return nil, err
	}
	return sim.NewSegmentSolver(integ,
		sim.WithTolerance(cfg.Solver.Tolerance),
		sim.WithSubsteps(cfg.Solver.Substeps),
	), nil
}

func openBroker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (transport.Broker, error) {
	switch cfg.Transport {
	case config.TransportMQTT:
		return mqtt.Dial(ctx, mqtt.Config{
			Host:     cfg.Broker.Host,
			Port:     cfg.Broker.Port,
			Username: cfg.Broker.Username,
			Password: cfg.Broker.Password,
		}, log)
	case config.TransportKafka:
		return kafka.New(kafka.Config{
			Brokers: cfg.Broker.KafkaBrokers,
			GroupID: cfg.Broker.KafkaGroup,
		}, log), nil
	case config.TransportNone:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown transport: %s", cfg.Transport)
}
