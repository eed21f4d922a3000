package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/integrators"
	"github.com/san-kum/liftsim/internal/physics"
	"github.com/san-kum/liftsim/internal/report"
)

const (
	DefaultBrokerHost     = "localhost"
	DefaultBrokerPort     = 1883
	DefaultKafkaBroker    = "localhost:9092"
	DefaultKafkaGroup     = "liftsim"
	DefaultTransport      = TransportMQTT
	DefaultSolver         = "rk45"
	DefaultTolerance      = 1e-6
	DefaultSubsteps       = 10
	DefaultTick           = time.Second
	DefaultHTTPAddr       = ":9110"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultPublishTimeout = report.DefaultPublishTimeout
)

const (
	TransportMQTT  = "mqtt"
	TransportKafka = "kafka"
	TransportNone  = "none"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Transport      string            `yaml:"transport"`
	Broker         BrokerConfig      `yaml:"broker"`
	Topics         control.Topics    `yaml:"topics"`
	VolumeTopic    string            `yaml:"volume_topic"`
	Station        physics.Constants `yaml:"station"`
	Controls       physics.Controls  `yaml:"controls"`
	Solver         SolverConfig      `yaml:"solver"`
	Tick           time.Duration     `yaml:"tick"`
	PublishTimeout time.Duration     `yaml:"publish_timeout"`
	HTTPAddr       string            `yaml:"http_addr"`
	LogLevel       string            `yaml:"log_level"`
	LogFormat      string            `yaml:"log_format"`
}

type BrokerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Username     string   `yaml:"username,omitempty"`
	Password     string   `yaml:"password,omitempty"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaGroup   string   `yaml:"kafka_group"`
}

type SolverConfig struct {
	Method    string  `yaml:"method"`
	Tolerance float64 `yaml:"tolerance"`
	Substeps  int     `yaml:"substeps"`
}

func DefaultConfig() *Config {
	return &Config{
		Transport: DefaultTransport,
		Broker: BrokerConfig{
			Host:         DefaultBrokerHost,
			Port:         DefaultBrokerPort,
			KafkaBrokers: []string{DefaultKafkaBroker},
			KafkaGroup:   DefaultKafkaGroup,
		},
		Topics:      control.DefaultTopics(),
		VolumeTopic: report.DefaultVolumeTopic,
		Station:     physics.DefaultConstants(),
		Controls:    physics.DefaultControls(),
		Solver: SolverConfig{
			Method:    DefaultSolver,
			Tolerance: DefaultTolerance,
			Substeps:  DefaultSubsteps,
		},
		Tick:           DefaultTick,
		PublishTimeout: DefaultPublishTimeout,
		HTTPAddr:       DefaultHTTPAddr,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// Load reads a YAML file over the defaults; keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Transport {
	case TransportMQTT:
		if c.Broker.Host == "" {
			bad("broker.host is empty")
		}
		if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
			bad("broker.port %d out of range", c.Broker.Port)
		}
	case TransportKafka:
		if len(c.Broker.KafkaBrokers) == 0 {
			bad("broker.kafka_brokers is empty")
		}
	case TransportNone:
	default:
		bad("unknown transport %q", c.Transport)
	}

	if c.Topics.ActiveTanks == "" || c.Topics.PumpStatus == "" || c.Topics.FabOutflow == "" {
		bad("every control topic must be set")
	}
	if c.VolumeTopic == "" {
		bad("volume_topic is empty")
	}

	if !(c.Station.TankCapacity > 0) || math.IsInf(c.Station.TankCapacity, 0) {
		bad("station.tank_capacity must be positive")
	}
	if c.Station.TankCount <= 0 {
		bad("station.tank_count must be positive")
	}
	if !(c.Station.PumpFlowRate >= 0) || math.IsInf(c.Station.PumpFlowRate, 0) {
		bad("station.pump_flow_rate must be non-negative")
	}

	if c.Station.PumpFlowRate > physics.MaxFlowRate {
		bad("station.pump_flow_rate above %g L/min", physics.MaxFlowRate)
	}
	if err := c.Controls.Validate(c.Station.PumpFlowRate); err != nil {
		bad("controls: %v", err)
	}
	if c.Controls.PumpOn != 0 && c.Controls.PumpOn != 1 {
		bad("controls.pump_on must be 0 or 1")
	}

	if !slices.Contains(integrators.Names(), c.Solver.Method) {
		bad("unknown solver method %q", c.Solver.Method)
	}
	if !(c.Solver.Tolerance > 0) {
		bad("solver.tolerance must be positive")
	}
	if c.Solver.Substeps <= 0 {
		bad("solver.substeps must be positive")
	}

	if c.Tick <= 0 {
		bad("tick must be positive")
	}
	if c.PublishTimeout <= 0 {
		bad("publish_timeout must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		bad("log_level %q", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		bad("log_format must be console or json")
	}

	return errors.Join(errs...)
}
