package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvBrokerHost = "LIFTSIM_BROKER_HOST"
	EnvBrokerPort = "LIFTSIM_BROKER_PORT"
	EnvTransport  = "LIFTSIM_TRANSPORT"
	EnvLogLevel   = "LIFTSIM_LOG_LEVEL"
	EnvHTTPAddr   = "LIFTSIM_HTTP_ADDR"
	EnvKafka      = "LIFTSIM_KAFKA_BROKERS"
)

// LoadDotEnv populates the process environment from the given files. Missing
// files are skipped; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays LIFTSIM_* variables from the process environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBrokerHost); ok && v != "" {
		c.Broker.Host = v
	}
	if v, ok := lookup(EnvBrokerPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvBrokerPort, v)
		}
		c.Broker.Port = port
	}
	if v, ok := lookup(EnvTransport); ok && v != "" {
		c.Transport = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvHTTPAddr); ok {
		c.HTTPAddr = v
	}
	if v, ok := lookup(EnvKafka); ok && v != "" {
		c.Broker.KafkaBrokers = strings.Split(v, ",")
	}
	return nil
}
