package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/liftsim/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, TransportMQTT, cfg.Transport)
	assert.Equal(t, "localhost", cfg.Broker.Host)
	assert.Equal(t, 1883, cfg.Broker.Port)
	assert.Equal(t, "data/lift_station/current_volume", cfg.VolumeTopic)
	assert.Equal(t, 20000.0, cfg.Station.TotalCapacity())
	assert.Equal(t, time.Second, cfg.Tick)
	assert.Equal(t, 500*time.Millisecond, cfg.PublishTimeout)
	require.NoError(t, cfg.Validate())
}

func TestSaveLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "liftsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport: kafka
station:
  tank_capacity: 5000
  tank_count: 3
  pump_flow_rate: 80
tick: 500ms
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TransportKafka, cfg.Transport)
	assert.Equal(t, 15000.0, cfg.Station.TotalCapacity())
	assert.Equal(t, 500*time.Millisecond, cfg.Tick)
	assert.Equal(t, "lift_station/pump_status", cfg.Topics.PumpStatus)

	out := filepath.Join(dir, "saved.yaml")
	require.NoError(t, Save(out, cfg))
	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadedInfiniteControlsFailValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controls:\n  fab_outflow: .inf\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, math.IsInf(cfg.Controls.FabOutflow, 1))
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"transport", func(c *Config) { c.Transport = "amqp" }},
		{"port", func(c *Config) { c.Broker.Port = 70000 }},
		{"kafka brokers", func(c *Config) { c.Transport = TransportKafka; c.Broker.KafkaBrokers = nil }},
		{"topic", func(c *Config) { c.Topics.FabOutflow = "" }},
		{"capacity", func(c *Config) { c.Station.TankCapacity = 0 }},
		{"tanks", func(c *Config) { c.Station.TankCount = -1 }},
		{"pump", func(c *Config) { c.Controls.PumpOn = 0.5 }},
		{"outflow", func(c *Config) { c.Controls.FabOutflow = -1 }},
		{"infinite outflow", func(c *Config) { c.Controls.FabOutflow = math.Inf(1) }},
		{"infinite tanks", func(c *Config) { c.Controls.ActiveTanks = math.Inf(1) }},
		{"inflow overflow", func(c *Config) { c.Controls.FabOutflow = 1e308 }},
		{"pump rate", func(c *Config) { c.Station.PumpFlowRate = 2 * physics.MaxFlowRate }},
		{"solver", func(c *Config) { c.Solver.Method = "leapfrog" }},
		{"tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"tick", func(c *Config) { c.Tick = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.Transport = TransportNone
	cfg.Broker.Host = ""
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBrokerHost: "mqtt.plant",
		EnvBrokerPort: "8883",
		EnvTransport:  "KAFKA",
		EnvLogLevel:   "debug",
		EnvKafka:      "k1:9092,k2:9092",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "mqtt.plant", cfg.Broker.Host)
	assert.Equal(t, 8883, cfg.Broker.Port)
	assert.Equal(t, TransportKafka, cfg.Transport)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.KafkaBrokers)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)

	env[EnvBrokerPort] = "eighty"
	assert.ErrorIs(t, DefaultConfig().applyEnv(lookup), ErrInvalidConfig)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIFTSIM_BROKER_HOST=from-dotenv\n"), 0644))
	t.Setenv(EnvBrokerHost, "")
	os.Unsetenv(EnvBrokerHost)

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), path))

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "from-dotenv", cfg.Broker.Host)
}

func TestGetPreset(t *testing.T) {
	p := GetPreset("filling")
	require.NotNil(t, p)
	assert.Equal(t, physics.Controls{ActiveTanks: 2, PumpOn: 1, FabOutflow: 100}, p.Controls)

	cfg := DefaultConfig()
	GetPreset("draining").Apply(cfg)
	assert.Equal(t, 0.0, cfg.Controls.Inflow())
	require.NoError(t, cfg.Validate())

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"balanced", "draining", "filling", "surge"}, ListPresets())
	for _, name := range ListPresets() {
		cfg := DefaultConfig()
		GetPreset(name).Apply(cfg)
		assert.NoError(t, cfg.Validate(), name)
	}
}
