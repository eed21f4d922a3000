package config

import (
	"sort"

	"github.com/san-kum/liftsim/internal/physics"
)

type Preset struct {
	Description string
	Controls    physics.Controls
}

var Presets = map[string]Preset{
	"filling": {
		Description: "both tanks receiving fab outflow, pump running",
		Controls:    physics.Controls{ActiveTanks: 2, PumpOn: 1, FabOutflow: 100},
	},
	"draining": {
		Description: "no fab outflow, pump emptying the station",
		Controls:    physics.Controls{ActiveTanks: 0, PumpOn: 1, FabOutflow: 0},
	},
	"balanced": {
		Description: "one tank at the pump rate, volume holds steady",
		Controls:    physics.Controls{ActiveTanks: 1, PumpOn: 1, FabOutflow: 60},
	},
	"surge": {
		Description: "pump tripped during a production surge",
		Controls:    physics.Controls{ActiveTanks: 2, PumpOn: 0, FabOutflow: 150},
	},
}

// GetPreset returns nil when name is unknown.
func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply replaces the initial controls of cfg.
func (p *Preset) Apply(cfg *Config) {
	cfg.Controls = p.Controls
}
