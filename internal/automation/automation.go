// Package automation runs scripted multi-step scenarios: each step holds
// its controls constant and starts from the volume the previous step ended
// with.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/liftsim/internal/config"
	"github.com/san-kum/liftsim/internal/experiment"
	"github.com/san-kum/liftsim/internal/metrics"
	"github.com/san-kum/liftsim/internal/physics"
	"github.com/san-kum/liftsim/internal/sim"
	"github.com/san-kum/liftsim/internal/store"
)

// Scenario defines a scripted sequence of steps.
type Scenario struct {
	Name          string             `yaml:"name"`
	Description   string             `yaml:"description"`
	Station       *physics.Constants `yaml:"station,omitempty"`
	InitialVolume float64            `yaml:"initial_volume"`
	Steps         []Step             `yaml:"steps"`
}

// Step is one constant-control stretch. Controls override Preset when both
// are given.
type Step struct {
	Name     string            `yaml:"name"`
	Preset   string            `yaml:"preset,omitempty"`
	Controls *physics.Controls `yaml:"controls,omitempty"`
	Duration float64           `yaml:"duration"`
	Samples  int               `yaml:"samples,omitempty"`
	SaveAs   string            `yaml:"save_as,omitempty"`
}

type StepResult struct {
	Name      string
	StartTime float64
	Result    *experiment.Result
}

// FinalVolume is the volume at the last sample of the step.
func (s StepResult) FinalVolume() float64 {
	return s.Result.Samples[len(s.Result.Samples)-1].Volume
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// RunScenario executes all steps in order. base supplies the station and the
// controls of steps that set neither a preset nor controls.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, solver *sim.SegmentSolver, log zerolog.Logger) ([]StepResult, error) {
	station := base.Station
	if scenario.Station != nil {
		station = *scenario.Station
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	volume := scenario.InitialVolume
	start := 0.0

	for i, step := range scenario.Steps {
		controls, err := stepControls(step, base.Controls)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		samples := step.Samples
		if samples == 0 {
			samples = int(step.Duration/10) + 1
		}
		if samples < 2 {
			samples = 2
		}

		log.Info().
			Int("step", i+1).
			Int("of", len(scenario.Steps)).
			Str("name", step.Name).
			Float64("start_volume", volume).
			Msg("running scenario step")

		exp, err := experiment.New(experiment.Config{
			Constants:     station,
			Controls:      controls,
			InitialVolume: volume,
			Duration:      step.Duration,
			Samples:       samples,
		}, solver, experiment.WithMetrics(metrics.Standard()...), experiment.WithLogger(log))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		if step.SaveAs != "" {
			data := store.ExportData{Constants: station, Controls: controls, Result: res}
			if err := store.Export(step.SaveAs, data); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}

		sr := StepResult{Name: step.Name, StartTime: start, Result: res}
		results = append(results, sr)
		volume = sr.FinalVolume()
		start += step.Duration
	}

	return results, nil
}

func stepControls(step Step, fallback physics.Controls) (physics.Controls, error) {
	controls := fallback
	if step.Preset != "" {
		p := config.GetPreset(step.Preset)
		if p == nil {
			return controls, fmt.Errorf("unknown preset: %s", step.Preset)
		}
		controls = p.Controls
	}
	if step.Controls != nil {
		controls = *step.Controls
	}
	return controls, nil
}
