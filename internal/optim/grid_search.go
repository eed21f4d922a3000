// Package optim sweeps station parameters over a grid and picks the point
// that minimizes a scenario metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/liftsim/internal/experiment"
	"github.com/san-kum/liftsim/internal/physics"
)

// Parameter names accepted by Apply.
const (
	TankCapacity = "tank_capacity"
	TankCount    = "tank_count"
	PumpFlowRate = "pump_flow_rate"
	ActiveTanks  = "active_tanks"
	PumpOn       = "pump_on"
	FabOutflow   = "fab_outflow"
)

// MaxRangePoints bounds the number of values ParseRange expands one range to.
const MaxRangePoints = 10000

// Apply writes the named parameters into cfg. The pump status is normalized
// to 0 or 1 and the resulting controls must pass physics.Controls.Validate.
func Apply(cfg *experiment.Config, params map[string]float64) error {
	for name, v := range params {
		switch name {
		case TankCapacity:
			cfg.Constants.TankCapacity = v
		case TankCount:
			cfg.Constants.TankCount = int(v)
		case PumpFlowRate:
			cfg.Constants.PumpFlowRate = v
		case ActiveTanks:
			cfg.Controls.ActiveTanks = v
		case PumpOn:
			cfg.Controls.PumpOn = physics.NormalizePump(v)
		case FabOutflow:
			cfg.Controls.FabOutflow = v
		default:
			return fmt.Errorf("unknown parameter: %s", name)
		}
	}
	return cfg.Controls.Validate(cfg.Constants.PumpFlowRate)
}

// ParseRange reads "name=start:stop:step" into a name and its grid values.
func ParseRange(expr string) (string, []float64, error) {
	name, bounds, ok := strings.Cut(expr, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("range %q: want name=start:stop:step", expr)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("range %q: want name=start:stop:step", expr)
	}

	var nums [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("range %q: %w", expr, err)
		}
		nums[i] = v
	}
	start, stop, step := nums[0], nums[1], nums[2]
	if math.IsInf(start, 0) || math.IsInf(stop, 0) || !(step > 0) || !(stop >= start) {
		return "", nil, fmt.Errorf("range %q: need finite bounds, step > 0 and stop >= start", expr)
	}

	count := math.Floor((stop-start)/step+1e-9) + 1
	if !(count <= MaxRangePoints) {
		return "", nil, fmt.Errorf("range %q: %g points exceeds %d", expr, count, MaxRangePoints)
	}
	n := int(count)
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return name, values, nil
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs one experiment per grid point and returns the point with the
// smallest metric. Ties keep the earliest point in grid order.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("empty grid")
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("metric %q not reported", metricName)
		}
		if val < *best || *bestParams == nil {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
