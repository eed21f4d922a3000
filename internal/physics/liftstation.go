package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/liftsim/internal/dynamo"
)

const (
	DefaultTankCapacity = 10000.0
	DefaultTankCount    = 2
	DefaultPumpFlowRate = 60.0

	DefaultActiveTanks = 2.0
	DefaultPumpOn      = 1.0
	DefaultFabOutflow  = 100.0

	// MaxFlowRate bounds inflow and outflow in L/min. Above it a single
	// segment can overflow float64 inside the integrator.
	MaxFlowRate = 1e9
)

// Indices into the control vector produced by Controls.Vector.
const (
	ControlActiveTanks = iota
	ControlPumpOn
	ControlFabOutflow
	ControlDim
)

// Constants are the fixed infrastructure characteristics.
type Constants struct {
	TankCapacity float64 `yaml:"tank_capacity" json:"tank_capacity"`
	TankCount    int     `yaml:"tank_count" json:"tank_count"`
	PumpFlowRate float64 `yaml:"pump_flow_rate" json:"pump_flow_rate"`
}

func DefaultConstants() Constants {
	return Constants{
		TankCapacity: DefaultTankCapacity,
		TankCount:    DefaultTankCount,
		PumpFlowRate: DefaultPumpFlowRate,
	}
}

// TotalCapacity is the combined capacity of all tanks in liters.
func (c Constants) TotalCapacity() float64 {
	return c.TankCapacity * float64(c.TankCount)
}

// Controls are the externally supplied inputs. PumpOn is 0 or 1.
type Controls struct {
	ActiveTanks float64 `yaml:"active_tanks" json:"active_tanks"`
	PumpOn      float64 `yaml:"pump_on" json:"pump_on"`
	FabOutflow  float64 `yaml:"fab_outflow" json:"fab_outflow"`
}

func DefaultControls() Controls {
	return Controls{
		ActiveTanks: DefaultActiveTanks,
		PumpOn:      DefaultPumpOn,
		FabOutflow:  DefaultFabOutflow,
	}
}

func (c Controls) Vector() dynamo.Control {
	u := make(dynamo.Control, ControlDim)
	u[ControlActiveTanks] = c.ActiveTanks
	u[ControlPumpOn] = c.PumpOn
	u[ControlFabOutflow] = c.FabOutflow
	return u
}

// Inflow is the total fab inflow in L/min.
func (c Controls) Inflow() float64 {
	return c.FabOutflow * c.ActiveTanks
}

// Outflow is the pumped outflow in L/min for a pump of the given rate.
func (c Controls) Outflow(pumpFlowRate float64) float64 {
	return pumpFlowRate * c.PumpOn
}

// NormalizePump maps any non-zero pump status to 1.
func NormalizePump(v float64) float64 {
	if v != 0 {
		return 1
	}
	return 0
}

// Validate checks that every control is finite and non-negative and that the
// resulting inflow and outflow stay within MaxFlowRate. Errors wrap
// dynamo.ErrInvalidControlValue.
func (c Controls) Validate(pumpFlowRate float64) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"active_tanks", c.ActiveTanks},
		{"pump_on", c.PumpOn},
		{"fab_outflow", c.FabOutflow},
	}
	for _, f := range fields {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s=%v: must be finite and >= 0", dynamo.ErrInvalidControlValue, f.name, f.v)
		}
	}
	if in := c.Inflow(); !(in <= MaxFlowRate) {
		return fmt.Errorf("%w: inflow %g L/min exceeds %g", dynamo.ErrInvalidControlValue, in, MaxFlowRate)
	}
	if out := c.Outflow(pumpFlowRate); !(out <= MaxFlowRate) {
		return fmt.Errorf("%w: outflow %g L/min exceeds %g", dynamo.ErrInvalidControlValue, out, MaxFlowRate)
	}
	return nil
}

type LiftStation struct {
	Constants Constants
}

func NewLiftStation(c Constants) *LiftStation {
	return &LiftStation{Constants: c}
}

func (s *LiftStation) StateDim() int   { return 1 }
func (s *LiftStation) ControlDim() int { return ControlDim }

// NetFlow is inflow minus outflow for control vector u.
func (s *LiftStation) NetFlow(u dynamo.Control) float64 {
	if len(u) < ControlDim {
		return 0
	}
	inflow := u[ControlFabOutflow] * u[ControlActiveTanks]
	outflow := s.Constants.PumpFlowRate * u[ControlPumpOn]
	return inflow - outflow
}

// Overflowing reports whether volume is at capacity with positive net flow.
func (s *LiftStation) Overflowing(volume float64, u dynamo.Control) bool {
	return volume >= s.Constants.TotalCapacity() && s.NetFlow(u) > 0
}

// Rate is dV/dt in L/min. Excess inflow at capacity spills instead of
// accumulating.
func (s *LiftStation) Rate(volume float64, u dynamo.Control) float64 {
	if s.Overflowing(volume, u) {
		return 0
	}
	return s.NetFlow(u)
}

func (s *LiftStation) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{s.Rate(x[0], u)}
}

// CapacityEvent returns the terminal, rising-only root V - TotalCapacity.
func (s *LiftStation) CapacityEvent() dynamo.Event {
	return capacityEvent{capacity: s.Constants.TotalCapacity()}
}

// Regime returns the branch of the right-hand side selected at x, held fixed
// regardless of where later stages land.
func (s *LiftStation) Regime(x dynamo.State, u dynamo.Control) dynamo.System {
	return regime{rate: s.Rate(x[0], u)}
}

type capacityEvent struct {
	capacity float64
}

func (e capacityEvent) Value(x dynamo.State, t float64) float64 { return x[0] - e.capacity }
func (e capacityEvent) Direction() dynamo.Direction             { return dynamo.Rising }
func (e capacityEvent) Terminal() bool                          { return true }

type regime struct {
	rate float64
}

func (r regime) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{r.rate}
}

func (r regime) StateDim() int   { return 1 }
func (r regime) ControlDim() int { return ControlDim }
