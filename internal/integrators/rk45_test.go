package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/liftsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

type blowUp struct{}

func (b *blowUp) StateDim() int   { return 1 }
func (b *blowUp) ControlDim() int { return 0 }
func (b *blowUp) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.NaN()}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, taken, next, err := integrator.StepAdaptive(dyn, x0, nil, 0, 0.5, 1e-10)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if taken <= 0 || taken > 0.5 {
		t.Errorf("step taken out of range: %f", taken)
	}
	if taken == 0.5 {
		t.Error("expected a tight tolerance to shrink the step")
	}
	if next <= 0 {
		t.Errorf("invalid next step: %f", next)
	}
	if math.Abs(x[0]-math.Cos(taken)) > 1e-8 {
		t.Errorf("inaccurate step: got %f, expected %f", x[0], math.Cos(taken))
	}
}

func TestRK45_AdaptiveGrowsOnConstantRate(t *testing.T) {
	integrator := NewRK45()
	_, taken, next, err := integrator.StepAdaptive(&constantRate{rate: 10}, dynamo.State{0}, nil, 0, 0.01, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if taken != 0.01 {
		t.Errorf("expected full step, got %f", taken)
	}
	if next <= taken {
		t.Errorf("expected step growth, got %f", next)
	}
}

func TestRK45_InvalidState(t *testing.T) {
	integrator := NewRK45()
	_, _, _, err := integrator.StepAdaptive(&blowUp{}, dynamo.State{1}, nil, 0, 0.1, 1e-6)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}
