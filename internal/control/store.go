package control

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/physics"
)

// Field names one control input.
type Field int

const (
	ActiveTanks Field = iota
	PumpOn
	FabOutflow
)

var fieldNames = map[Field]string{
	ActiveTanks: "active_tanks",
	PumpOn:      "pump_status",
	FabOutflow:  "fab_outflow",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps a field name as printed by String back to a Field.
func ParseField(name string) (Field, error) {
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown control field: %s", name)
}

// Snapshot is an internally consistent copy of the controls and constants.
type Snapshot struct {
	Controls  physics.Controls
	Constants physics.Constants
}

func (s Snapshot) Inflow() float64  { return s.Controls.Inflow() }
func (s Snapshot) Outflow() float64 { return s.Controls.Outflow(s.Constants.PumpFlowRate) }

// Store publishes an immutable controls record through an atomic pointer.
// Each Set builds a new record and swaps it in with compare-and-swap, so
// readers never observe a partial write and concurrent writers to different
// fields never lose each other's updates.
type Store struct {
	constants physics.Constants
	current   atomic.Pointer[physics.Controls]
}

func NewStore(constants physics.Constants, initial physics.Controls) *Store {
	s := &Store{constants: constants}
	initial.PumpOn = physics.NormalizePump(initial.PumpOn)
	s.current.Store(&initial)
	return s
}

func (s *Store) Constants() physics.Constants {
	return s.constants
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Controls:  *s.current.Load(),
		Constants: s.constants,
	}
}

// Set parses raw as a decimal number and replaces field f. On error the
// store is unchanged and the error wraps dynamo.ErrInvalidControlValue.
func (s *Store) Set(f Field, raw string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: not a number", dynamo.ErrInvalidControlValue, f, raw)
	}
	return s.SetValue(f, v)
}

func (s *Store) SetValue(f Field, v float64) error {
	return s.Update(f, func(float64) float64 { return v })
}

// Update replaces field f with fn applied to its current value. fn runs inside
// the compare-and-swap loop, so it may be called more than once and always
// sees the value it replaces. The resulting record must pass
// physics.Controls.Validate or the store is left unchanged.
func (s *Store) Update(f Field, fn func(old float64) float64) error {
	for {
		old := s.current.Load()
		v, err := validate(f, fn(fieldValue(*old, f)))
		if err != nil {
			return err
		}

		next := *old
		switch f {
		case ActiveTanks:
			next.ActiveTanks = v
		case PumpOn:
			next.PumpOn = v
		case FabOutflow:
			next.FabOutflow = v
		}
		if err := next.Validate(s.constants.PumpFlowRate); err != nil {
			return fmt.Errorf("%s=%v: %w", f, v, err)
		}
		if s.current.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

func fieldValue(c physics.Controls, f Field) float64 {
	switch f {
	case ActiveTanks:
		return c.ActiveTanks
	case PumpOn:
		return c.PumpOn
	case FabOutflow:
		return c.FabOutflow
	}
	return 0
}

func validate(f Field, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%v: not finite", dynamo.ErrInvalidControlValue, f, v)
	}

	switch f {
	case ActiveTanks, FabOutflow:
		if v < 0 {
			return 0, fmt.Errorf("%w: %s=%v: must be >= 0", dynamo.ErrInvalidControlValue, f, v)
		}
		return v, nil
	case PumpOn:
		return physics.NormalizePump(v), nil
	default:
		return 0, fmt.Errorf("%w: %s", dynamo.ErrInvalidControlValue, f)
	}
}
