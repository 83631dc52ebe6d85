// Package sim drives an ecs.Scheduler from an external clock and wires the
// crowd simulation together.
package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrClockRegression is returned when a clock reading is lower than the
// previous one.
var ErrClockRegression = errors.New("sim: clock went backwards")

// Conversion factors from clock seconds to simulated time units.
const (
	SecondsToSeconds = 1.0
	SecondsToMinutes = 1.0 / 60
)

// TimeScale returns the conversion factor named by unit.
func TimeScale(unit string) (float64, error) {
	switch unit {
	case "seconds":
		return SecondsToSeconds, nil
	case "minutes":
		return SecondsToMinutes, nil
	default:
		return 0, fmt.Errorf("time unit %q: want seconds or minutes", unit)
	}
}

// Updater is what an Adapter drives; *ecs.Scheduler implements it.
type Updater interface {
	Once(deltaTime float64) error
}

// Steppable receives absolute clock readings.
type Steppable interface {
	Step(now float64) error
}

// Adapter turns absolute clock readings into scheduler ticks. The first
// reading only records a baseline; every later one runs a tick with the
// scaled elapsed time.
type Adapter struct {
	target  Updater
	scale   float64
	last    float64
	started bool
	ticks   uint64
}

var _ Steppable = (*Adapter)(nil)

// NewAdapter fails unless scale is positive and finite, so that every tick
// gets a non-negative delta.
func NewAdapter(target Updater, scale float64) (*Adapter, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("time scale %v: must be positive and finite", scale)
	}
	return &Adapter{target: target, scale: scale}, nil
}

func (a *Adapter) Step(now float64) error {
	if math.IsNaN(now) || math.IsInf(now, 0) {
		return fmt.Errorf("clock reading %v: %w", now, ErrClockRegression)
	}
	if !a.started {
		a.started = true
		a.last = now
		return nil
	}
	if now < a.last {
		return fmt.Errorf("clock reading %v before %v: %w", now, a.last, ErrClockRegression)
	}

	dt := (now - a.last) * a.scale
	a.last = now
	a.ticks++
	if err := a.target.Once(dt); err != nil {
		return fmt.Errorf("tick at %v: %w", now, err)
	}
	return nil
}

// Reset forgets the baseline; the next Step starts over.
func (a *Adapter) Reset() {
	a.started = false
	a.last = 0
}

// Last returns the last clock reading and whether one was recorded.
func (a *Adapter) Last() (float64, bool) {
	return a.last, a.started
}

// Ticks returns how many times the target was updated.
func (a *Adapter) Ticks() uint64 {
	return a.ticks
}
