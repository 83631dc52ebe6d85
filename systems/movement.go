package systems

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/plus3/crowdsim/ecs"
)

// DefaultSpeed applies to walkers without a Speed component.
const DefaultSpeed = 100.0

// Movement steers every walker toward its MovingTarget. It only sets the
// Velocity; integrating positions is Kinematics' job, so Movement must be
// registered before it.
type Movement struct {
	lifecycle
	defaultSpeed float64
	walkers      ecs.EntitySet
}

var _ ecs.System = (*Movement)(nil)

// NewMovement returns a Movement using defaultSpeed for walkers without a
// Speed component. A non-positive value selects DefaultSpeed.
func NewMovement(defaultSpeed float64) *Movement {
	if !(defaultSpeed > 0) {
		defaultSpeed = DefaultSpeed
	}
	return &Movement{
		lifecycle:    lifecycle{name: "movement"},
		defaultSpeed: defaultSpeed,
	}
}

func (m *Movement) Initialize(data ecs.EntityData) error {
	if err := m.initialize(data); err != nil {
		return err
	}
	m.walkers = m.subscribe(ecs.KindPosition, ecs.KindMovingTarget, ecs.KindVelocity)
	return nil
}

func (m *Movement) Update(frame *ecs.UpdateFrame) error {
	if err := m.begin(); err != nil {
		return err
	}
	for _, id := range m.walkers.Entities() {
		pos, _ := ecs.Get[ecs.Position](m.data, id)
		target, _ := ecs.Get[ecs.MovingTarget](m.data, id)

		speed := m.defaultSpeed
		if s, ok := ecs.Get[ecs.Speed](m.data, id); ok {
			speed = s.Value
		}
		next := Steer(pos.Vector(), target.Vector(), speed)

		current, _ := ecs.Get[ecs.Velocity](m.data, id)
		if current.Vector() == next {
			continue
		}
		err := ecs.Edit(m.data, id, func(v *ecs.Velocity) {
			v.X, v.Y = next.X, next.Y
		})
		if err != nil {
			return fmt.Errorf("movement: %w", err)
		}
	}
	return nil
}

func (m *Movement) Release() {
	m.release()
}

// Steer returns the velocity that heads from pos to target at speed. A
// walker already on its target, or one with a degenerate direction, gets a
// zero velocity.
func Steer(pos, target cp.Vector, speed float64) cp.Vector {
	dir := target.Sub(pos)
	length := dir.Length()
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return cp.Vector{}
	}
	return dir.Mult(speed / length)
}
