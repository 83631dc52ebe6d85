package systems

import (
	"fmt"

	"github.com/plus3/crowdsim/ecs"
)

// Kinematics integrates positions: p += v * dt.
type Kinematics struct {
	lifecycle
	moving ecs.EntitySet
}

var _ ecs.System = (*Kinematics)(nil)

func NewKinematics() *Kinematics {
	return &Kinematics{lifecycle: lifecycle{name: "kinematics"}}
}

func (k *Kinematics) Initialize(data ecs.EntityData) error {
	if err := k.initialize(data); err != nil {
		return err
	}
	k.moving = k.subscribe(ecs.KindPosition, ecs.KindVelocity)
	return nil
}

func (k *Kinematics) Update(frame *ecs.UpdateFrame) error {
	if err := k.begin(); err != nil {
		return err
	}
	if frame.DeltaTime == 0 {
		return nil
	}
	for _, id := range k.moving.Entities() {
		vel, _ := ecs.Get[ecs.Velocity](k.data, id)
		if vel.X == 0 && vel.Y == 0 {
			continue
		}
		step := vel.Vector().Mult(frame.DeltaTime)
		err := ecs.Edit(k.data, id, func(p *ecs.Position) {
			p.X += step.X
			p.Y += step.Y
		})
		if err != nil {
			return fmt.Errorf("kinematics: %w", err)
		}
	}
	return nil
}

func (k *Kinematics) Release() {
	k.release()
}
