package systems

import (
	"fmt"
	"slices"

	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/spatial"
)

// Vision fills VisionArea.InRange from the spatial index. Static observers,
// those flagged Static or without a Velocity, are computed once and left
// alone afterwards; replacing their VisionArea with one whose Computed is
// false schedules a new computation. Mobile observers are recomputed every
// tick. Vision must run after SpatialSync.
type Vision struct {
	lifecycle
	index         spatial.Index
	defaultRadius float64
	observers     ecs.EntitySet
	queries       uint64
}

var _ ecs.System = (*Vision)(nil)

// NewVision returns a Vision querying index. defaultRadius is used for
// observers whose VisionArea has no positive radius.
func NewVision(index spatial.Index, defaultRadius float64) *Vision {
	return &Vision{
		lifecycle:     lifecycle{name: "vision"},
		index:         index,
		defaultRadius: defaultRadius,
	}
}

func (v *Vision) Initialize(data ecs.EntityData) error {
	if err := v.initialize(data); err != nil {
		return err
	}
	v.observers = v.subscribe(ecs.KindPosition, ecs.KindVisionArea)
	return nil
}

func (v *Vision) Update(frame *ecs.UpdateFrame) error {
	if err := v.begin(); err != nil {
		return err
	}
	for _, id := range v.observers.Entities() {
		area, _ := ecs.Get[ecs.VisionArea](v.data, id)
		if area.Computed && v.isStatic(id) {
			continue
		}

		pos, _ := ecs.Get[ecs.Position](v.data, id)
		radius := area.Radius
		if radius <= 0 {
			radius = v.defaultRadius
		}
		v.queries++
		inRange := slices.DeleteFunc(v.index.QueryCircle(pos.Vector(), radius), func(other ecs.EntityId) bool {
			return other == id
		})

		if area.Computed && slices.Equal(area.InRange, inRange) {
			continue
		}
		err := ecs.Edit(v.data, id, func(a *ecs.VisionArea) {
			a.InRange = inRange
			a.Computed = true
		})
		if err != nil {
			return fmt.Errorf("vision: %w", err)
		}
	}
	return nil
}

func (v *Vision) isStatic(id ecs.EntityId) bool {
	return ecs.Has[ecs.Static](v.data, id) || !ecs.Has[ecs.Velocity](v.data, id)
}

// Queries returns the number of range queries issued so far.
func (v *Vision) Queries() uint64 {
	return v.queries
}

func (v *Vision) Release() {
	v.release()
}
