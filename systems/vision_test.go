package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/ecs/memstore"
)

func visionPipeline(t *testing.T, data ecs.EntityData) (*ecs.Scheduler, *Vision) {
	t.Helper()
	grid := newGrid(t)
	vision := NewVision(grid, 10)
	scheduler := ecs.NewScheduler(data, nil)
	require.NoError(t, scheduler.Register(NewKinematics()))
	require.NoError(t, scheduler.Register(NewSpatialSync(grid)))
	require.NoError(t, scheduler.Register(vision))
	return scheduler, vision
}

func inRange(t *testing.T, data ecs.EntityData, id ecs.EntityId) []ecs.EntityId {
	t.Helper()
	area, ok := ecs.Get[ecs.VisionArea](data, id)
	require.True(t, ok)
	require.True(t, area.Computed)
	return area.InRange
}

func TestVision(t *testing.T) {
	t.Run("static observer is computed once", func(t *testing.T) {
		data := memstore.New()
		scheduler, vision := visionPipeline(t, data)

		tower, _ := ecs.Spawn(data, ecs.Position{}, ecs.VisionArea{Radius: 10})
		walker, _ := ecs.Spawn(data, ecs.Position{X: 5}, ecs.Velocity{X: 10})

		require.NoError(t, scheduler.Once(0))
		assert.Equal(t, []ecs.EntityId{walker.Id()}, inRange(t, data, tower.Id()))
		assert.Equal(t, uint64(1), vision.Queries())

		for range 3 {
			require.NoError(t, scheduler.Once(1))
		}
		pos, _ := ecs.Get[ecs.Position](data, walker.Id())
		assert.Equal(t, 35.0, pos.X, "walker left the tower's radius")
		assert.Equal(t, []ecs.EntityId{walker.Id()}, inRange(t, data, tower.Id()), "static result is kept")
		assert.Equal(t, uint64(1), vision.Queries())
	})

	t.Run("static marker wins over velocity", func(t *testing.T) {
		data := memstore.New()
		scheduler, vision := visionPipeline(t, data)

		_, _ = ecs.Spawn(data, ecs.Position{}, ecs.Velocity{}, ecs.Static{}, ecs.VisionArea{Radius: 10})
		require.NoError(t, scheduler.Once(1))
		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, uint64(1), vision.Queries())
	})

	t.Run("dynamic observer is recomputed every tick", func(t *testing.T) {
		data := memstore.New()
		scheduler, vision := visionPipeline(t, data)

		observer, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{}, ecs.VisionArea{Radius: 10})
		near, _ := ecs.Spawn(data, ecs.Position{X: 8})
		far, _ := ecs.Spawn(data, ecs.Position{X: 20}, ecs.Velocity{X: -5})

		require.NoError(t, scheduler.Once(0))
		assert.Equal(t, []ecs.EntityId{near.Id()}, inRange(t, data, observer.Id()))

		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, []ecs.EntityId{near.Id()}, inRange(t, data, observer.Id()), "far is at 15")

		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, []ecs.EntityId{near.Id(), far.Id()}, inRange(t, data, observer.Id()), "far is at 10, on the boundary")
		assert.Equal(t, uint64(3), vision.Queries())
	})

	t.Run("observer never sees itself", func(t *testing.T) {
		data := memstore.New()
		scheduler, _ := visionPipeline(t, data)

		a, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{}, ecs.VisionArea{Radius: 5})
		b, _ := ecs.Spawn(data, ecs.Position{X: 1}, ecs.Velocity{}, ecs.VisionArea{Radius: 5})
		require.NoError(t, scheduler.Once(1))

		assert.Equal(t, []ecs.EntityId{b.Id()}, inRange(t, data, a.Id()))
		assert.Equal(t, []ecs.EntityId{a.Id()}, inRange(t, data, b.Id()))
	})

	t.Run("default radius", func(t *testing.T) {
		data := memstore.New()
		scheduler, _ := visionPipeline(t, data)

		a, _ := ecs.Spawn(data, ecs.Position{}, ecs.VisionArea{})
		b, _ := ecs.Spawn(data, ecs.Position{X: 9})
		_, _ = ecs.Spawn(data, ecs.Position{X: 11})
		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, []ecs.EntityId{b.Id()}, inRange(t, data, a.Id()))
	})

	t.Run("destroyed neighbours drop out", func(t *testing.T) {
		data := memstore.New()
		scheduler, _ := visionPipeline(t, data)

		a, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{}, ecs.VisionArea{Radius: 5})
		b, _ := ecs.Spawn(data, ecs.Position{X: 1})
		require.NoError(t, scheduler.Once(1))
		assert.True(t, func() bool { area, _ := ecs.Get[ecs.VisionArea](data, a.Id()); return area.Sees(b.Id()) }())

		require.NoError(t, b.Destroy())
		require.NoError(t, scheduler.Once(1))
		assert.Empty(t, inRange(t, data, a.Id()))
	})
}
