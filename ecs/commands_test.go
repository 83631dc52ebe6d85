package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/ecs/memstore"
)

func TestCommands(t *testing.T) {
	t.Run("spawn is deferred until flush", func(t *testing.T) {
		data := memstore.New()
		scheduler := ecs.NewScheduler(data, nil)

		var seen int
		require.NoError(t, scheduler.Register(&funcSystem{update: func(frame *ecs.UpdateFrame) error {
			seen = frame.Data.Len()
			if frame.Tick == 1 {
				frame.Commands.Spawn(ecs.Position{X: 1, Y: 2}, ecs.Velocity{X: 0.5})
				frame.Commands.Spawn(ecs.Position{X: 3, Y: 4})
			}
			return nil
		}}))

		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 0, seen, "spawns are not visible during the tick")
		assert.Equal(t, 2, data.Len())

		require.NoError(t, scheduler.Once(1))
		assert.Equal(t, 2, seen)
	})

	t.Run("delete while iterating a set", func(t *testing.T) {
		data := memstore.New()
		for i := range 4 {
			_, err := ecs.Spawn(data, ecs.Position{X: float64(i)})
			require.NoError(t, err)
		}
		set := data.CreateEntitySet(ecs.KindPosition)
		_, err := set.ApplyChanges()
		require.NoError(t, err)

		commands := ecs.NewCommands()
		for _, id := range set.Entities() {
			pos, _ := ecs.Get[ecs.Position](data, id)
			if int(pos.X)%2 == 0 {
				commands.Delete(id)
			}
		}
		assert.Equal(t, 2, commands.Len())
		require.NoError(t, commands.Flush(data))
		assert.Equal(t, 0, commands.Len())

		_, err = set.ApplyChanges()
		require.NoError(t, err)
		assert.Len(t, set.Removed(), 2)
		assert.Equal(t, 2, set.Len())
	})

	t.Run("add and remove components", func(t *testing.T) {
		data := memstore.New()
		e, err := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{X: 1})
		require.NoError(t, err)

		commands := ecs.NewCommands()
		commands.RemoveComponent(e.Id(), ecs.KindVelocity)
		commands.AddComponent(e.Id(), ecs.Speed{Value: 4})
		require.NoError(t, commands.Flush(data))

		assert.False(t, e.Has(ecs.KindVelocity))
		speed, ok := ecs.Get[ecs.Speed](data, e.Id())
		require.True(t, ok)
		assert.Equal(t, 4.0, speed.Value)
	})

	t.Run("commands for deleted entities are dropped", func(t *testing.T) {
		data := memstore.New()
		e, err := ecs.Spawn(data, ecs.Position{})
		require.NoError(t, err)

		commands := ecs.NewCommands()
		commands.AddComponent(e.Id(), ecs.Velocity{})
		commands.Delete(e.Id())
		commands.Delete(e.Id())
		commands.RemoveComponent(e.Id(), ecs.KindPosition)
		require.NoError(t, commands.Flush(data))
		assert.False(t, e.Alive())
	})

	t.Run("failures are joined", func(t *testing.T) {
		data := memstore.New()
		commands := ecs.NewCommands()
		commands.Delete(99)
		commands.AddComponent(100, ecs.Position{})
		commands.Spawn(ecs.Position{}, nil)

		err := commands.Flush(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ecs.ErrUnknownEntity)
		assert.ErrorIs(t, err, ecs.ErrNilComponent)
		assert.Equal(t, 0, commands.Len(), "buffer is reset even on failure")
	})

	t.Run("defers run last", func(t *testing.T) {
		data := memstore.New()
		commands := ecs.NewCommands()
		var count int
		commands.Defer(func() { count = data.Len() })
		commands.Spawn(ecs.Name{Value: "late"})
		require.NoError(t, commands.Flush(data))
		assert.Equal(t, 1, count)
	})
}
