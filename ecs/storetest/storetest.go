// Package storetest holds the behavior every ecs.EntityData backend must
// show. Backend packages call Run from their own tests.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/crowdsim/ecs"
)

// Factory builds an empty store with the given options.
type Factory func(opts ...ecs.Option) ecs.EntityData

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("entities", func(t *testing.T) { testEntities(t, newStore) })
	t.Run("components", func(t *testing.T) { testComponents(t, newStore) })
	t.Run("duplicates", func(t *testing.T) { testDuplicates(t, newStore) })
	t.Run("edit", func(t *testing.T) { testEdit(t, newStore) })
	t.Run("foreign component types", func(t *testing.T) { testForeignTypes(t, newStore) })
	t.Run("stored values are not shared", func(t *testing.T) { testNoSharing(t, newStore) })
	t.Run("entity set diffs", func(t *testing.T) { testSetDiffs(t, newStore) })
	t.Run("entity set lifecycle", func(t *testing.T) { testSetLifecycle(t, newStore) })
}

func apply(t *testing.T, set ecs.EntitySet) bool {
	t.Helper()
	changed, err := set.ApplyChanges()
	require.NoError(t, err)
	return changed
}

func testEntities(t *testing.T, newStore Factory) {
	t.Run("ids are unique and never reused", func(t *testing.T) {
		data := newStore()
		a := data.CreateEntity()
		b := data.CreateEntity()
		assert.True(t, a.Valid())
		assert.NotEqual(t, a, b)

		require.NoError(t, data.DestroyEntity(b))
		c := data.CreateEntity()
		assert.NotEqual(t, b, c)
		assert.NotEqual(t, a, c)
		assert.Equal(t, 2, data.Len())
	})

	t.Run("destroy unknown entity", func(t *testing.T) {
		data := newStore()
		assert.ErrorIs(t, data.DestroyEntity(42), ecs.ErrUnknownEntity)

		id := data.CreateEntity()
		require.NoError(t, data.DestroyEntity(id))
		assert.ErrorIs(t, data.DestroyEntity(id), ecs.ErrUnknownEntity)
		assert.False(t, data.Alive(id))
	})

	t.Run("destroy cascades components", func(t *testing.T) {
		data := newStore()
		e, err := ecs.Spawn(data, ecs.Position{X: 1}, ecs.Name{Value: "a"})
		require.NoError(t, err)
		require.NoError(t, e.Destroy())

		_, ok := data.GetComponent(e.Id(), ecs.KindPosition)
		assert.False(t, ok)
		_, ok = data.Mask(e.Id())
		assert.False(t, ok)
	})

	t.Run("operations on unknown entity", func(t *testing.T) {
		data := newStore()
		assert.ErrorIs(t, data.AddComponent(7, ecs.Position{}), ecs.ErrUnknownEntity)
		assert.ErrorIs(t, data.RemoveComponent(7, ecs.KindPosition), ecs.ErrUnknownEntity)
		assert.ErrorIs(t, ecs.Edit(data, 7, func(p *ecs.Position) {}), ecs.ErrUnknownEntity)
	})
}

func testComponents(t *testing.T, newStore Factory) {
	data := newStore()
	e, err := ecs.Spawn(data,
		ecs.Position{X: 3, Y: 4},
		ecs.Name{Value: "visitor"},
		ecs.FloorReference{FloorId: 2},
	)
	require.NoError(t, err)

	pos, ok := ecs.Get[ecs.Position](data, e.Id())
	require.True(t, ok)
	assert.Equal(t, ecs.Position{X: 3, Y: 4}, pos)

	name, ok := e.Get(ecs.KindName)
	require.True(t, ok)
	assert.Equal(t, ecs.Name{Value: "visitor"}, name)

	_, ok = e.Get(ecs.KindVelocity)
	assert.False(t, ok, "absent kind reports not present")
	assert.False(t, ecs.Has[ecs.Velocity](data, e.Id()))

	mask, ok := data.Mask(e.Id())
	require.True(t, ok)
	assert.Equal(t, ecs.NewMask(ecs.KindPosition, ecs.KindName, ecs.KindFloorReference), mask)

	require.NoError(t, e.Delete(ecs.KindName))
	assert.False(t, e.Has(ecs.KindName))
	require.NoError(t, e.Delete(ecs.KindName), "removing an absent kind is a no-op")

	pos, ok = ecs.Get[ecs.Position](data, e.Id())
	require.True(t, ok, "other components survive a removal")
	assert.Equal(t, 3.0, pos.X)

	floor, ok := ecs.Get[ecs.FloorReference](data, e.Id())
	require.True(t, ok)
	assert.Equal(t, int64(2), floor.FloorId)

	assert.ErrorIs(t, data.AddComponent(e.Id(), nil), ecs.ErrNilComponent)
	assert.ErrorIs(t, data.RemoveComponent(e.Id(), ecs.KindCount), ecs.ErrInvalidKind)
	_, ok = data.GetComponent(e.Id(), ecs.KindCount)
	assert.False(t, ok)
}

func testDuplicates(t *testing.T, newStore Factory) {
	t.Run("replace", func(t *testing.T) {
		data := newStore()
		e, err := ecs.Spawn(data, ecs.Speed{Value: 1})
		require.NoError(t, err)

		require.NoError(t, e.Add(ecs.Speed{Value: 2}))
		speed, ok := ecs.Get[ecs.Speed](data, e.Id())
		require.True(t, ok)
		assert.Equal(t, 2.0, speed.Value)
	})

	t.Run("reject", func(t *testing.T) {
		data := newStore(ecs.WithDuplicatePolicy(ecs.RejectDuplicates))
		e, err := ecs.Spawn(data, ecs.Speed{Value: 1})
		require.NoError(t, err)

		assert.ErrorIs(t, e.Add(ecs.Speed{Value: 2}), ecs.ErrDuplicateComponent)
		speed, _ := ecs.Get[ecs.Speed](data, e.Id())
		assert.Equal(t, 1.0, speed.Value)

		_, err = ecs.Spawn(data, ecs.Speed{Value: 1}, ecs.Speed{Value: 2})
		assert.ErrorIs(t, err, ecs.ErrDuplicateComponent)
		assert.Equal(t, 1, data.Len(), "failed spawn leaves no entity behind")
	})
}

func testEdit(t *testing.T, newStore Factory) {
	data := newStore()
	e, err := ecs.Spawn(data, ecs.Velocity{X: 1, Y: 2}, ecs.VisionArea{Radius: 5})
	require.NoError(t, err)

	require.NoError(t, ecs.Edit(data, e.Id(), func(v *ecs.Velocity) {
		v.X = 10
	}))
	vel, _ := ecs.Get[ecs.Velocity](data, e.Id())
	assert.Equal(t, ecs.Velocity{X: 10, Y: 2}, vel, "edit keeps untouched fields")

	require.NoError(t, ecs.Edit(data, e.Id(), func(v *ecs.VisionArea) {
		v.InRange = []ecs.EntityId{3, 9}
		v.Computed = true
	}))
	area, _ := ecs.Get[ecs.VisionArea](data, e.Id())
	assert.Equal(t, 5.0, area.Radius)
	assert.True(t, area.Sees(9))
	assert.False(t, area.Sees(4))

	assert.ErrorIs(t, ecs.Edit(data, e.Id(), func(p *ecs.Position) {}), ecs.ErrMissingComponent)

	err = data.Edit(e.Id(), ecs.KindVelocity, func(ecs.Component) ecs.Component {
		return ecs.Position{}
	})
	assert.ErrorIs(t, err, ecs.ErrInvalidKind)
}

func testSetDiffs(t *testing.T, newStore Factory) {
	t.Run("added exactly once", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition)
		id := data.CreateEntity()
		require.NoError(t, data.AddComponent(id, ecs.Position{}))

		assert.False(t, set.Contains(id), "changes are not visible before apply")
		assert.True(t, set.HasChanges())
		assert.True(t, apply(t, set))
		assert.Equal(t, []ecs.EntityId{id}, set.Added())
		assert.Empty(t, set.Changed())
		assert.Empty(t, set.Removed())
		assert.Equal(t, []ecs.EntityId{id}, set.Entities())
	})

	t.Run("added then changed in one window reports added only", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition, ecs.KindVelocity)
		e, err := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{})
		require.NoError(t, err)
		require.NoError(t, ecs.Edit(data, e.Id(), func(v *ecs.Velocity) { v.X = 1 }))

		apply(t, set)
		assert.Equal(t, []ecs.EntityId{e.Id()}, set.Added())
		assert.Empty(t, set.Changed())
	})

	t.Run("changed", func(t *testing.T) {
		data := newStore()
		e, err := ecs.Spawn(data, ecs.Position{}, ecs.Name{Value: "a"})
		require.NoError(t, err)
		set := data.CreateEntitySet(ecs.KindPosition)
		apply(t, set)

		require.NoError(t, ecs.Edit(data, e.Id(), func(n *ecs.Name) { n.Value = "b" }))
		assert.False(t, apply(t, set), "edits to unfiltered kinds are not tracked")

		require.NoError(t, ecs.Edit(data, e.Id(), func(p *ecs.Position) { p.X = 1 }))
		assert.True(t, apply(t, set))
		assert.Empty(t, set.Added())
		assert.Equal(t, []ecs.EntityId{e.Id()}, set.Changed())
	})

	t.Run("destroy reports removed", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition)
		a, _ := ecs.Spawn(data, ecs.Position{})
		b, _ := ecs.Spawn(data, ecs.Position{})
		apply(t, set)

		require.NoError(t, a.Destroy())
		assert.True(t, set.Contains(a.Id()), "snapshot is stable until apply")
		apply(t, set)
		assert.Equal(t, []ecs.EntityId{a.Id()}, set.Removed())
		assert.Equal(t, []ecs.EntityId{b.Id()}, set.Entities())
		assert.False(t, set.Contains(a.Id()))
	})

	t.Run("component removal leaves the set", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition, ecs.KindVelocity)
		e, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{})
		apply(t, set)

		require.NoError(t, e.Delete(ecs.KindVelocity))
		apply(t, set)
		assert.Equal(t, []ecs.EntityId{e.Id()}, set.Removed())
		assert.Equal(t, 0, set.Len())
	})

	t.Run("added and removed in one window is not reported", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition)
		e, _ := ecs.Spawn(data, ecs.Position{})
		require.NoError(t, e.Destroy())

		assert.False(t, apply(t, set))
		assert.Empty(t, set.Added())
		assert.Empty(t, set.Removed())
	})

	t.Run("removed and re-added in one window reports changed", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition)
		e, _ := ecs.Spawn(data, ecs.Position{})
		apply(t, set)

		require.NoError(t, e.Delete(ecs.KindPosition))
		require.NoError(t, e.Add(ecs.Position{X: 2}))
		apply(t, set)
		assert.Empty(t, set.Added())
		assert.Empty(t, set.Removed())
		assert.Equal(t, []ecs.EntityId{e.Id()}, set.Changed())
	})

	t.Run("second apply without mutation is empty", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindPosition)
		_, _ = ecs.Spawn(data, ecs.Position{})

		assert.True(t, apply(t, set))
		assert.False(t, apply(t, set))
		assert.Empty(t, set.Added())
		assert.Empty(t, set.Changed())
		assert.Empty(t, set.Removed())
		assert.Equal(t, 1, set.Len())
	})

	t.Run("new set sees existing entities as added", func(t *testing.T) {
		data := newStore()
		a, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{})
		_, _ = ecs.Spawn(data, ecs.Position{})
		b, _ := ecs.Spawn(data, ecs.Velocity{}, ecs.Position{}, ecs.Name{})

		set := data.CreateEntitySet(ecs.KindVelocity, ecs.KindPosition)
		apply(t, set)
		assert.ElementsMatch(t, []ecs.EntityId{a.Id(), b.Id()}, set.Added())
		assert.Equal(t, ecs.NewMask(ecs.KindPosition, ecs.KindVelocity), set.Filter())
	})

	t.Run("sets with the same filter have independent buffers", func(t *testing.T) {
		data := newStore()
		first := data.CreateEntitySet(ecs.KindPosition)
		second := data.CreateEntitySet(ecs.KindPosition)
		e, _ := ecs.Spawn(data, ecs.Position{})

		apply(t, first)
		assert.Equal(t, []ecs.EntityId{e.Id()}, first.Added())

		require.NoError(t, ecs.Edit(data, e.Id(), func(p *ecs.Position) { p.Y = 3 }))
		apply(t, second)
		assert.Equal(t, []ecs.EntityId{e.Id()}, second.Added(), "second set never applied the add")
		assert.Empty(t, second.Changed())

		apply(t, first)
		assert.Equal(t, []ecs.EntityId{e.Id()}, first.Changed())
		assert.Equal(t, first.Entities(), second.Entities())
	})

	t.Run("empty filter matches every entity", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet()
		id := data.CreateEntity()
		apply(t, set)
		assert.Equal(t, []ecs.EntityId{id}, set.Added())
	})
}

// foreignPosition reports a valid kind but is not the type stores hold for it.
type foreignPosition struct{}

func (foreignPosition) Kind() ecs.ComponentKind { return ecs.KindPosition }

func testForeignTypes(t *testing.T, newStore Factory) {
	data := newStore()
	id := data.CreateEntity()
	assert.ErrorIs(t, data.AddComponent(id, foreignPosition{}), ecs.ErrInvalidKind)
	assert.False(t, ecs.Has[ecs.Position](data, id))

	require.NoError(t, data.AddComponent(id, ecs.Position{X: 1}))
	err := data.Edit(id, ecs.KindPosition, func(ecs.Component) ecs.Component {
		return foreignPosition{}
	})
	assert.ErrorIs(t, err, ecs.ErrInvalidKind)

	require.NoError(t, ecs.Edit(data, id, func(p *ecs.Position) { p.Y = 2 }))
	pos, ok := ecs.Get[ecs.Position](data, id)
	require.True(t, ok)
	assert.Equal(t, ecs.Position{X: 1, Y: 2}, pos)
}

func testNoSharing(t *testing.T, newStore Factory) {
	t.Run("fetched value", func(t *testing.T) {
		data := newStore()
		set := data.CreateEntitySet(ecs.KindVisionArea)
		e, err := ecs.Spawn(data, ecs.VisionArea{Radius: 5, InRange: []ecs.EntityId{1, 2}})
		require.NoError(t, err)
		apply(t, set)

		area, ok := ecs.Get[ecs.VisionArea](data, e.Id())
		require.True(t, ok)
		area.InRange[0] = 99

		stored, ok := ecs.Get[ecs.VisionArea](data, e.Id())
		require.True(t, ok)
		assert.Equal(t, []ecs.EntityId{1, 2}, stored.InRange)
		assert.False(t, apply(t, set), "nothing went through the store")
	})

	t.Run("added value", func(t *testing.T) {
		data := newStore()
		inRange := []ecs.EntityId{1, 2}
		e, err := ecs.Spawn(data, ecs.VisionArea{Radius: 5, InRange: inRange})
		require.NoError(t, err)
		inRange[1] = 99

		stored, ok := ecs.Get[ecs.VisionArea](data, e.Id())
		require.True(t, ok)
		assert.Equal(t, []ecs.EntityId{1, 2}, stored.InRange)
	})

	t.Run("edited value", func(t *testing.T) {
		data := newStore()
		e, err := ecs.Spawn(data, ecs.VisionArea{Radius: 5, InRange: []ecs.EntityId{1, 2}})
		require.NoError(t, err)

		var kept []ecs.EntityId
		require.NoError(t, ecs.Edit(data, e.Id(), func(a *ecs.VisionArea) {
			a.InRange[0] = 7
			kept = a.InRange
		}))
		kept[1] = 99

		stored, ok := ecs.Get[ecs.VisionArea](data, e.Id())
		require.True(t, ok)
		assert.Equal(t, []ecs.EntityId{7, 2}, stored.InRange)
	})
}

func testSetLifecycle(t *testing.T, newStore Factory) {
	data := newStore()
	set := data.CreateEntitySet(ecs.KindPosition)
	_, _ = ecs.Spawn(data, ecs.Position{})
	apply(t, set)

	set.Release()
	set.Release()

	_, err := set.ApplyChanges()
	assert.ErrorIs(t, err, ecs.ErrInvalidState)
	assert.Panics(t, func() { set.Entities() })
	assert.Panics(t, func() { set.Added() })
	assert.Panics(t, func() { set.Len() })
	assert.Panics(t, func() { set.Filter() })

	// Mutations after release must not reach the released set.
	_, err = ecs.Spawn(data, ecs.Position{})
	require.NoError(t, err)

	assert.Panics(t, func() { data.CreateEntitySet(ecs.KindCount) })
}
