package ecs_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/crowdsim/ecs"
)

// maskTable is a minimal stand-in for a store: a mask per live entity.
type maskTable map[ecs.EntityId]ecs.Mask

func (m maskTable) lookup(id ecs.EntityId) (ecs.Mask, bool) {
	mask, ok := m[id]
	return mask, ok
}

func TestTracker(t *testing.T) {
	masks := maskTable{}
	tracker := ecs.NewTracker(masks.lookup)

	masks[1] = ecs.NewMask(ecs.KindPosition)
	masks[2] = ecs.NewMask(ecs.KindPosition, ecs.KindVelocity)
	set := tracker.NewSet([]ecs.ComponentKind{ecs.KindPosition, ecs.KindVelocity}, slices.Values([]ecs.EntityId{2}))
	assert.Equal(t, 1, tracker.Sets())

	changed, err := set.ApplyChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []ecs.EntityId{2}, set.Added())

	t.Run("membership flip", func(t *testing.T) {
		old := masks[1]
		masks[1] = old.With(ecs.KindVelocity)
		tracker.MaskChanged(1, old, masks[1])

		_, err := set.ApplyChanges()
		require.NoError(t, err)
		assert.Equal(t, []ecs.EntityId{1}, set.Added())
	})

	t.Run("unfiltered change is ignored", func(t *testing.T) {
		tracker.ComponentChanged(1, ecs.KindName)
		assert.False(t, set.HasChanges())
	})

	t.Run("destroy", func(t *testing.T) {
		old := masks[2]
		delete(masks, 2)
		tracker.Destroyed(2, old)

		_, err := set.ApplyChanges()
		require.NoError(t, err)
		assert.Equal(t, []ecs.EntityId{2}, set.Removed())
		assert.Equal(t, []ecs.EntityId{1}, set.Entities())
	})

	t.Run("release unsubscribes", func(t *testing.T) {
		set.Release()
		assert.Equal(t, 0, tracker.Sets())
		tracker.ComponentChanged(1, ecs.KindPosition)
		_, err := set.ApplyChanges()
		assert.ErrorIs(t, err, ecs.ErrInvalidState)
		assert.Contains(t, set.String(), "{Position,Velocity}")
	})
}
