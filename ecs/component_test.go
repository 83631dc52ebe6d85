package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plus3/crowdsim/ecs"
)

func TestMask(t *testing.T) {
	t.Run("set operations", func(t *testing.T) {
		m := ecs.NewMask(ecs.KindPosition, ecs.KindVelocity)
		assert.True(t, m.Has(ecs.KindPosition))
		assert.False(t, m.Has(ecs.KindSpeed))
		assert.Equal(t, 2, m.Len())

		m = m.With(ecs.KindSpeed).Without(ecs.KindPosition)
		assert.Equal(t, []ecs.ComponentKind{ecs.KindVelocity, ecs.KindSpeed}, m.Kinds())
	})

	t.Run("contains", func(t *testing.T) {
		full := ecs.NewMask(ecs.KindPosition, ecs.KindVelocity, ecs.KindVisionArea)
		assert.True(t, full.Contains(ecs.NewMask(ecs.KindPosition, ecs.KindVisionArea)))
		assert.True(t, full.Contains(0), "every mask contains the empty mask")
		assert.False(t, full.Contains(ecs.NewMask(ecs.KindStatic)))
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "{Position,VisionArea}", ecs.NewMask(ecs.KindVisionArea, ecs.KindPosition).String())
		assert.Equal(t, "{}", ecs.Mask(0).String())
	})

	t.Run("every declared kind fits", func(t *testing.T) {
		var all ecs.Mask
		for k := ecs.ComponentKind(0); k < ecs.KindCount; k++ {
			assert.True(t, k.Valid())
			assert.NotContains(t, k.String(), "invalid")
			all = all.With(k)
		}
		assert.Equal(t, int(ecs.KindCount), all.Len())
		assert.False(t, ecs.KindCount.Valid())
	})
}

func TestComponentKinds(t *testing.T) {
	cases := []struct {
		component ecs.Component
		kind      ecs.ComponentKind
	}{
		{ecs.Position{}, ecs.KindPosition},
		{ecs.Velocity{}, ecs.KindVelocity},
		{ecs.MovingTarget{}, ecs.KindMovingTarget},
		{ecs.Speed{}, ecs.KindSpeed},
		{ecs.Name{}, ecs.KindName},
		{ecs.VisionArea{}, ecs.KindVisionArea},
		{ecs.FloorReference{}, ecs.KindFloorReference},
		{ecs.Static{}, ecs.KindStatic},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.component.Kind())
		})
	}
}

func TestVisionAreaSees(t *testing.T) {
	area := ecs.VisionArea{Radius: 10, InRange: []ecs.EntityId{2, 5, 11}}
	assert.True(t, area.Sees(5))
	assert.True(t, area.Sees(11))
	assert.False(t, area.Sees(3))
	assert.False(t, ecs.VisionArea{}.Sees(1))
}

type lookalikeSpeed struct{ Value float64 }

func (lookalikeSpeed) Kind() ecs.ComponentKind { return ecs.KindSpeed }

func TestCheckComponent(t *testing.T) {
	assert.NoError(t, ecs.CheckComponent(ecs.Speed{Value: 1}))
	assert.ErrorIs(t, ecs.CheckComponent(nil), ecs.ErrNilComponent)
	assert.ErrorIs(t, ecs.CheckComponent(lookalikeSpeed{}), ecs.ErrInvalidKind)
}

func TestCopyComponent(t *testing.T) {
	area := ecs.VisionArea{Radius: 3, InRange: []ecs.EntityId{4, 5}, Computed: true}
	copied := ecs.CopyComponent(area).(ecs.VisionArea)
	copied.InRange[0] = 9
	assert.Equal(t, []ecs.EntityId{4, 5}, area.InRange)
	assert.Equal(t, area.Radius, copied.Radius)

	empty := ecs.CopyComponent(ecs.VisionArea{}).(ecs.VisionArea)
	assert.Nil(t, empty.InRange)
	assert.Equal(t, ecs.Position{X: 1}, ecs.CopyComponent(ecs.Position{X: 1}))
}
