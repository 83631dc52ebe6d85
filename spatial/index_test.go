package spatial

import (
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/crowdsim/ecs"
)

func indexes(t *testing.T) map[string]Index {
	grid, err := NewGrid(10)
	require.NoError(t, err)
	return map[string]Index{
		"grid":  grid,
		"space": NewSpace(),
	}
}

func TestIndex(t *testing.T) {
	for name, index := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			index.Update(1, cp.Vector{X: 0, Y: 0})
			index.Update(2, cp.Vector{X: 3, Y: 4})
			index.Update(3, cp.Vector{X: 30, Y: 0})
			index.Update(4, cp.Vector{X: -25, Y: -25})
			assert.Equal(t, 4, index.Len())

			assert.Equal(t, []ecs.EntityId{1, 2}, index.QueryCircle(cp.Vector{}, 5), "boundary is included")
			assert.Equal(t, []ecs.EntityId{1}, index.QueryCircle(cp.Vector{}, 4.99))
			assert.Equal(t, []ecs.EntityId{1, 2, 3, 4}, index.QueryCircle(cp.Vector{}, 40))
			assert.Equal(t, []ecs.EntityId{1}, index.QueryCircle(cp.Vector{}, 0))
			assert.Empty(t, index.QueryCircle(cp.Vector{}, -1))
			assert.Empty(t, index.QueryCircle(cp.Vector{}, math.NaN()))

			index.Update(2, cp.Vector{X: 29, Y: 0})
			assert.Equal(t, []ecs.EntityId{2, 3}, index.QueryCircle(cp.Vector{X: 30}, 2), "moved entity is found at its new cell")
			assert.Equal(t, []ecs.EntityId{1}, index.QueryCircle(cp.Vector{}, 5))

			index.Remove(3)
			index.Remove(99)
			assert.Equal(t, []ecs.EntityId{2}, index.QueryCircle(cp.Vector{X: 30}, 2))
			assert.Equal(t, 3, index.Len())
		})
	}
}

func TestIndexFollowsMoves(t *testing.T) {
	for name, index := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			index.Update(1, cp.Vector{X: 0, Y: 0})
			for step := 1; step <= 5; step++ {
				pos := cp.Vector{X: float64(step) * 100, Y: float64(step) * -50}
				index.Update(1, pos)

				assert.Equal(t, []ecs.EntityId{1}, index.QueryCircle(pos, 0.5), "step %d", step)
				prev := cp.Vector{X: float64(step-1) * 100, Y: float64(step-1) * -50}
				assert.Empty(t, index.QueryCircle(prev, 0.5), "step %d left behind", step)
			}
			assert.Equal(t, 1, index.Len())
		})
	}
}

func TestIndexAgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make(map[ecs.EntityId]cp.Vector)
	all := indexes(t)

	for i := 1; i <= 300; i++ {
		id := ecs.EntityId(i)
		p := cp.Vector{X: rng.Float64()*400 - 200, Y: rng.Float64()*400 - 200}
		points[id] = p
		for _, index := range all {
			index.Update(id, p)
		}
	}
	// Move a third of them.
	for i := 1; i <= 300; i += 3 {
		id := ecs.EntityId(i)
		p := cp.Vector{X: rng.Float64()*400 - 200, Y: rng.Float64()*400 - 200}
		points[id] = p
		for _, index := range all {
			index.Update(id, p)
		}
	}

	for q := 0; q < 50; q++ {
		center := cp.Vector{X: rng.Float64()*400 - 200, Y: rng.Float64()*400 - 200}
		radius := rng.Float64() * 80

		var want []ecs.EntityId
		for id, p := range points {
			if p.Distance(center) <= radius {
				want = append(want, id)
			}
		}
		slices.Sort(want)

		for name, index := range all {
			got := index.QueryCircle(center, radius)
			if len(want) == 0 {
				assert.Empty(t, got, name)
				continue
			}
			assert.Equal(t, want, got, name)
		}
	}
}

func TestNew(t *testing.T) {
	index, err := New(KindGrid, 25)
	require.NoError(t, err)
	assert.IsType(t, &Grid{}, index)
	assert.Equal(t, 25.0, index.(*Grid).CellSize())

	index, err = New(KindSpace, 0)
	require.NoError(t, err)
	assert.IsType(t, &Space{}, index)

	_, err = New("quadtree", 10)
	assert.Error(t, err)
	_, err = New(KindGrid, 0)
	assert.Error(t, err)
}

func TestGridNegativeCoordinates(t *testing.T) {
	grid, err := NewGrid(10)
	require.NoError(t, err)
	grid.Update(1, cp.Vector{X: -0.5, Y: -0.5})
	grid.Update(2, cp.Vector{X: 0.5, Y: 0.5})
	assert.Equal(t, []ecs.EntityId{1, 2}, grid.QueryCircle(cp.Vector{}, 1))
	assert.Equal(t, []ecs.EntityId{1}, grid.QueryCircle(cp.Vector{X: -9.9, Y: -0.5}, 9.5))
}

func BenchmarkQueryCircle(b *testing.B) {
	grid, _ := NewGrid(DefaultCellSize)
	cases := map[string]Index{"grid": grid, "space": NewSpace()}
	rng := rand.New(rand.NewSource(1))
	for i := 1; i <= 5000; i++ {
		p := cp.Vector{X: rng.Float64() * 2000, Y: rng.Float64() * 2000}
		for _, index := range cases {
			index.Update(ecs.EntityId(i), p)
		}
	}
	for name, index := range cases {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = index.QueryCircle(cp.Vector{X: 1000, Y: 1000}, 150)
			}
		})
	}
}
