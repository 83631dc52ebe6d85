package spatial

import (
	"errors"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/kamstrup/intmap"

	"github.com/plus3/crowdsim/ecs"
)

// DefaultCellSize suits vision radii of a few hundred units.
const DefaultCellSize = 100

type cellKey struct {
	cx, cy int64
}

// Grid buckets entities into square cells. A circle query scans the cells
// overlapping the circle's bounding box and filters by exact distance.
// Not safe for concurrent use.
type Grid struct {
	cellSize  float64
	cells     map[cellKey]map[ecs.EntityId]struct{}
	positions *intmap.Map[ecs.EntityId, cp.Vector]
}

var _ Index = (*Grid)(nil)

func NewGrid(cellSize float64) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, errors.New("spatial: grid cell size must be positive")
	}
	return &Grid{
		cellSize:  cellSize,
		cells:     make(map[cellKey]map[ecs.EntityId]struct{}),
		positions: intmap.New[ecs.EntityId, cp.Vector](256),
	}, nil
}

func (g *Grid) toCell(v float64) int64 {
	return int64(math.Floor(v / g.cellSize))
}

func (g *Grid) key(pos cp.Vector) cellKey {
	return cellKey{cx: g.toCell(pos.X), cy: g.toCell(pos.Y)}
}

func (g *Grid) Update(id ecs.EntityId, pos cp.Vector) {
	newK := g.key(pos)
	if old, ok := g.positions.Get(id); ok {
		oldK := g.key(old)
		if oldK == newK {
			g.positions.Put(id, pos)
			return
		}
		g.removeFromCell(oldK, id)
	}

	cell := g.cells[newK]
	if cell == nil {
		cell = make(map[ecs.EntityId]struct{})
		g.cells[newK] = cell
	}
	cell[id] = struct{}{}
	g.positions.Put(id, pos)
}

func (g *Grid) Remove(id ecs.EntityId) {
	pos, ok := g.positions.Get(id)
	if !ok {
		return
	}
	g.removeFromCell(g.key(pos), id)
	g.positions.Del(id)
}

func (g *Grid) removeFromCell(k cellKey, id ecs.EntityId) {
	cell := g.cells[k]
	if cell == nil {
		return
	}
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

func (g *Grid) QueryCircle(center cp.Vector, radius float64) []ecs.EntityId {
	if !validQuery(center, radius) {
		return nil
	}
	var result []ecs.EntityId
	// Large radii cover more cells than are occupied; walk the occupied ones.
	span := 2*radius/g.cellSize + 2
	if span*span > float64(len(g.cells)) {
		for _, cell := range g.cells {
			result = g.collect(result, cell, center, radius)
		}
		return sorted(result)
	}

	minX, maxX := g.toCell(center.X-radius), g.toCell(center.X+radius)
	minY, maxY := g.toCell(center.Y-radius), g.toCell(center.Y+radius)
	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			if cell := g.cells[cellKey{cx: cx, cy: cy}]; cell != nil {
				result = g.collect(result, cell, center, radius)
			}
		}
	}
	return sorted(result)
}

func (g *Grid) collect(dst []ecs.EntityId, cell map[ecs.EntityId]struct{}, center cp.Vector, radius float64) []ecs.EntityId {
	for id := range cell {
		pos, _ := g.positions.Get(id)
		if within(pos, center, radius) {
			dst = append(dst, id)
		}
	}
	return dst
}

func (g *Grid) Len() int {
	return g.positions.Len()
}

// CellSize returns the edge length of a cell.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}
