// Package spatial answers range queries over entity positions for systems
// that need neighbourhoods, such as vision. An Index is fed by a sync system
// from Position changes and is read-only to its consumers.
package spatial

import (
	"fmt"
	"math"
	"slices"

	"github.com/jakecoffman/cp"

	"github.com/plus3/crowdsim/ecs"
)

// Index tracks one point per entity.
type Index interface {
	// Update inserts id at pos, or moves it there if already present.
	Update(id ecs.EntityId, pos cp.Vector)
	// Remove drops id. Unknown ids are ignored.
	Remove(id ecs.EntityId)
	// QueryCircle returns every entity within radius of center, boundary
	// included, in ascending id order. A negative or NaN radius matches
	// nothing.
	QueryCircle(center cp.Vector, radius float64) []ecs.EntityId
	Len() int
}

// Kind names an Index implementation in configuration.
type Kind string

const (
	KindGrid  Kind = "grid"
	KindSpace Kind = "space"
)

// New builds the index named by kind. cellSize only applies to the grid.
func New(kind Kind, cellSize float64) (Index, error) {
	switch kind {
	case KindGrid:
		return NewGrid(cellSize)
	case KindSpace:
		return NewSpace(), nil
	default:
		return nil, fmt.Errorf("spatial index %q: unknown kind", kind)
	}
}

func validQuery(center cp.Vector, radius float64) bool {
	return radius >= 0 && !math.IsNaN(radius) && !math.IsNaN(center.X) && !math.IsNaN(center.Y)
}

func within(p, center cp.Vector, radius float64) bool {
	return p.DistanceSq(center) <= radius*radius
}

func sorted(ids []ecs.EntityId) []ecs.EntityId {
	slices.Sort(ids)
	return ids
}
