package ecs

import (
	"slices"

	"github.com/jakecoffman/cp"
)

// Position is the location of an entity on its floor plane.
type Position struct {
	X, Y float64
}

func (Position) Kind() ComponentKind { return KindPosition }

// Vector returns the position as a vector.
func (p Position) Vector() cp.Vector {
	return cp.Vector{X: p.X, Y: p.Y}
}

// Velocity is a rate of change of Position per canonical time unit.
type Velocity struct {
	X, Y float64
}

func (Velocity) Kind() ComponentKind { return KindVelocity }

func (v Velocity) Vector() cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

// MovingTarget is the point an entity is steering towards. It is written by
// the behavior layer and read by the movement system.
type MovingTarget struct {
	X, Y float64
}

func (MovingTarget) Kind() ComponentKind { return KindMovingTarget }

func (t MovingTarget) Vector() cp.Vector {
	return cp.Vector{X: t.X, Y: t.Y}
}

// Speed overrides the movement system's default speed for one entity.
type Speed struct {
	Value float64
}

func (Speed) Kind() ComponentKind { return KindSpeed }

type Name struct {
	Value string
}

func (Name) Kind() ComponentKind { return KindName }

// VisionArea describes what an entity can see. InRange holds the ids of the
// entities inside Radius as of the last recomputation, sorted ascending.
// Computed is set once InRange has been filled at least once.
type VisionArea struct {
	Radius   float64
	InRange  []EntityId
	Computed bool
}

func (VisionArea) Kind() ComponentKind { return KindVisionArea }

// Sees reports whether id was in range at the last recomputation.
func (v VisionArea) Sees(id EntityId) bool {
	_, found := slices.BinarySearch(v.InRange, id)
	return found
}

// FloorReference ties an entity to a building floor.
type FloorReference struct {
	FloorId int64
}

func (FloorReference) Kind() ComponentKind { return KindFloorReference }

// Static marks entities that never move. Their vision is computed once.
type Static struct{}

func (Static) Kind() ComponentKind { return KindStatic }
