package ecs

import (
	"math/bits"
	"strings"
)

// ComponentKind identifies a component type. The set of kinds is closed and
// known at compile time, so stores index their columns by kind instead of
// looking types up at runtime.
type ComponentKind uint8

const (
	KindPosition ComponentKind = iota
	KindVelocity
	KindMovingTarget
	KindSpeed
	KindName
	KindVisionArea
	KindFloorReference
	KindStatic

	// KindCount is the number of component kinds.
	KindCount
)

var kindNames = [KindCount]string{
	KindPosition:       "Position",
	KindVelocity:       "Velocity",
	KindMovingTarget:   "MovingTarget",
	KindSpeed:          "Speed",
	KindName:           "Name",
	KindVisionArea:     "VisionArea",
	KindFloorReference: "FloorReference",
	KindStatic:         "Static",
}

func (k ComponentKind) String() string {
	if k >= KindCount {
		return "ComponentKind(invalid)"
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k ComponentKind) Valid() bool {
	return k < KindCount
}

// Component is implemented by every component value. Components carry data
// only; the kind is their sole shared behavior.
type Component interface {
	Kind() ComponentKind
}

// Mask is a set of component kinds.
type Mask uint32

// NewMask builds a mask containing the given kinds.
func NewMask(kinds ...ComponentKind) Mask {
	var m Mask
	for _, k := range kinds {
		m = m.With(k)
	}
	return m
}

// With returns m with kind k set.
func (m Mask) With(k ComponentKind) Mask {
	return m | 1<<k
}

// Without returns m with kind k cleared.
func (m Mask) Without(k ComponentKind) Mask {
	return m &^ (1 << k)
}

// Has reports whether kind k is in m.
func (m Mask) Has(k ComponentKind) bool {
	return m&(1<<k) != 0
}

// Contains reports whether every kind in sub is also in m.
func (m Mask) Contains(sub Mask) bool {
	return m&sub == sub
}

// Len returns the number of kinds in m.
func (m Mask) Len() int {
	return bits.OnesCount32(uint32(m))
}

// Kinds returns the kinds in m in ascending order.
func (m Mask) Kinds() []ComponentKind {
	kinds := make([]ComponentKind, 0, m.Len())
	for k := ComponentKind(0); k < KindCount; k++ {
		if m.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (m Mask) String() string {
	names := make([]string, 0, m.Len())
	for _, k := range m.Kinds() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
