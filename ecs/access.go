package ecs

import (
	"fmt"
	"slices"
)

// Get returns the component of type T attached to id.
func Get[T Component](data EntityData, id EntityId) (T, bool) {
	var zero T
	c, ok := data.GetComponent(id, zero.Kind())
	if !ok {
		return zero, false
	}
	v, ok := c.(T)
	return v, ok
}

// Has reports whether id has a component of type T.
func Has[T Component](data EntityData, id EntityId) bool {
	var zero T
	mask, ok := data.Mask(id)
	return ok && mask.Has(zero.Kind())
}

// Edit applies fn to the stored T of id as one read-modify-write. fn should
// only touch the fields it means to change; the rest of the value is kept.
func Edit[T Component](data EntityData, id EntityId, fn func(*T)) error {
	var zero T
	return data.Edit(id, zero.Kind(), func(c Component) Component {
		v := c.(T)
		fn(&v)
		return v
	})
}

// Spawn creates an entity carrying components. If any component is rejected
// the entity is destroyed again and the error returned.
func Spawn(data EntityData, components ...Component) (Entity, error) {
	id := data.CreateEntity()
	for _, c := range components {
		if err := data.AddComponent(id, c); err != nil {
			_ = data.DestroyEntity(id)
			return Entity{}, fmt.Errorf("spawn entity %s: %w", id, err)
		}
	}
	return EntityOf(data, id), nil
}

// CheckComponent validates a component before a store accepts it. Only the
// component types of this package are accepted, even if another type
// reports a valid kind.
func CheckComponent(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	if !c.Kind().Valid() {
		return fmt.Errorf("kind %d: %w", c.Kind(), ErrInvalidKind)
	}
	switch c.(type) {
	case Position, Velocity, MovingTarget, Speed, Name, VisionArea, FloorReference, Static:
		return nil
	}
	return fmt.Errorf("%T as %s: %w", c, c.Kind(), ErrInvalidKind)
}

// CopyComponent returns c without any storage shared with it. Stores copy
// on the way in and out so that only Edit changes what they hold.
func CopyComponent(c Component) Component {
	if v, ok := c.(VisionArea); ok {
		v.InRange = slices.Clone(v.InRange)
		return v
	}
	return c
}
