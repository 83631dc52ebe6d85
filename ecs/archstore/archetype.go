package archstore

import (
	"iter"

	"github.com/plus3/crowdsim/ecs"
)

// archetype holds every entity sharing one exact set of component kinds.
// Slot i of each column belongs to the entity stored in slot i of ids.
type archetype struct {
	mask    ecs.Mask
	kinds   []ecs.ComponentKind
	columns [ecs.KindCount]column
	ids     blockStorage[ecs.EntityId]
	count   int
}

func newArchetype(mask ecs.Mask) *archetype {
	a := &archetype{
		mask:  mask,
		kinds: mask.Kinds(),
	}
	for _, kind := range a.kinds {
		a.columns[kind] = columnFactories[kind]()
	}
	return a
}

// spawn stores id with components, which must hold exactly one value per
// kind of the archetype. It returns the slot index.
func (a *archetype) spawn(id ecs.EntityId, components [ecs.KindCount]ecs.Component) int {
	index := a.ids.push(id)
	for _, kind := range a.kinds {
		a.columns[kind].Append(components[kind])
	}
	a.count++
	return index
}

// components returns the values stored at index, indexed by kind.
func (a *archetype) components(index int) [ecs.KindCount]ecs.Component {
	var out [ecs.KindCount]ecs.Component
	for _, kind := range a.kinds {
		out[kind], _ = a.columns[kind].Get(index)
	}
	return out
}

func (a *archetype) get(index int, kind ecs.ComponentKind) (ecs.Component, bool) {
	col := a.columns[kind]
	if col == nil {
		return nil, false
	}
	return col.Get(index)
}

func (a *archetype) set(index int, c ecs.Component) bool {
	col := a.columns[c.Kind()]
	if col == nil {
		return false
	}
	return col.Set(index, c)
}

// delete frees the slot. Indices of other entities stay stable.
func (a *archetype) delete(index int) {
	if !a.ids.Has(index) {
		return
	}
	a.ids.Delete(index)
	for _, kind := range a.kinds {
		a.columns[kind].Delete(index)
	}
	a.count--
}

// compact removes empty slots and calls moved for every entity whose index
// changed.
func (a *archetype) compact(moved func(id ecs.EntityId, index int)) {
	indexMap := a.ids.Compact()
	for _, kind := range a.kinds {
		a.columns[kind].Compact()
	}
	for oldIdx, newIdx := range indexMap {
		if oldIdx == newIdx {
			continue
		}
		id, _ := a.ids.get(newIdx)
		moved(id, newIdx)
	}
}

// entities yields the ids stored in this archetype in slot order.
func (a *archetype) entities() iter.Seq[ecs.EntityId] {
	return func(yield func(ecs.EntityId) bool) {
		for index := range a.ids.Iter() {
			id, _ := a.ids.get(index)
			if !yield(id) {
				return
			}
		}
	}
}
