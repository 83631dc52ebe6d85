// Package archstore is an EntityData backend that groups entities by their
// exact set of component kinds. Components of one archetype live in parallel
// block columns; an entity moves to another archetype when a kind is added
// or removed. Entity ids stay stable across moves.
package archstore

import (
	"fmt"
	"iter"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"

	"github.com/plus3/crowdsim/ecs"
)

type location struct {
	archetype *archetype
	index     int
}

// Store is not safe for concurrent use.
type Store struct {
	opts       ecs.Options
	nextId     ecs.EntityId
	archetypes map[ecs.Mask]*archetype
	// order keeps archetypes in creation order for deterministic iteration.
	order     []*archetype
	locations *intmap.Map[ecs.EntityId, location]
	tracker   *ecs.Tracker
}

var _ ecs.EntityData = (*Store)(nil)

func New(opts ...ecs.Option) *Store {
	s := &Store{
		opts:       ecs.BuildOptions(opts...),
		archetypes: make(map[ecs.Mask]*archetype),
		locations:  intmap.New[ecs.EntityId, location](256),
	}
	s.tracker = ecs.NewTracker(s.Mask)
	return s
}

func (s *Store) archetypeFor(mask ecs.Mask) *archetype {
	a, ok := s.archetypes[mask]
	if !ok {
		a = newArchetype(mask)
		s.archetypes[mask] = a
		s.order = append(s.order, a)
	}
	return a
}

func (s *Store) CreateEntity() ecs.EntityId {
	s.nextId++
	id := s.nextId
	a := s.archetypeFor(0)
	index := a.spawn(id, [ecs.KindCount]ecs.Component{})
	s.locations.Put(id, location{archetype: a, index: index})
	s.tracker.Created(id)
	return id
}

func (s *Store) DestroyEntity(id ecs.EntityId) error {
	loc, ok := s.locations.Get(id)
	if !ok {
		return fmt.Errorf("destroy %s: %w", id, ecs.ErrUnknownEntity)
	}
	mask := loc.archetype.mask
	loc.archetype.delete(loc.index)
	s.locations.Del(id)
	s.tracker.Destroyed(id, mask)
	return nil
}

func (s *Store) Alive(id ecs.EntityId) bool {
	return s.locations.Has(id)
}

func (s *Store) Len() int {
	return s.locations.Len()
}

func (s *Store) Mask(id ecs.EntityId) (ecs.Mask, bool) {
	loc, ok := s.locations.Get(id)
	if !ok {
		return 0, false
	}
	return loc.archetype.mask, true
}

// move transfers id from its archetype to the one for mask, carrying over
// the values in components.
func (s *Store) move(id ecs.EntityId, from location, mask ecs.Mask, components [ecs.KindCount]ecs.Component) {
	to := s.archetypeFor(mask)
	index := to.spawn(id, components)
	from.archetype.delete(from.index)
	s.locations.Put(id, location{archetype: to, index: index})
}

func (s *Store) AddComponent(id ecs.EntityId, c ecs.Component) error {
	if err := ecs.CheckComponent(c); err != nil {
		return fmt.Errorf("add component to %s: %w", id, err)
	}
	loc, ok := s.locations.Get(id)
	if !ok {
		return fmt.Errorf("add %s to %s: %w", c.Kind(), id, ecs.ErrUnknownEntity)
	}

	c = ecs.CopyComponent(c)
	kind := c.Kind()
	old := loc.archetype.mask
	if old.Has(kind) {
		if s.opts.Duplicates == ecs.RejectDuplicates {
			return fmt.Errorf("add %s to %s: %w", kind, id, ecs.ErrDuplicateComponent)
		}
		s.opts.Logger.Warn("replacing existing component",
			zap.Stringer("entity", id),
			zap.Stringer("kind", kind))
		loc.archetype.set(loc.index, c)
		s.tracker.ComponentChanged(id, kind)
		return nil
	}

	components := loc.archetype.components(loc.index)
	components[kind] = c
	updated := old.With(kind)
	s.move(id, loc, updated, components)
	s.tracker.MaskChanged(id, old, updated)
	return nil
}

func (s *Store) RemoveComponent(id ecs.EntityId, kind ecs.ComponentKind) error {
	if !kind.Valid() {
		return fmt.Errorf("remove kind %d: %w", kind, ecs.ErrInvalidKind)
	}
	loc, ok := s.locations.Get(id)
	if !ok {
		return fmt.Errorf("remove %s from %s: %w", kind, id, ecs.ErrUnknownEntity)
	}
	old := loc.archetype.mask
	if !old.Has(kind) {
		return nil
	}

	components := loc.archetype.components(loc.index)
	components[kind] = nil
	updated := old.Without(kind)
	s.move(id, loc, updated, components)
	s.tracker.MaskChanged(id, old, updated)
	return nil
}

func (s *Store) GetComponent(id ecs.EntityId, kind ecs.ComponentKind) (ecs.Component, bool) {
	if !kind.Valid() {
		return nil, false
	}
	loc, ok := s.locations.Get(id)
	if !ok {
		return nil, false
	}
	c, ok := loc.archetype.get(loc.index, kind)
	if !ok {
		return nil, false
	}
	return ecs.CopyComponent(c), true
}

func (s *Store) Edit(id ecs.EntityId, kind ecs.ComponentKind, fn func(ecs.Component) ecs.Component) error {
	if !kind.Valid() {
		return fmt.Errorf("edit kind %d: %w", kind, ecs.ErrInvalidKind)
	}
	loc, ok := s.locations.Get(id)
	if !ok {
		return fmt.Errorf("edit %s of %s: %w", kind, id, ecs.ErrUnknownEntity)
	}
	current, ok := loc.archetype.get(loc.index, kind)
	if !ok {
		return fmt.Errorf("edit %s of %s: %w", kind, id, ecs.ErrMissingComponent)
	}

	next := fn(ecs.CopyComponent(current))
	if err := ecs.CheckComponent(next); err != nil {
		return fmt.Errorf("edit %s of %s: %w", kind, id, err)
	}
	if next.Kind() != kind {
		return fmt.Errorf("edit %s of %s returned %s: %w", kind, id, next.Kind(), ecs.ErrInvalidKind)
	}

	loc.archetype.set(loc.index, ecs.CopyComponent(next))
	s.tracker.ComponentChanged(id, kind)
	return nil
}

// CreateEntitySet panics when kinds holds a value outside the enumeration.
func (s *Store) CreateEntitySet(kinds ...ecs.ComponentKind) ecs.EntitySet {
	for _, k := range kinds {
		if !k.Valid() {
			panic(fmt.Errorf("create entity set with kind %d: %w", k, ecs.ErrInvalidKind))
		}
	}
	return s.tracker.NewSet(kinds, s.matching(ecs.NewMask(kinds...)))
}

// matching yields the entities of every archetype containing filter.
func (s *Store) matching(filter ecs.Mask) iter.Seq[ecs.EntityId] {
	return func(yield func(ecs.EntityId) bool) {
		for _, a := range s.order {
			if !a.mask.Contains(filter) {
				continue
			}
			for id := range a.entities() {
				if !yield(id) {
					return
				}
			}
		}
	}
}

// Compact removes empty slots from every archetype. Entity ids and sets are
// unaffected.
func (s *Store) Compact() {
	for _, a := range s.order {
		a.compact(func(id ecs.EntityId, index int) {
			s.locations.Put(id, location{archetype: a, index: index})
		})
	}
}

// Stats describes the archetype layout.
type Stats struct {
	ArchetypeCount   int
	TotalEntityCount int
	Archetypes       []ArchetypeStats
}

type ArchetypeStats struct {
	Kinds       ecs.Mask
	EntityCount int
}

func (s *Store) CollectStats() Stats {
	stats := Stats{
		ArchetypeCount: len(s.order),
		Archetypes:     make([]ArchetypeStats, 0, len(s.order)),
	}
	for _, a := range s.order {
		stats.TotalEntityCount += a.count
		stats.Archetypes = append(stats.Archetypes, ArchetypeStats{
			Kinds:       a.mask,
			EntityCount: a.count,
		})
	}
	return stats
}
