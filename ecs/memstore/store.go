// Package memstore is the reference in-memory EntityData backend. Each
// component kind lives in its own sparse column keyed by entity id.
package memstore

import (
	"fmt"
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"

	"github.com/plus3/crowdsim/ecs"
)

const initialCapacity = 256

// Store keeps one column per component kind plus a mask per live entity.
// It is not safe for concurrent use.
type Store struct {
	opts    ecs.Options
	nextId  ecs.EntityId
	masks   *intmap.Map[ecs.EntityId, ecs.Mask]
	columns [ecs.KindCount]*intmap.Map[ecs.EntityId, ecs.Component]
	tracker *ecs.Tracker
}

var _ ecs.EntityData = (*Store)(nil)

func New(opts ...ecs.Option) *Store {
	s := &Store{
		opts:  ecs.BuildOptions(opts...),
		masks: intmap.New[ecs.EntityId, ecs.Mask](initialCapacity),
	}
	for k := range s.columns {
		s.columns[k] = intmap.New[ecs.EntityId, ecs.Component](initialCapacity)
	}
	s.tracker = ecs.NewTracker(s.Mask)
	return s
}

func (s *Store) CreateEntity() ecs.EntityId {
	s.nextId++
	id := s.nextId
	s.masks.Put(id, 0)
	s.tracker.Created(id)
	return id
}

func (s *Store) DestroyEntity(id ecs.EntityId) error {
	mask, ok := s.masks.Get(id)
	if !ok {
		return fmt.Errorf("destroy %s: %w", id, ecs.ErrUnknownEntity)
	}
	for _, kind := range mask.Kinds() {
		s.columns[kind].Del(id)
	}
	s.masks.Del(id)
	s.tracker.Destroyed(id, mask)
	return nil
}

func (s *Store) Alive(id ecs.EntityId) bool {
	return s.masks.Has(id)
}

func (s *Store) Len() int {
	return s.masks.Len()
}

func (s *Store) Mask(id ecs.EntityId) (ecs.Mask, bool) {
	return s.masks.Get(id)
}

func (s *Store) AddComponent(id ecs.EntityId, c ecs.Component) error {
	if err := ecs.CheckComponent(c); err != nil {
		return fmt.Errorf("add component to %s: %w", id, err)
	}
	mask, ok := s.masks.Get(id)
	if !ok {
		return fmt.Errorf("add %s to %s: %w", c.Kind(), id, ecs.ErrUnknownEntity)
	}

	kind := c.Kind()
	if mask.Has(kind) {
		if s.opts.Duplicates == ecs.RejectDuplicates {
			return fmt.Errorf("add %s to %s: %w", kind, id, ecs.ErrDuplicateComponent)
		}
		s.opts.Logger.Warn("replacing existing component",
			zap.Stringer("entity", id),
			zap.Stringer("kind", kind))
		s.columns[kind].Put(id, ecs.CopyComponent(c))
		s.tracker.ComponentChanged(id, kind)
		return nil
	}

	s.columns[kind].Put(id, ecs.CopyComponent(c))
	updated := mask.With(kind)
	s.masks.Put(id, updated)
	s.tracker.MaskChanged(id, mask, updated)
	return nil
}

func (s *Store) RemoveComponent(id ecs.EntityId, kind ecs.ComponentKind) error {
	if !kind.Valid() {
		return fmt.Errorf("remove kind %d: %w", kind, ecs.ErrInvalidKind)
	}
	mask, ok := s.masks.Get(id)
	if !ok {
		return fmt.Errorf("remove %s from %s: %w", kind, id, ecs.ErrUnknownEntity)
	}
	if !mask.Has(kind) {
		return nil
	}

	s.columns[kind].Del(id)
	updated := mask.Without(kind)
	s.masks.Put(id, updated)
	s.tracker.MaskChanged(id, mask, updated)
	return nil
}

func (s *Store) GetComponent(id ecs.EntityId, kind ecs.ComponentKind) (ecs.Component, bool) {
	if !kind.Valid() {
		return nil, false
	}
	c, ok := s.columns[kind].Get(id)
	if !ok {
		return nil, false
	}
	return ecs.CopyComponent(c), true
}

func (s *Store) Edit(id ecs.EntityId, kind ecs.ComponentKind, fn func(ecs.Component) ecs.Component) error {
	if !kind.Valid() {
		return fmt.Errorf("edit kind %d: %w", kind, ecs.ErrInvalidKind)
	}
	if !s.masks.Has(id) {
		return fmt.Errorf("edit %s of %s: %w", kind, id, ecs.ErrUnknownEntity)
	}
	current, ok := s.columns[kind].Get(id)
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

	s.columns[kind].Put(id, ecs.CopyComponent(next))
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

// matching yields the live entities whose mask contains filter, in id order.
func (s *Store) matching(filter ecs.Mask) iter.Seq[ecs.EntityId] {
	return func(yield func(ecs.EntityId) bool) {
		ids := make([]ecs.EntityId, 0, s.masks.Len())
		s.masks.ForEach(func(id ecs.EntityId, mask ecs.Mask) bool {
			if mask.Contains(filter) {
				ids = append(ids, id)
			}
			return true
		})
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}
