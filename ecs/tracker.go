package ecs

import (
	"fmt"
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
)

// MaskFunc reports the kinds attached to a live entity, or false if the
// entity does not exist.
type MaskFunc func(id EntityId) (Mask, bool)

// Tracker fans store mutations out to the entity sets created over a store.
// Backends own one Tracker, report every mutation to it after applying the
// mutation, and build their EntitySets with NewSet. Tracker is not safe for
// concurrent use; stores run on the simulation goroutine.
type Tracker struct {
	masks MaskFunc
	sets  []*TrackedSet
}

func NewTracker(masks MaskFunc) *Tracker {
	return &Tracker{masks: masks}
}

// Created records a new entity with no components. Only sets with an empty
// filter match it.
func (t *Tracker) Created(id EntityId) {
	for _, s := range t.sets {
		if s.filter == 0 {
			s.touch(id)
		}
	}
}

// MaskChanged records that id's kinds went from old to current. Sets whose
// filter match flipped get the entity pending.
func (t *Tracker) MaskChanged(id EntityId, old, current Mask) {
	for _, s := range t.sets {
		if old.Contains(s.filter) != current.Contains(s.filter) {
			s.touch(id)
		}
	}
}

// ComponentChanged records that the value of kind on id was replaced or
// edited in place.
func (t *Tracker) ComponentChanged(id EntityId, kind ComponentKind) {
	for _, s := range t.sets {
		if s.filter.Has(kind) {
			s.touch(id)
		}
	}
}

// Destroyed records that id, which had the kinds in old, no longer exists.
func (t *Tracker) Destroyed(id EntityId, old Mask) {
	for _, s := range t.sets {
		if old.Contains(s.filter) {
			s.touch(id)
		}
	}
}

// Sets returns the number of live sets.
func (t *Tracker) Sets() int {
	return len(t.sets)
}

// NewSet creates a set filtering on kinds. existing must yield every live
// entity that currently matches; they become pending additions.
func (t *Tracker) NewSet(kinds []ComponentKind, existing iter.Seq[EntityId]) *TrackedSet {
	s := &TrackedSet{
		tracker:    t,
		filter:     NewMask(kinds...),
		memberIdx:  intmap.New[EntityId, int](64),
		pendingIdx: intmap.New[EntityId, struct{}](64),
	}
	if existing != nil {
		for id := range existing {
			s.touch(id)
		}
	}
	t.sets = append(t.sets, s)
	return s
}

func (t *Tracker) release(s *TrackedSet) {
	t.sets = slices.DeleteFunc(t.sets, func(other *TrackedSet) bool {
		return other == s
	})
}

// TrackedSet is the EntitySet implementation shared by the backends.
//
// An entity becomes pending when its membership may have flipped or one of
// its filtered components changed. Pending entities are resolved on
// ApplyChanges by comparing membership in the previous snapshot with the
// store's current mask:
//
//	was  now  ->  result
//	no   yes      added
//	yes  no       removed
//	yes  yes      changed
//
// so an entity added and edited in the same window is reported once, as
// added, and one added and removed again is not reported at all.
type TrackedSet struct {
	tracker *Tracker
	filter  Mask

	members   []EntityId
	memberIdx *intmap.Map[EntityId, int]

	pending    []EntityId
	pendingIdx *intmap.Map[EntityId, struct{}]

	added   []EntityId
	changed []EntityId
	removed []EntityId

	released bool
}

var _ EntitySet = (*TrackedSet)(nil)

func (s *TrackedSet) touch(id EntityId) {
	if s.pendingIdx.Has(id) {
		return
	}
	s.pendingIdx.Put(id, struct{}{})
	s.pending = append(s.pending, id)
}

func (s *TrackedSet) ApplyChanges() (bool, error) {
	if s.released {
		return false, fmt.Errorf("apply changes on %s: %w", s, ErrInvalidState)
	}

	s.added = s.added[:0]
	s.changed = s.changed[:0]
	s.removed = s.removed[:0]

	for _, id := range s.pending {
		was := s.memberIdx.Has(id)
		mask, alive := s.tracker.masks(id)
		now := alive && mask.Contains(s.filter)

		switch {
		case !was && now:
			s.addMember(id)
			s.added = append(s.added, id)
		case was && !now:
			s.removeMember(id)
			s.removed = append(s.removed, id)
		case was && now:
			s.changed = append(s.changed, id)
		}
	}

	s.pending = s.pending[:0]
	s.pendingIdx.Clear()

	return len(s.added)+len(s.changed)+len(s.removed) > 0, nil
}

func (s *TrackedSet) addMember(id EntityId) {
	s.memberIdx.Put(id, len(s.members))
	s.members = append(s.members, id)
}

// removeMember swaps the last member into the removed slot.
func (s *TrackedSet) removeMember(id EntityId) {
	i, ok := s.memberIdx.Get(id)
	if !ok {
		return
	}
	last := len(s.members) - 1
	if i != last {
		moved := s.members[last]
		s.members[i] = moved
		s.memberIdx.Put(moved, i)
	}
	s.members = s.members[:last]
	s.memberIdx.Del(id)
}

func (s *TrackedSet) HasChanges() bool {
	s.mustLive("HasChanges")
	return len(s.pending) > 0
}

// Added returns the entities that joined the set at the last ApplyChanges.
// The slice is reused by the next ApplyChanges.
func (s *TrackedSet) Added() []EntityId {
	s.mustLive("Added")
	return s.added
}

func (s *TrackedSet) Changed() []EntityId {
	s.mustLive("Changed")
	return s.changed
}

func (s *TrackedSet) Removed() []EntityId {
	s.mustLive("Removed")
	return s.removed
}

// Entities returns the membership snapshot. The slice is owned by the set
// and must not be modified.
func (s *TrackedSet) Entities() []EntityId {
	s.mustLive("Entities")
	return s.members
}

// All iterates the membership snapshot.
func (s *TrackedSet) All() iter.Seq[EntityId] {
	s.mustLive("All")
	return func(yield func(EntityId) bool) {
		for _, id := range s.members {
			if !yield(id) {
				return
			}
		}
	}
}

func (s *TrackedSet) Contains(id EntityId) bool {
	s.mustLive("Contains")
	return s.memberIdx.Has(id)
}

func (s *TrackedSet) Len() int {
	s.mustLive("Len")
	return len(s.members)
}

func (s *TrackedSet) Filter() Mask {
	s.mustLive("Filter")
	return s.filter
}

func (s *TrackedSet) Release() {
	if s.released {
		return
	}
	s.released = true
	s.tracker.release(s)
	s.members = nil
	s.pending = nil
	s.added, s.changed, s.removed = nil, nil, nil
	s.memberIdx.Clear()
	s.pendingIdx.Clear()
}

func (s *TrackedSet) String() string {
	return "entity set " + s.filter.String()
}

func (s *TrackedSet) mustLive(op string) {
	if s.released {
		panic(fmt.Errorf("%s on released %s: %w", op, s, ErrInvalidState))
	}
}
