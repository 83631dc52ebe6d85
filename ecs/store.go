package ecs

import "go.uber.org/zap"

// EntityData is the authority over entity and component lifecycle. Every
// write to simulation state goes through it, which makes it the
// serialization point for edits within a tick. Backends implement this
// interface together with EntitySet; the rest of the module depends on the
// interfaces only.
type EntityData interface {
	// CreateEntity allocates a new entity with no components.
	CreateEntity() EntityId
	// DestroyEntity removes the entity and all of its components. Sets see
	// the removal on their next ApplyChanges. Destroying an unknown or
	// already destroyed id returns ErrUnknownEntity.
	DestroyEntity(id EntityId) error
	Alive(id EntityId) bool
	// Len returns the number of live entities.
	Len() int

	// AddComponent attaches c under c.Kind(). When the kind is already
	// present the store's DuplicatePolicy decides between replacing the
	// value and returning ErrDuplicateComponent.
	AddComponent(id EntityId, c Component) error
	// RemoveComponent detaches the kind. Removing an absent kind is a no-op.
	RemoveComponent(id EntityId, kind ComponentKind) error
	// GetComponent returns a copy of the component, or false when the entity
	// is unknown or lacks the kind.
	GetComponent(id EntityId, kind ComponentKind) (Component, bool)
	// Mask returns the kinds currently attached to id.
	Mask(id EntityId) (Mask, bool)
	// Edit replaces the stored component with fn's result in one step. fn
	// receives the current value and must return a value of the same kind.
	Edit(id EntityId, kind ComponentKind, fn func(Component) Component) error

	// CreateEntitySet returns a new change-tracked view over the entities
	// having every kind in kinds. Each call returns an independent set; all
	// currently matching entities are pending as added.
	CreateEntitySet(kinds ...ComponentKind) EntitySet
}

// EntitySet is a live, filtered view over an EntityData. Mutations in the
// store accumulate as pending diffs until ApplyChanges moves them into the
// Added, Changed and Removed slices and updates the membership snapshot.
// Those slices describe only the window between the last two applies.
//
// ApplyChanges on a released set returns ErrInvalidState. The other methods
// panic with an error wrapping ErrInvalidState.
type EntitySet interface {
	// ApplyChanges reports whether the membership snapshot or any member's
	// tracked components changed since the previous call.
	ApplyChanges() (bool, error)
	// HasChanges reports whether diffs are pending.
	HasChanges() bool

	Added() []EntityId
	Changed() []EntityId
	Removed() []EntityId

	// Entities returns the membership as of the last ApplyChanges, in a
	// deterministic order.
	Entities() []EntityId
	Contains(id EntityId) bool
	Len() int
	Filter() Mask

	// Release detaches the set from change tracking.
	Release()
}

// DuplicatePolicy decides what AddComponent does with a kind the entity
// already has.
type DuplicatePolicy int

const (
	// ReplaceDuplicates overwrites the existing value and logs a warning.
	ReplaceDuplicates DuplicatePolicy = iota
	// RejectDuplicates returns ErrDuplicateComponent.
	RejectDuplicates
)

func (p DuplicatePolicy) String() string {
	switch p {
	case ReplaceDuplicates:
		return "replace"
	case RejectDuplicates:
		return "reject"
	default:
		return "unknown"
	}
}

// Options are shared by every backend constructor.
type Options struct {
	Logger     *zap.Logger
	Duplicates DuplicatePolicy
}

type Option func(*Options)

// WithLogger sets the logger used for warnings. The default discards output.
func WithLogger(log *zap.Logger) Option {
	return func(o *Options) {
		if log != nil {
			o.Logger = log
		}
	}
}

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *Options) {
		o.Duplicates = p
	}
}

// BuildOptions applies opts over the defaults. Backends call it from their
// constructors.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Logger:     zap.NewNop(),
		Duplicates: ReplaceDuplicates,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
