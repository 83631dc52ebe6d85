package ecs

import "errors"

var (
	// ErrUnknownEntity is returned when an operation references an entity
	// that was destroyed or never created.
	ErrUnknownEntity = errors.New("ecs: unknown entity")
	// ErrDuplicateComponent is returned by stores using RejectDuplicates when
	// a kind is added to an entity that already has it.
	ErrDuplicateComponent = errors.New("ecs: duplicate component")
	// ErrMissingComponent is returned by Edit when the entity lacks the kind.
	ErrMissingComponent = errors.New("ecs: missing component")
	// ErrInvalidState is returned when an object is used outside its
	// lifecycle, such as a released entity set or an uninitialized system.
	ErrInvalidState = errors.New("ecs: invalid state")
	// ErrInvalidKind is returned for component kinds outside the enumeration.
	ErrInvalidKind = errors.New("ecs: invalid component kind")
	ErrNilComponent = errors.New("ecs: component is nil")
)
