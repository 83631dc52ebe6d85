package ecs

import "strconv"

// EntityId is the stable identity of an entity. Stores hand out ids in
// increasing order starting at 1 and never reuse them, so a stale id can
// never alias a live entity. The zero value is never a valid id.
type EntityId uint64

// Valid reports whether e could have been issued by a store.
func (e EntityId) Valid() bool {
	return e != 0
}

func (e EntityId) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Entity is a handle pairing an id with the store that owns it. It carries no
// data of its own; every call goes through the store.
type Entity struct {
	id   EntityId
	data EntityData
}

// EntityOf returns a handle for id in data. The handle is not validated.
func EntityOf(data EntityData, id EntityId) Entity {
	return Entity{id: id, data: data}
}

func (e Entity) Id() EntityId {
	return e.id
}

// Alive reports whether the entity still exists in its store.
func (e Entity) Alive() bool {
	return e.data != nil && e.data.Alive(e.id)
}

// Add attaches c to the entity, following the store's duplicate policy.
func (e Entity) Add(c Component) error {
	return e.data.AddComponent(e.id, c)
}

// Delete removes the component of the given kind. Removing an absent kind is
// not an error.
func (e Entity) Delete(kind ComponentKind) error {
	return e.data.RemoveComponent(e.id, kind)
}

// Get returns the component of the given kind, or false if it is absent.
func (e Entity) Get(kind ComponentKind) (Component, bool) {
	return e.data.GetComponent(e.id, kind)
}

func (e Entity) Has(kind ComponentKind) bool {
	_, ok := e.data.GetComponent(e.id, kind)
	return ok
}

// Destroy removes the entity and all of its components.
func (e Entity) Destroy() error {
	return e.data.DestroyEntity(e.id)
}
