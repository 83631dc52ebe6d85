package ecs

import (
	"errors"
	"fmt"
)

// Commands buffers structural changes requested during a tick. The Scheduler
// flushes the buffer after the last system ran, so systems can destroy or
// spawn entities while iterating their sets.
type Commands struct {
	spawns  []spawnCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []deferCommand
}

func NewCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []Component
}

type addComponentCommand struct {
	entity    EntityId
	component Component
}

type removeComponentCommand struct {
	entity EntityId
	kind   ComponentKind
}

// Defer queues a function to run after all structural commands.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues the creation of an entity with the given components.
func (c *Commands) Spawn(components ...Component) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Delete queues the destruction of an entity.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

func (c *Commands) AddComponent(entity EntityId, component Component) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

func (c *Commands) RemoveComponent(entity EntityId, kind ComponentKind) {
	c.removes = append(c.removes, removeComponentCommand{
		entity: entity,
		kind:   kind,
	})
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies the queued commands to data in the order deletes, removes,
// adds, spawns, defers, and resets the buffer. Adds and removes aimed at an
// entity deleted in the same flush are dropped. Every failure is collected
// into the returned error.
func (c *Commands) Flush(data EntityData) error {
	defer c.Reset()

	var errs []error
	deleted := make(map[EntityId]bool, len(c.deletes))

	for _, id := range c.deletes {
		if deleted[id] {
			continue
		}
		if err := data.DestroyEntity(id); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
		}
		deleted[id] = true
	}

	for _, cmd := range c.removes {
		if deleted[cmd.entity] {
			continue
		}
		if err := data.RemoveComponent(cmd.entity, cmd.kind); err != nil {
			errs = append(errs, fmt.Errorf("remove %s from %s: %w", cmd.kind, cmd.entity, err))
		}
	}

	for _, cmd := range c.adds {
		if deleted[cmd.entity] {
			continue
		}
		if err := data.AddComponent(cmd.entity, cmd.component); err != nil {
			errs = append(errs, fmt.Errorf("add component to %s: %w", cmd.entity, err))
		}
	}

	for _, cmd := range c.spawns {
		if _, err := Spawn(data, cmd.components...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	return errors.Join(errs...)
}

// Reset drops every queued command.
func (c *Commands) Reset() {
	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
