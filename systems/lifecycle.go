// Package systems holds the crowd simulation's per-tick behavior. Each
// system subscribes to entity sets in Initialize and writes its results back
// through the store.
package systems

import (
	"fmt"

	"github.com/plus3/crowdsim/ecs"
)

// lifecycle guards the constructed -> initialized -> released progression
// shared by every system in this package.
type lifecycle struct {
	name     string
	data     ecs.EntityData
	sets     []ecs.EntitySet
	ready    bool
	released bool
}

func (l *lifecycle) initialize(data ecs.EntityData) error {
	if l.ready || l.released {
		return fmt.Errorf("initialize %s twice: %w", l.name, ecs.ErrInvalidState)
	}
	if data == nil {
		return fmt.Errorf("initialize %s without entity data: %w", l.name, ecs.ErrInvalidState)
	}
	l.data = data
	l.ready = true
	return nil
}

func (l *lifecycle) subscribe(kinds ...ecs.ComponentKind) ecs.EntitySet {
	set := l.data.CreateEntitySet(kinds...)
	l.sets = append(l.sets, set)
	return set
}

// begin checks the lifecycle and applies every subscribed set.
func (l *lifecycle) begin() error {
	if !l.ready {
		state := "before initialize"
		if l.released {
			state = "after release"
		}
		return fmt.Errorf("update %s %s: %w", l.name, state, ecs.ErrInvalidState)
	}
	for _, set := range l.sets {
		if _, err := set.ApplyChanges(); err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
	}
	return nil
}

func (l *lifecycle) release() {
	if l.released {
		return
	}
	for _, set := range l.sets {
		set.Release()
	}
	l.sets = nil
	l.ready = false
	l.released = true
}
