package ecs_test

import (
	"errors"

	"github.com/plus3/crowdsim/ecs"
)

// driftSystem moves every entity with a Velocity by velocity*dt.
type driftSystem struct {
	entities ecs.EntitySet
	data     ecs.EntityData
	updates  int
	released bool
}

func (s *driftSystem) Initialize(data ecs.EntityData) error {
	s.data = data
	s.entities = data.CreateEntitySet(ecs.KindPosition, ecs.KindVelocity)
	return nil
}

func (s *driftSystem) Update(frame *ecs.UpdateFrame) error {
	if _, err := s.entities.ApplyChanges(); err != nil {
		return err
	}
	s.updates++
	for _, id := range s.entities.Entities() {
		vel, _ := ecs.Get[ecs.Velocity](s.data, id)
		err := ecs.Edit(s.data, id, func(p *ecs.Position) {
			p.X += vel.X * frame.DeltaTime
			p.Y += vel.Y * frame.DeltaTime
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *driftSystem) Release() {
	s.released = true
	s.entities.Release()
}

// funcSystem runs update on every tick and records lifecycle calls.
type funcSystem struct {
	initErr   error
	update    func(frame *ecs.UpdateFrame) error
	onRelease func()
	inits     int
	released  int
}

func (s *funcSystem) Initialize(ecs.EntityData) error {
	s.inits++
	return s.initErr
}

func (s *funcSystem) Update(frame *ecs.UpdateFrame) error {
	if s.update == nil {
		return nil
	}
	return s.update(frame)
}

func (s *funcSystem) Release() {
	s.released++
	if s.onRelease != nil {
		s.onRelease()
	}
}

var errBoom = errors.New("boom")
