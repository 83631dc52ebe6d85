package spatial

import (
	"github.com/jakecoffman/cp"
	"github.com/kamstrup/intmap"

	"github.com/plus3/crowdsim/ecs"
)

// queryMargin widens the broad-phase box so points exactly on the circle
// survive rounding; the exact check happens here.
const queryMargin = 1e-6

type spaceEntry struct {
	body  *cp.Body
	shape *cp.Shape
	pos   cp.Vector
}

// Space indexes entities in a chipmunk space. Each entity is a zero-radius
// circle on a kinematic body; the space is never stepped, so bodies only
// move through Update.
type Space struct {
	space         *cp.Space
	entries       *intmap.Map[ecs.EntityId, spaceEntry]
	shapeToEntity map[*cp.Shape]ecs.EntityId
}

var _ Index = (*Space)(nil)

func NewSpace() *Space {
	return &Space{
		space:         cp.NewSpace(),
		entries:       intmap.New[ecs.EntityId, spaceEntry](256),
		shapeToEntity: make(map[*cp.Shape]ecs.EntityId),
	}
}

func (s *Space) Update(id ecs.EntityId, pos cp.Vector) {
	entry, ok := s.entries.Get(id)
	if !ok {
		body := cp.NewKinematicBody()
		body.SetPosition(pos)
		shape := cp.NewCircle(body, 0, cp.Vector{})
		s.space.AddBody(body)
		s.space.AddShape(shape)
		s.shapeToEntity[shape] = id
		s.entries.Put(id, spaceEntry{body: body, shape: shape, pos: pos})
		return
	}
	if entry.pos == pos {
		return
	}
	// The shape's bounding box is only recomputed when it enters the space.
	s.space.RemoveShape(entry.shape)
	entry.body.SetPosition(pos)
	s.space.AddShape(entry.shape)
	entry.pos = pos
	s.entries.Put(id, entry)
}

func (s *Space) Remove(id ecs.EntityId) {
	entry, ok := s.entries.Get(id)
	if !ok {
		return
	}
	s.space.RemoveShape(entry.shape)
	s.space.RemoveBody(entry.body)
	delete(s.shapeToEntity, entry.shape)
	s.entries.Del(id)
}

func (s *Space) QueryCircle(center cp.Vector, radius float64) []ecs.EntityId {
	if !validQuery(center, radius) {
		return nil
	}
	var result []ecs.EntityId
	s.space.BBQuery(cp.NewBBForCircle(center, radius+queryMargin), cp.SHAPE_FILTER_ALL,
		func(shape *cp.Shape, _ interface{}) {
			id, ok := s.shapeToEntity[shape]
			if !ok {
				return
			}
			if entry, ok := s.entries.Get(id); ok && within(entry.pos, center, radius) {
				result = append(result, id)
			}
		}, nil)
	return sorted(result)
}

func (s *Space) Len() int {
	return s.entries.Len()
}
