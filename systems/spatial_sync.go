package systems

import (
	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/spatial"
)

// SpatialSync mirrors Position into a spatial index using its set's diffs.
// It must run after anything that moves entities and before Vision.
type SpatialSync struct {
	lifecycle
	index     spatial.Index
	positions ecs.EntitySet
}

var _ ecs.System = (*SpatialSync)(nil)

func NewSpatialSync(index spatial.Index) *SpatialSync {
	return &SpatialSync{
		lifecycle: lifecycle{name: "spatial sync"},
		index:     index,
	}
}

func (s *SpatialSync) Initialize(data ecs.EntityData) error {
	if err := s.initialize(data); err != nil {
		return err
	}
	s.positions = s.subscribe(ecs.KindPosition)
	return nil
}

func (s *SpatialSync) Update(frame *ecs.UpdateFrame) error {
	if err := s.begin(); err != nil {
		return err
	}
	for _, id := range s.positions.Removed() {
		s.index.Remove(id)
	}
	for _, id := range s.positions.Added() {
		s.sync(id)
	}
	for _, id := range s.positions.Changed() {
		s.sync(id)
	}
	return nil
}

func (s *SpatialSync) sync(id ecs.EntityId) {
	if pos, ok := ecs.Get[ecs.Position](s.data, id); ok {
		s.index.Update(id, pos.Vector())
	}
}

func (s *SpatialSync) Release() {
	s.release()
}
