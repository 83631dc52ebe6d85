package sim

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/plus3/crowdsim/config"
	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/ecs/archstore"
	"github.com/plus3/crowdsim/ecs/memstore"
	"github.com/plus3/crowdsim/spatial"
	"github.com/plus3/crowdsim/systems"
)

// NewStore builds the entity store backend named by backend.
func NewStore(backend string, opts ...ecs.Option) (ecs.EntityData, error) {
	switch backend {
	case "memory":
		return memstore.New(opts...), nil
	case "archetype":
		return archstore.New(opts...), nil
	default:
		return nil, fmt.Errorf("backend %q: want memory or archetype", backend)
	}
}

// AgentView is a read-only copy of one agent's state.
type AgentView struct {
	Id       ecs.EntityId
	Name     string
	Position cp.Vector
	Velocity cp.Vector
	InRange  []ecs.EntityId
	Floor    int64
	OnFloor  bool
}

// Snapshot is what observers such as renderers read between ticks.
type Snapshot struct {
	Tick   uint64
	Agents []AgentView
}

// Simulation owns a store, its systems and the adapter that ticks them.
// Systems run in the order movement, kinematics, spatial sync, vision,
// metrics.
type Simulation struct {
	log       *zap.Logger
	data      ecs.EntityData
	scheduler *ecs.Scheduler
	adapter   *Adapter
	index     spatial.Index
	metrics   *systems.Metrics

	agents ecs.EntitySet
	floors ecs.EntitySet
}

var _ Steppable = (*Simulation)(nil)

func New(cfg *config.Config, log *zap.Logger) (*Simulation, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scale, err := TimeScale(cfg.Simulation.TimeUnit)
	if err != nil {
		return nil, err
	}
	data, err := NewStore(cfg.Simulation.Backend, ecs.WithLogger(log.Named("store")))
	if err != nil {
		return nil, err
	}
	index, err := spatial.New(spatial.Kind(cfg.Spatial.Index), cfg.Spatial.CellSize)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		log:       log,
		data:      data,
		scheduler: ecs.NewScheduler(data, log.Named("scheduler")),
		index:     index,
		metrics:   systems.NewMetrics(log.Named("metrics"), cfg.Simulation.MetricsEvery),
	}
	if s.adapter, err = NewAdapter(s.scheduler, scale); err != nil {
		return nil, err
	}

	for _, system := range []ecs.System{
		systems.NewMovement(cfg.Movement.DefaultSpeed),
		systems.NewKinematics(),
		systems.NewSpatialSync(index),
		systems.NewVision(index, cfg.Vision.DefaultRadius),
		s.metrics,
	} {
		if err := s.scheduler.Register(system); err != nil {
			s.scheduler.Close()
			return nil, err
		}
	}
	s.agents = data.CreateEntitySet(ecs.KindPosition)
	s.floors = data.CreateEntitySet(ecs.KindFloorReference)

	log.Info("simulation ready",
		zap.String("backend", cfg.Simulation.Backend),
		zap.String("index", cfg.Spatial.Index),
		zap.String("time_unit", cfg.Simulation.TimeUnit))
	return s, nil
}

func (s *Simulation) Data() ecs.EntityData {
	return s.data
}

func (s *Simulation) Scheduler() *ecs.Scheduler {
	return s.scheduler
}

// Step advances the simulation to clock reading now, in seconds.
func (s *Simulation) Step(now float64) error {
	return s.adapter.Step(now)
}

// SetTarget points id at (x, y). Entities without a Velocity get one so
// movement picks them up.
func (s *Simulation) SetTarget(id ecs.EntityId, x, y float64) error {
	if !s.data.Alive(id) {
		return fmt.Errorf("set target of %s: %w", id, ecs.ErrUnknownEntity)
	}
	if !ecs.Has[ecs.Velocity](s.data, id) {
		if err := s.data.AddComponent(id, ecs.Velocity{}); err != nil {
			return fmt.Errorf("set target of %s: %w", id, err)
		}
	}
	if ecs.Has[ecs.MovingTarget](s.data, id) {
		return ecs.Edit(s.data, id, func(t *ecs.MovingTarget) {
			t.X, t.Y = x, y
		})
	}
	return s.data.AddComponent(id, ecs.MovingTarget{X: x, Y: y})
}

// Floor returns the entities on floorId in ascending id order.
func (s *Simulation) Floor(floorId int64) ([]ecs.EntityId, error) {
	if _, err := s.floors.ApplyChanges(); err != nil {
		return nil, err
	}
	var ids []ecs.EntityId
	for _, id := range s.floors.Entities() {
		if ref, ok := ecs.Get[ecs.FloorReference](s.data, id); ok && ref.FloorId == floorId {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Snapshot copies the state of every positioned entity, ordered by id.
func (s *Simulation) Snapshot() (Snapshot, error) {
	if _, err := s.agents.ApplyChanges(); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Tick:   s.scheduler.Tick(),
		Agents: make([]AgentView, 0, s.agents.Len()),
	}
	for _, id := range s.agents.Entities() {
		view := AgentView{Id: id}
		if pos, ok := ecs.Get[ecs.Position](s.data, id); ok {
			view.Position = pos.Vector()
		}
		if vel, ok := ecs.Get[ecs.Velocity](s.data, id); ok {
			view.Velocity = vel.Vector()
		}
		if name, ok := ecs.Get[ecs.Name](s.data, id); ok {
			view.Name = name.Value
		}
		if area, ok := ecs.Get[ecs.VisionArea](s.data, id); ok {
			view.InRange = area.InRange
		}
		if ref, ok := ecs.Get[ecs.FloorReference](s.data, id); ok {
			view.Floor, view.OnFloor = ref.FloorId, true
		}
		snap.Agents = append(snap.Agents, view)
	}
	slices.SortFunc(snap.Agents, func(a, b AgentView) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return snap, nil
}

// Metrics returns the crowd metrics of the last tick.
func (s *Simulation) Metrics() systems.CrowdMetrics {
	return s.metrics.Current()
}

func (s *Simulation) Stats() *ecs.SchedulerStats {
	return s.scheduler.GetStats()
}

// Close releases every system and the simulation's own sets.
func (s *Simulation) Close() {
	s.agents.Release()
	s.floors.Release()
	s.scheduler.Close()
	s.log.Info("simulation closed", zap.Uint64("ticks", s.scheduler.Tick()))
}
