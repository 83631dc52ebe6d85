package systems

import (
	"go.uber.org/zap"

	"github.com/plus3/crowdsim/ecs"
)

// ArrivalRadius is how close a walker must be to its target to count as
// arrived.
const ArrivalRadius = 1.0

// CrowdMetrics summarizes the crowd after a tick.
type CrowdMetrics struct {
	Tick      uint64
	Agents    int
	Moving    int
	Arrived   int
	Observers int
	// Sightings is the sum of every observer's InRange length.
	Sightings int
	AvgSpeed  float64
}

// Metrics is a read-only system that aggregates CrowdMetrics every tick and
// logs them every logEvery ticks. Register it last.
type Metrics struct {
	lifecycle
	log      *zap.Logger
	logEvery uint64

	agents    ecs.EntitySet
	walkers   ecs.EntitySet
	observers ecs.EntitySet

	current CrowdMetrics
}

var _ ecs.System = (*Metrics)(nil)

// NewMetrics returns a Metrics logging to log. logEvery of zero disables
// logging.
func NewMetrics(log *zap.Logger, logEvery uint64) *Metrics {
	if log == nil {
		log = zap.NewNop()
	}
	return &Metrics{
		lifecycle: lifecycle{name: "metrics"},
		log:       log,
		logEvery:  logEvery,
	}
}

func (m *Metrics) Initialize(data ecs.EntityData) error {
	if err := m.initialize(data); err != nil {
		return err
	}
	m.agents = m.subscribe(ecs.KindPosition)
	m.walkers = m.subscribe(ecs.KindPosition, ecs.KindMovingTarget)
	m.observers = m.subscribe(ecs.KindVisionArea)
	return nil
}

func (m *Metrics) Update(frame *ecs.UpdateFrame) error {
	if err := m.begin(); err != nil {
		return err
	}

	metrics := CrowdMetrics{
		Tick:      frame.Tick,
		Agents:    m.agents.Len(),
		Observers: m.observers.Len(),
	}

	var speedSum float64
	for _, id := range m.agents.Entities() {
		vel, ok := ecs.Get[ecs.Velocity](m.data, id)
		if !ok {
			continue
		}
		if speed := vel.Vector().Length(); speed > 0 {
			metrics.Moving++
			speedSum += speed
		}
	}
	if metrics.Moving > 0 {
		metrics.AvgSpeed = speedSum / float64(metrics.Moving)
	}

	for _, id := range m.walkers.Entities() {
		pos, _ := ecs.Get[ecs.Position](m.data, id)
		target, _ := ecs.Get[ecs.MovingTarget](m.data, id)
		if pos.Vector().Near(target.Vector(), ArrivalRadius) {
			metrics.Arrived++
		}
	}

	for _, id := range m.observers.Entities() {
		area, _ := ecs.Get[ecs.VisionArea](m.data, id)
		metrics.Sightings += len(area.InRange)
	}

	m.current = metrics
	if m.logEvery > 0 && frame.Tick%m.logEvery == 0 {
		m.log.Debug("crowd metrics",
			zap.Uint64("tick", metrics.Tick),
			zap.Int("agents", metrics.Agents),
			zap.Int("moving", metrics.Moving),
			zap.Int("arrived", metrics.Arrived),
			zap.Int("sightings", metrics.Sightings),
			zap.Float64("avg_speed", metrics.AvgSpeed))
	}
	return nil
}

// Current returns the metrics of the last tick.
func (m *Metrics) Current() CrowdMetrics {
	return m.current
}

func (m *Metrics) Release() {
	m.release()
}
