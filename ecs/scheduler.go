package ecs

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	Ticks           uint64
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler runs systems in registration order, one tick at a time. Systems
// never run concurrently and ticks never overlap. Because every system
// applies its entity sets at the start of its own Update, a system sees the
// structural changes made by systems registered before it in the same tick;
// order registration accordingly.
type Scheduler struct {
	data        EntityData
	log         *zap.Logger
	systems     []System
	systemStats []*systemStatsInternal
	commands    *Commands
	tick        uint64
	closed      bool
}

// NewScheduler creates a scheduler over data. A nil logger discards output.
func NewScheduler(data EntityData, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		data:     data,
		log:      log,
		systems:  make([]System, 0),
		commands: NewCommands(),
	}
}

// Register initializes system and appends it to the update order.
func (s *Scheduler) Register(system System) error {
	if s.closed {
		return fmt.Errorf("register on closed scheduler: %w", ErrInvalidState)
	}
	for _, existing := range s.systems {
		if existing == system {
			return fmt.Errorf("system %s registered twice: %w", systemName(system), ErrInvalidState)
		}
	}

	name := systemName(system)
	if err := system.Initialize(s.data); err != nil {
		return fmt.Errorf("initialize %s: %w", name, err)
	}
	s.systems = append(s.systems, system)

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        name,
		minDuration: time.Duration(1<<63 - 1),
	})
	s.log.Debug("system registered", zap.String("system", name), zap.Int("order", len(s.systems)-1))
	return nil
}

func systemName(system System) string {
	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	return systemType.Name()
}

// Once executes all registered systems once with the given delta time, then
// flushes the deferred commands. The first system error aborts the tick.
func (s *Scheduler) Once(dt float64) error {
	if s.closed {
		return fmt.Errorf("tick on closed scheduler: %w", ErrInvalidState)
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("delta time %v: %w", dt, ErrInvalidState)
	}

	s.tick++
	frame := newUpdateFrame(dt, s.tick, s.data, s.commands)

	for i, system := range s.systems {
		start := time.Now()
		err := system.Update(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}

		if err != nil {
			s.commands.Reset()
			s.log.Error("system update failed",
				zap.String("system", stats.name),
				zap.Uint64("tick", s.tick),
				zap.Error(err))
			return fmt.Errorf("system %s at tick %d: %w", stats.name, s.tick, err)
		}
	}

	if err := s.commands.Flush(s.data); err != nil {
		return fmt.Errorf("flush commands at tick %d: %w", s.tick, err)
	}
	return nil
}

// Tick returns the number of ticks started so far.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// Close releases every system in reverse registration order. Further calls
// to Once or Register fail with ErrInvalidState.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.systems) - 1; i >= 0; i-- {
		s.systems[i].Release()
	}
	s.log.Debug("scheduler closed", zap.Uint64("ticks", s.tick))
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Ticks:       s.tick,
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		minDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
			minDuration = internal.minDuration
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
