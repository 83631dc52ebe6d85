package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/crowdsim/config"
	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/ecs/archstore"
	"github.com/plus3/crowdsim/sim"
)

const worldSize = 5000.0

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of agents to create.")
	backend := flag.String("backend", "memory", "Entity store backend: memory or archetype.")
	index := flag.String("index", "grid", "Spatial index: grid or space.")
	churn := flag.Float64("churn", 0.01, "Fraction of agents destroyed and respawned every update.")
	seed := flag.Int64("seed", 1, "Random seed for the crowd layout.")
	profileMode := flag.String("profile", "", "Write a profile: cpu or mem.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("profile %q: want cpu or mem", *profileMode)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg := config.Default()
	cfg.Simulation.Backend = *backend
	cfg.Spatial.Index = *index
	cfg.Simulation.MetricsEvery = 0

	simulation, err := sim.New(cfg, log.Named("sim").WithOptions(zap.IncreaseLevel(zap.WarnLevel)))
	if err != nil {
		return err
	}
	defer simulation.Close()

	rng := rand.New(rand.NewSource(*seed))
	crowd := newCrowd(simulation, rng)

	log.Info("populating store", zap.Int("entities", *entityCount), zap.String("backend", *backend))
	for i := 0; i < *entityCount; i++ {
		if err := crowd.spawn(); err != nil {
			return err
		}
	}

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Backend:        *backend,
		Index:          *index,
		Churn:          *churn,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running simulation", zap.Duration("duration", *duration))
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	if err := simulation.Step(0); err != nil {
		return err
	}

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			if err := crowd.churn(*churn); err != nil {
				return err
			}

			updateStart := time.Now()
			if err := simulation.Step(time.Since(startTime).Seconds()); err != nil {
				return err
			}
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	report.Scheduler = simulation.Stats()
	report.Crowd = simulation.Metrics()
	if store, ok := simulation.Data().(*archstore.Store); ok {
		store.Compact()
		stats := store.CollectStats()
		report.Archetypes = &stats
	}
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Println("--- End of Report ---")
	return nil
}

// crowd spawns random walkers and keeps track of them for churn.
type crowd struct {
	sim  *sim.Simulation
	rng  *rand.Rand
	ids  []ecs.EntityId
	next int
}

func newCrowd(s *sim.Simulation, rng *rand.Rand) *crowd {
	return &crowd{sim: s, rng: rng}
}

func (c *crowd) point() (float64, float64) {
	return c.rng.Float64() * worldSize, c.rng.Float64() * worldSize
}

func (c *crowd) spawn() error {
	c.next++
	x, y := c.point()
	components := []ecs.Component{
		ecs.Name{Value: fmt.Sprintf("agent-%d", c.next)},
		ecs.Position{X: x, Y: y},
		ecs.FloorReference{FloorId: int64(c.rng.Intn(3))},
	}
	switch r := c.rng.Float64(); {
	case r < 0.1:
		components = append(components, ecs.Static{}, ecs.VisionArea{Radius: 150})
	case r < 0.6:
		components = append(components, ecs.VisionArea{Radius: 40 + c.rng.Float64()*60})
	}
	if c.rng.Float64() < 0.5 {
		components = append(components, ecs.Speed{Value: 20 + c.rng.Float64()*120})
	}

	e, err := ecs.Spawn(c.sim.Data(), components...)
	if err != nil {
		return err
	}
	if !e.Has(ecs.KindStatic) {
		tx, ty := c.point()
		if err := c.sim.SetTarget(e.Id(), tx, ty); err != nil {
			return err
		}
	}
	c.ids = append(c.ids, e.Id())
	return nil
}

// churn destroys a fraction of the crowd and spawns replacements.
func (c *crowd) churn(fraction float64) error {
	n := int(float64(len(c.ids)) * fraction)
	for i := 0; i < n && len(c.ids) > 0; i++ {
		victim := c.rng.Intn(len(c.ids))
		if err := c.sim.Data().DestroyEntity(c.ids[victim]); err != nil {
			return err
		}
		c.ids[victim] = c.ids[len(c.ids)-1]
		c.ids = c.ids[:len(c.ids)-1]
		if err := c.spawn(); err != nil {
			return err
		}
	}
	return nil
}
