package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plus3/crowdsim/config"
	"github.com/plus3/crowdsim/scenario"
	"github.com/plus3/crowdsim/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a TOML config file. Defaults are used when empty.")
	scenarioPath := flag.String("scenario", "scenarios/lobby.yaml", "Path to a YAML scenario.")
	backend := flag.String("backend", "", "Override simulation.backend: memory or archetype.")
	steps := flag.Int("steps", -1, "Override simulation.steps.")
	realTime := flag.Bool("real-time", false, "Tick on the wall clock until interrupted.")
	profileMode := flag.String("profile", "", "Write a profile: cpu or mem.")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *backend != "" {
		cfg.Simulation.Backend = *backend
	}
	if *steps >= 0 {
		cfg.Simulation.Steps = *steps
	}
	if *realTime {
		cfg.Simulation.RealTime = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("profile %q: want cpu or mem", *profileMode)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		return err
	}

	simulation, err := sim.New(cfg, log)
	if err != nil {
		return err
	}
	defer simulation.Close()

	ids, err := sc.Spawn(simulation.Data())
	if err != nil {
		return err
	}
	log.Info("scenario loaded",
		zap.String("scenario", sc.Name),
		zap.Int("agents", len(ids)),
		zap.String("backend", cfg.Simulation.Backend),
		zap.String("index", cfg.Spatial.Index))

	start := time.Now()
	if cfg.Simulation.RealTime {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("running in real time, interrupt to stop",
			zap.Duration("interval", cfg.Simulation.StepInterval))
		if err := sim.RunRealTime(ctx, cfg.Simulation.StepInterval, simulation); err != nil {
			return err
		}
	} else {
		interval := cfg.Simulation.StepInterval.Seconds()
		schedule := sim.NewSchedule()
		if err := schedule.Repeat(0, interval, simulation); err != nil {
			return err
		}
		if err := schedule.RunUntil(float64(cfg.Simulation.Steps) * interval); err != nil {
			return err
		}
	}
	log.Info("simulation finished",
		zap.Uint64("ticks", simulation.Scheduler().Tick()),
		zap.Duration("elapsed", time.Since(start)))

	return printReport(os.Stdout, simulation)
}

func printReport(w io.Writer, simulation *sim.Simulation) error {
	snap, err := simulation.Snapshot()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "tick %d\n\n", snap.Tick)
	fmt.Fprintln(tw, "ID\tNAME\tPOSITION\tVELOCITY\tFLOOR\tIN RANGE")
	for _, a := range snap.Agents {
		floor := "-"
		if a.OnFloor {
			floor = fmt.Sprint(a.Floor)
		}
		fmt.Fprintf(tw, "%d\t%s\t(%.1f, %.1f)\t(%.1f, %.1f)\t%s\t%v\n",
			a.Id, a.Name, a.Position.X, a.Position.Y, a.Velocity.X, a.Velocity.Y, floor, a.InRange)
	}

	m := simulation.Metrics()
	fmt.Fprintf(tw, "\nagents %d, moving %d, arrived %d, avg speed %.2f\n",
		m.Agents, m.Moving, m.Arrived, m.AvgSpeed)

	fmt.Fprintln(tw, "\nSYSTEM\tRUNS\tAVG\tMAX")
	for _, s := range simulation.Stats().Systems {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.ExecutionCount, s.AvgDuration, s.MaxDuration)
	}
	return tw.Flush()
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
