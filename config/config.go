package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Movement   MovementConfig   `toml:"movement"`
	Vision     VisionConfig     `toml:"vision"`
	Spatial    SpatialConfig    `toml:"spatial"`
	Logging    LoggingConfig    `toml:"logging"`
}

type SimulationConfig struct {
	Backend  string `toml:"backend"`   // "memory" or "archetype"
	TimeUnit string `toml:"time_unit"` // "seconds" or "minutes"
	// StepInterval is the clock advance per step, and the wall-clock tick
	// period when RealTime is set.
	StepInterval time.Duration `toml:"step_interval"`
	Steps        int           `toml:"steps"`
	RealTime     bool          `toml:"real_time"`
	MetricsEvery uint64        `toml:"metrics_every"` // 0 disables metrics logging
}

type MovementConfig struct {
	DefaultSpeed float64 `toml:"default_speed"`
}

type VisionConfig struct {
	DefaultRadius float64 `toml:"default_radius"`
}

type SpatialConfig struct {
	Index    string  `toml:"index"` // "grid" or "space"
	CellSize float64 `toml:"cell_size"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Backend:      "memory",
			TimeUnit:     "seconds",
			StepInterval: 100 * time.Millisecond,
			Steps:        600,
			MetricsEvery: 100,
		},
		Movement: MovementConfig{
			DefaultSpeed: 100,
		},
		Vision: VisionConfig{
			DefaultRadius: 50,
		},
		Spatial: SpatialConfig{
			Index:    "grid",
			CellSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate rejects unknown names and non-positive sizes.
func (c *Config) Validate() error {
	var errs []error
	switch c.Simulation.Backend {
	case "memory", "archetype":
	default:
		errs = append(errs, fmt.Errorf("simulation.backend %q: want memory or archetype", c.Simulation.Backend))
	}
	switch c.Simulation.TimeUnit {
	case "seconds", "minutes":
	default:
		errs = append(errs, fmt.Errorf("simulation.time_unit %q: want seconds or minutes", c.Simulation.TimeUnit))
	}
	if c.Simulation.StepInterval <= 0 {
		errs = append(errs, fmt.Errorf("simulation.step_interval %s: must be positive", c.Simulation.StepInterval))
	}
	if c.Simulation.Steps < 0 {
		errs = append(errs, fmt.Errorf("simulation.steps %d: must not be negative", c.Simulation.Steps))
	}
	if !(c.Movement.DefaultSpeed > 0) {
		errs = append(errs, fmt.Errorf("movement.default_speed %v: must be positive", c.Movement.DefaultSpeed))
	}
	if !(c.Vision.DefaultRadius > 0) {
		errs = append(errs, fmt.Errorf("vision.default_radius %v: must be positive", c.Vision.DefaultRadius))
	}
	switch c.Spatial.Index {
	case "grid", "space":
	default:
		errs = append(errs, fmt.Errorf("spatial.index %q: want grid or space", c.Spatial.Index))
	}
	if !(c.Spatial.CellSize > 0) {
		errs = append(errs, fmt.Errorf("spatial.cell_size %v: must be positive", c.Spatial.CellSize))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}
