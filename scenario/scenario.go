// Package scenario loads crowd layouts from YAML and spawns them into an
// entity store.
package scenario

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/plus3/crowdsim/ecs"
)

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Agent describes one agent, or Count agents placed on a ring of radius
// Spread around Position.
type Agent struct {
	Name     string   `yaml:"name"`
	Position Point    `yaml:"position"`
	Target   *Point   `yaml:"target"`
	Speed    float64  `yaml:"speed"`  // 0 leaves the movement default
	Vision   *float64 `yaml:"vision"` // 0 uses the vision default
	Floor    *int64   `yaml:"floor"`
	Static   bool     `yaml:"static"`
	Count    int      `yaml:"count"`
	Spread   float64  `yaml:"spread"`
}

type Scenario struct {
	Name   string  `yaml:"name"`
	Agents []Agent `yaml:"agents"`
}

func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *Scenario) Validate() error {
	var errs []error
	for i, a := range s.Agents {
		label := a.Name
		if label == "" {
			label = "#" + strconv.Itoa(i)
		}
		if !finite(a.Position.X, a.Position.Y, a.Spread) {
			errs = append(errs, fmt.Errorf("agent %s: position must be finite", label))
		}
		if a.Target != nil && !finite(a.Target.X, a.Target.Y) {
			errs = append(errs, fmt.Errorf("agent %s: target must be finite", label))
		}
		if a.Speed < 0 || !finite(a.Speed) {
			errs = append(errs, fmt.Errorf("agent %s: speed %v must not be negative", label, a.Speed))
		}
		if a.Vision != nil && (*a.Vision < 0 || !finite(*a.Vision)) {
			errs = append(errs, fmt.Errorf("agent %s: vision %v must not be negative", label, *a.Vision))
		}
		if a.Count < 0 {
			errs = append(errs, fmt.Errorf("agent %s: count %d must not be negative", label, a.Count))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of entities Spawn creates.
func (s *Scenario) Size() int {
	n := 0
	for _, a := range s.Agents {
		n += max(a.Count, 1)
	}
	return n
}

// Spawn creates every agent in data and returns their ids in file order.
func (s *Scenario) Spawn(data ecs.EntityData) ([]ecs.EntityId, error) {
	ids := make([]ecs.EntityId, 0, s.Size())
	for _, a := range s.Agents {
		count := max(a.Count, 1)
		for i := range count {
			e, err := ecs.Spawn(data, a.components(i, count)...)
			if err != nil {
				return ids, fmt.Errorf("spawn agent %q: %w", a.Name, err)
			}
			ids = append(ids, e.Id())
		}
	}
	return ids, nil
}

func (a Agent) components(i, count int) []ecs.Component {
	pos := a.Position
	name := a.Name
	if count > 1 {
		angle := 2 * math.Pi * float64(i) / float64(count)
		pos.X += a.Spread * math.Cos(angle)
		pos.Y += a.Spread * math.Sin(angle)
		if name != "" {
			name += "-" + strconv.Itoa(i+1)
		}
	}

	components := []ecs.Component{ecs.Position{X: pos.X, Y: pos.Y}}
	if name != "" {
		components = append(components, ecs.Name{Value: name})
	}
	if a.Target != nil {
		components = append(components,
			ecs.Velocity{},
			ecs.MovingTarget{X: a.Target.X, Y: a.Target.Y})
	}
	if a.Speed > 0 {
		components = append(components, ecs.Speed{Value: a.Speed})
	}
	if a.Vision != nil {
		components = append(components, ecs.VisionArea{Radius: *a.Vision})
	}
	if a.Floor != nil {
		components = append(components, ecs.FloorReference{FloorId: *a.Floor})
	}
	if a.Static {
		components = append(components, ecs.Static{})
	}
	return components
}
