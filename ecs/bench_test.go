package ecs_test

import (
	"testing"

	"github.com/plus3/crowdsim/ecs"
	"github.com/plus3/crowdsim/ecs/archstore"
	"github.com/plus3/crowdsim/ecs/memstore"
)

var backends = []struct {
	name string
	new  func() ecs.EntityData
}{
	{"memory", func() ecs.EntityData { return memstore.New() }},
	{"archetype", func() ecs.EntityData { return archstore.New() }},
}

func BenchmarkSpawn(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = ecs.Spawn(data, ecs.Position{X: 1, Y: 2}, ecs.Velocity{X: 0.5, Y: 0.5})
			}
		})
	}
}

func BenchmarkDestroy(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			ids := make([]ecs.EntityId, b.N)
			for i := 0; i < b.N; i++ {
				e, _ := ecs.Spawn(data, ecs.Position{X: 1, Y: 2}, ecs.Velocity{X: 0.5, Y: 0.5})
				ids[i] = e.Id()
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = data.DestroyEntity(ids[i])
			}
		})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			e, _ := ecs.Spawn(data, ecs.Position{X: 1, Y: 2}, ecs.Velocity{X: 0.5, Y: 0.5})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = ecs.Get[ecs.Position](data, e.Id())
			}
		})
	}
}

func BenchmarkEdit(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			e, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{X: 1})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ecs.Edit(data, e.Id(), func(p *ecs.Position) { p.X++ })
			}
		})
	}
}

func BenchmarkApplyChanges(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			set := data.CreateEntitySet(ecs.KindPosition, ecs.KindVelocity)
			ids := make([]ecs.EntityId, 1000)
			for i := range ids {
				e, _ := ecs.Spawn(data, ecs.Position{}, ecs.Velocity{X: 1})
				ids[i] = e.Id()
			}
			_, _ = set.ApplyChanges()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for _, id := range ids {
					_ = ecs.Edit(data, id, func(v *ecs.Velocity) { v.Y++ })
				}
				_, _ = set.ApplyChanges()
			}
		})
	}
}

func BenchmarkSchedulerOnce(b *testing.B) {
	for _, backend := range backends {
		b.Run(backend.name, func(b *testing.B) {
			data := backend.new()
			for i := 0; i < 1000; i++ {
				_, _ = ecs.Spawn(data, ecs.Position{X: float64(i)}, ecs.Velocity{X: 1, Y: 1})
			}
			scheduler := ecs.NewScheduler(data, nil)
			_ = scheduler.Register(&driftSystem{})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = scheduler.Once(1.0 / 60)
			}
		})
	}
}
