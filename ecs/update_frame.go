package ecs

// UpdateFrame is passed to every system during one tick.
type UpdateFrame struct {
	// DeltaTime is the elapsed simulated time since the previous tick in the
	// simulation's canonical unit. It is never negative and may be zero.
	DeltaTime float64
	Tick      uint64
	Commands  *Commands
	Data      EntityData
}

func newUpdateFrame(dt float64, tick uint64, data EntityData, commands *Commands) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Tick:      tick,
		Commands:  commands,
		Data:      data,
	}
}
