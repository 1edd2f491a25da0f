// Package drive maps held arrow keys to differential drive commands.
package drive

// Speeds in percent of full motor power.
const (
	SpeedMax   = 100
	SpeedHalf  = 50
	TurnOffset = 50
)

// Directions.
const (
	Forward  = 1
	Backward = -1
)

// Keys is the set of held directional keys.
type Keys struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Any reports whether any directional key is held.
func (k Keys) Any() bool {
	return k.Up || k.Down || k.Left || k.Right
}

// Motion is a speed and direction for each drive motor.
type Motion struct {
	LeftSpeed  int
	LeftDir    int
	RightSpeed int
	RightDir   int
}

// Stopped reports whether both motors are at rest. A stopped motion is
// dispatched as a stop command, never as a zero-speed move.
func (m Motion) Stopped() bool {
	return m.LeftSpeed == 0 && m.RightSpeed == 0
}

// Left returns the signed left motor speed.
func (m Motion) Left() int {
	return m.LeftSpeed * m.LeftDir
}

// Right returns the signed right motor speed.
func (m Motion) Right() int {
	return m.RightSpeed * m.RightDir
}

// Map returns the motion for the held keys. Up takes precedence over Down.
// Left and Right steer by slowing one side while driving, and pivot in
// place otherwise.
func Map(k Keys) Motion {
	var m Motion

	switch {
	case k.Up:
		m = Motion{SpeedMax, Forward, SpeedMax, Forward}
	case k.Down:
		m = Motion{SpeedMax, Backward, SpeedMax, Backward}
	default:
		// Pivot. With both held the right pivot is evaluated last and wins.
		if k.Left {
			m = Motion{SpeedHalf, Backward, SpeedHalf, Forward}
		}
		if k.Right {
			m = Motion{SpeedHalf, Forward, SpeedHalf, Backward}
		}
		return m
	}

	if k.Left {
		m.LeftSpeed = SpeedMax - TurnOffset
	}
	if k.Right {
		m.RightSpeed = SpeedMax - TurnOffset
	}
	return m
}
