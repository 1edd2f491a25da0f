package ev3

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Motor is a large or medium motor on one output port.
type Motor struct {
	brick *Brick
	port  Port

	// Ramp is the ramp-up time applied by StartMove.
	Ramp time.Duration
}

// NewMotor returns a motor on the given port.
func NewMotor(b *Brick, port Port) *Motor {
	return &Motor{brick: b, port: port}
}

// Port returns the motor's output port.
func (m *Motor) Port() Port {
	return m.port
}

// StartMove starts the motor running until stopped. speed is 0..100,
// direction is +1 (forward) or -1 (backward).
func (m *Motor) StartMove(ctx context.Context, speed, direction int) error {
	if speed < 0 || speed > 100 {
		return fmt.Errorf("speed %d out of range", speed)
	}
	if direction != 1 && direction != -1 {
		return fmt.Errorf("direction %d must be 1 or -1", direction)
	}
	v := speed * direction

	var body []byte
	if ramp := int(m.Ramp / time.Millisecond); ramp > 0 {
		// A zero constant-speed time keeps the motor running after the ramp.
		body = ops(
			op(opOutputTimeSpeed), lc(layer), lc(int(m.port)), lc(v),
			lc(ramp), lc(0), lc(0), lc(0),
		)
	} else {
		body = ops(
			op(opOutputSpeed), lc(layer), lc(int(m.port)), lc(v),
			op(opOutputStart), lc(layer), lc(int(m.port)),
		)
	}
	if err := m.brick.Send(ctx, body); err != nil {
		return fmt.Errorf("start motor %s: %w", m.port, err)
	}
	return nil
}

// Stop stops the motor. With brake false the motor coasts.
func (m *Motor) Stop(ctx context.Context, brake bool) error {
	if err := m.brick.Send(ctx, stopOps(m.port, brake)); err != nil {
		return fmt.Errorf("stop motor %s: %w", m.port, err)
	}
	return nil
}

// ResetPosition makes the current position the zero of MoveTo.
func (m *Motor) ResetPosition(ctx context.Context) error {
	body := ops(
		op(opOutputReset), lc(layer), lc(int(m.port)),
		op(opOutputClrCount), lc(layer), lc(int(m.port)),
	)
	if err := m.brick.Send(ctx, body); err != nil {
		return fmt.Errorf("reset motor %s: %w", m.port, err)
	}
	return nil
}

// Position returns the tacho count in degrees.
func (m *Motor) Position(ctx context.Context) (int, error) {
	body := ops(op(opOutputGetCount), lc(layer), lc(m.port.Number()), GVX(0))
	data, err := m.brick.Query(ctx, body, 4)
	if err != nil {
		return 0, fmt.Errorf("read motor %s position: %w", m.port, err)
	}
	return int(int32(binary.LittleEndian.Uint32(data))), nil
}

// Busy reports whether the motor is executing a timed or stepped movement.
func (m *Motor) Busy(ctx context.Context) (bool, error) {
	body := ops(op(opOutputTest), lc(layer), lc(int(m.port)), GVX(0))
	data, err := m.brick.Query(ctx, body, 1)
	if err != nil {
		return false, fmt.Errorf("test motor %s: %w", m.port, err)
	}
	return data[0] != 0, nil
}

// MoveTo rotates the motor to an absolute position (degrees from the last
// ResetPosition) at the given speed. It returns once the movement has been
// issued, not when it completes.
func (m *Motor) MoveTo(ctx context.Context, degrees, speed int, brake bool) error {
	if speed <= 0 || speed > 100 {
		return fmt.Errorf("speed %d out of range", speed)
	}
	pos, err := m.Position(ctx)
	if err != nil {
		return err
	}
	diff := degrees - pos
	if diff == 0 {
		return nil
	}
	if diff < 0 {
		speed, diff = -speed, -diff
	}

	body := ops(
		op(opOutputStepSpeed), lc(layer), lc(int(m.port)), lc(speed),
		lc(0), lc(diff), lc(0), lc(brakeFlag(brake)),
	)
	if err := m.brick.Send(ctx, body); err != nil {
		return fmt.Errorf("move motor %s: %w", m.port, err)
	}
	return nil
}

// StopAll stops the given ports in a single command.
func StopAll(ctx context.Context, b *Brick, brake bool, ports ...Port) error {
	var mask Port
	for _, p := range ports {
		mask |= p
	}
	if mask == 0 {
		return nil
	}
	if err := b.Send(ctx, stopOps(mask, brake)); err != nil {
		return fmt.Errorf("stop motors: %w", err)
	}
	return nil
}

func stopOps(ports Port, brake bool) []byte {
	return ops(op(opOutputStop), lc(layer), lc(int(ports)), lc(brakeFlag(brake)))
}

func brakeFlag(brake bool) int {
	if brake {
		return 1
	}
	return 0
}
