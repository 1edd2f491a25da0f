package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ev3fleet/ev3remote/pkg/ev3"
)

// Robot is a connected robot.
type Robot struct {
	Identity   Identity
	Brick      *ev3.Brick
	Drivetrain *Drivetrain
	Gripper    Gripper // nil without a gripper
	Jukebox    *ev3.Jukebox

	servo *ServoGripper
}

// Connect opens the brick of robot id and sets up its motors. host, if set,
// is dialled directly instead of waiting for the brick's WiFi beacon.
func Connect(ctx context.Context, cfg *Config, id Identity, host string) (*Robot, error) {
	var (
		brick *ev3.Brick
		err   error
	)
	switch cfg.Transport {
	case WiFi:
		brick, err = ev3.DialWiFi(ctx, id.BrickSerial(), host)
	case Bluetooth:
		if id.SerialPort == "" {
			return nil, fmt.Errorf("robot %s has no bluetooth serial port configured", id.ID)
		}
		brick, err = ev3.OpenSerial(id.SerialPort)
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", id.ID, err)
	}

	left := ev3.NewMotor(brick, cfg.Ports.Left)
	right := ev3.NewMotor(brick, cfg.Ports.Right)
	left.Ramp = cfg.Ramp()
	right.Ramp = cfg.Ramp()

	r := &Robot{
		Identity:   id,
		Brick:      brick,
		Drivetrain: &Drivetrain{Left: left, Right: right},
		Jukebox:    ev3.NewJukebox(brick),
	}

	switch cfg.Gripper.Kind {
	case GripperKindMotor:
		m := ev3.NewMotor(brick, cfg.Ports.Gripper)
		if err := m.ResetPosition(ctx); err != nil {
			brick.Close()
			return nil, fmt.Errorf("gripper: %w", err)
		}
		r.Gripper = &MotorGripper{Motor: m, Degrees: cfg.Gripper.Degrees, Speed: cfg.Gripper.Speed}
	case GripperKindServo:
		g, err := OpenServoGripper(ctx, cfg.Gripper.Servo)
		if err != nil {
			brick.Close()
			return nil, fmt.Errorf("gripper: %w", err)
		}
		r.Gripper = g
		r.servo = g
	}

	return r, nil
}

// Close closes the brick connection and the gripper bus.
func (r *Robot) Close() error {
	var errs []error
	if r.servo != nil {
		if err := r.servo.CloseBus(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.Brick.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
