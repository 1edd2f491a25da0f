package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Gripper opens and closes the claws. Open and Close return false without
// doing anything while a previous movement is still running.
type Gripper interface {
	Open(ctx context.Context) (bool, error)
	Close(ctx context.Context) (bool, error)
	Stop(ctx context.Context) error
}

// PositionMotor is a motor that can rotate to an absolute angle.
type PositionMotor interface {
	MoveTo(ctx context.Context, degrees, speed int, brake bool) error
	Busy(ctx context.Context) (bool, error)
	Stop(ctx context.Context, brake bool) error
}

// MotorGripper drives the claws with an EV3 medium motor. Open rotates to
// +Degrees and Close to -Degrees, both relative to the position at startup.
type MotorGripper struct {
	Motor   PositionMotor
	Degrees int
	Speed   int
}

func (g *MotorGripper) Open(ctx context.Context) (bool, error) {
	return g.moveTo(ctx, g.Degrees)
}

func (g *MotorGripper) Close(ctx context.Context) (bool, error) {
	return g.moveTo(ctx, -g.Degrees)
}

func (g *MotorGripper) moveTo(ctx context.Context, degrees int) (bool, error) {
	busy, err := g.Motor.Busy(ctx)
	if err != nil {
		return false, err
	}
	if busy {
		return false, nil
	}
	if err := g.Motor.MoveTo(ctx, degrees, g.Speed, false); err != nil {
		return false, err
	}
	return true, nil
}

func (g *MotorGripper) Stop(ctx context.Context) error {
	return g.Motor.Stop(ctx, false)
}

// Servo is the subset of a Feetech servo the gripper uses.
type Servo interface {
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
	Disable(ctx context.Context) error
}

// ServoGripper drives the claws with a Feetech STS servo. The servo does not
// report completion, so a movement counts as running for its commanded
// move time.
type ServoGripper struct {
	Servo       Servo
	Calibration ServoCalibration
	MoveTime    time.Duration

	now   func() time.Time
	mu    sync.Mutex
	until time.Time
	bus   *feetech.Bus
}

// OpenServoGripper connects to the servo gripper described by cfg.
func OpenServoGripper(ctx context.Context, cfg ServoConfig) (*ServoGripper, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	found, err := bus.Scan(ctx, cfg.ID, cfg.ID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan servo %d: %w", cfg.ID, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("servo %d not found on %s", cfg.ID, cfg.Port)
	}

	servo := feetech.NewServo(bus, found[0].ID, found[0].Model)
	if err := servo.Enable(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servo %d: %w", cfg.ID, err)
	}

	return &ServoGripper{
		Servo:       servo,
		Calibration: cfg.Calibration,
		MoveTime:    time.Duration(cfg.MoveTimeMS) * time.Millisecond,
		bus:         bus,
	}, nil
}

func (g *ServoGripper) Open(ctx context.Context) (bool, error) {
	return g.moveTo(ctx, g.Calibration.OpenPosition())
}

func (g *ServoGripper) Close(ctx context.Context) (bool, error) {
	return g.moveTo(ctx, g.Calibration.ClosedPosition())
}

func (g *ServoGripper) moveTo(ctx context.Context, position int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if now.Before(g.until) {
		return false, nil
	}
	if err := g.Servo.SetPositionWithTime(ctx, position, int(g.MoveTime/time.Millisecond)); err != nil {
		return false, fmt.Errorf("move servo: %w", err)
	}
	g.until = now.Add(g.MoveTime)
	return true, nil
}

// Stop releases the servo torque.
func (g *ServoGripper) Stop(ctx context.Context) error {
	return g.Servo.Disable(ctx)
}

// CloseBus releases the serial bus opened by OpenServoGripper.
func (g *ServoGripper) CloseBus() error {
	if g.bus == nil {
		return nil
	}
	return g.bus.Close()
}

func (g *ServoGripper) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}
