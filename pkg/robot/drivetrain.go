package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ev3fleet/ev3remote/pkg/drive"
)

// Motor is a drive motor that runs until stopped.
type Motor interface {
	StartMove(ctx context.Context, speed, direction int) error
	Stop(ctx context.Context, brake bool) error
}

// Drivetrain is the left/right motor pair of a two-wheel robot.
type Drivetrain struct {
	Left  Motor
	Right Motor
}

// Apply commands both motors. A stopped motion coasts both motors to a halt
// instead of issuing a zero-speed move.
func (d *Drivetrain) Apply(ctx context.Context, m drive.Motion) error {
	if m.Stopped() {
		return d.Stop(ctx)
	}
	if err := d.Left.StartMove(ctx, m.LeftSpeed, m.LeftDir); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := d.Right.StartMove(ctx, m.RightSpeed, m.RightDir); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	return nil
}

// Stop coasts both motors. Both are always attempted.
func (d *Drivetrain) Stop(ctx context.Context) error {
	var errs []error
	if err := d.Left.Stop(ctx, false); err != nil {
		errs = append(errs, fmt.Errorf("left: %w", err))
	}
	if err := d.Right.Stop(ctx, false); err != nil {
		errs = append(errs, fmt.Errorf("right: %w", err))
	}
	return errors.Join(errs...)
}
