// Package robot describes the EV3 robots that can be driven: their
// identities, configuration, drivetrain and gripper.
package robot

import "github.com/ev3fleet/ev3remote/pkg/ev3"

// MotorName identifies a motor on the robot.
type MotorName string

// Motor names for the two-wheel robot.
const (
	LeftMotor    MotorName = "left"
	RightMotor   MotorName = "right"
	GripperMotor MotorName = "gripper"
)

// AllMotors returns all motor names in display order.
func AllMotors() []MotorName {
	return []MotorName{
		LeftMotor,
		RightMotor,
		GripperMotor,
	}
}

// Ports maps each motor to its output port on the brick.
type Ports struct {
	Left    ev3.Port `json:"left"`
	Right   ev3.Port `json:"right"`
	Gripper ev3.Port `json:"gripper"`
}

// Of returns the port of the named motor.
func (p Ports) Of(name MotorName) ev3.Port {
	switch name {
	case LeftMotor:
		return p.Left
	case RightMotor:
		return p.Right
	case GripperMotor:
		return p.Gripper
	}
	return 0
}
