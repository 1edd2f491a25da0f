package robot

import "github.com/ev3fleet/ev3remote/pkg/ev3"

// Identity maps a short robot label to its brick.
type Identity struct {
	ID      string `json:"id" validate:"required"`
	Address string `json:"address" validate:"required,mac"`
	// Team is the robot's key in the game server's team table. Empty means
	// the robot id.
	Team string `json:"team,omitempty"`
	// SerialPort is the Bluetooth serial device paired with this brick.
	SerialPort string `json:"serial_port,omitempty"`
}

// TeamKey returns the key to look up this robot's fuel with.
func (i Identity) TeamKey() string {
	if i.Team != "" {
		return i.Team
	}
	return i.ID
}

// BrickSerial returns the serial number the brick announces over WiFi.
func (i Identity) BrickSerial() string {
	return ev3.SerialFromMAC(i.Address)
}

// DefaultRobots returns the built-in robot table.
func DefaultRobots() []Identity {
	return []Identity{
		{ID: "R1", Address: "00:16:53:40:A2:BD"},
		{ID: "R2", Address: "00:16:53:41:44:AC"},
		{ID: "R13", Address: "00:16:53:46:B6:A1"},
		{ID: "RED", Address: "00:16:53:46:C4:03"},
		{ID: "BLUE", Address: "00:16:53:46:8F:57"},
	}
}
