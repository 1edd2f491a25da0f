// Package ev3 speaks the LEGO EV3 direct-command protocol.
//
// A direct command is a single framed message carrying one or more
// operations for the brick's virtual machine. Commands sent without a reply
// request are fire-and-forget; commands with a reply request get their
// global variables echoed back.
package ev3

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcodes used by this package.
const (
	opUIWrite         byte = 0x82
	opSound           byte = 0x94
	opOutputReset     byte = 0xA2
	opOutputStop      byte = 0xA3
	opOutputSpeed     byte = 0xA5
	opOutputStart     byte = 0xA6
	opOutputTest      byte = 0xA9
	opOutputStepSpeed byte = 0xAE
	opOutputTimeSpeed byte = 0xAF
	opOutputClrCount  byte = 0xB2
	opOutputGetCount  byte = 0xB3
)

// Sub-commands.
const (
	soundBreak byte = 0x00
	soundTone  byte = 0x01
	uiWriteLED byte = 0x1B
)

// layer is always 0: a single brick, no daisy chain.
const layer = 0

// Port is an output port bit mask as used by the output opcodes.
type Port byte

const (
	PortA Port = 0x01
	PortB Port = 0x02
	PortC Port = 0x04
	PortD Port = 0x08
)

// Number returns the zero-based port number (A=0 ... D=3), used by opcodes
// that address a single port.
func (p Port) Number() int {
	switch p {
	case PortA:
		return 0
	case PortB:
		return 1
	case PortC:
		return 2
	case PortD:
		return 3
	}
	return -1
}

func (p Port) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	case PortC:
		return "C"
	case PortD:
		return "D"
	}
	return fmt.Sprintf("Port(%#x)", byte(p))
}

// ParsePort parses a port letter (case insensitive).
func ParsePort(s string) (Port, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return PortA, nil
	case "B":
		return PortB, nil
	case "C":
		return PortC, nil
	case "D":
		return PortD, nil
	}
	return 0, fmt.Errorf("invalid port %q", s)
}

// MarshalText implements encoding.TextMarshaler so ports read as letters in
// JSON config files.
func (p Port) MarshalText() ([]byte, error) {
	if p.Number() < 0 {
		return nil, fmt.Errorf("invalid port %#x", byte(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Port) UnmarshalText(b []byte) error {
	v, err := ParsePort(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// LED patterns for opUI_Write LED.
type LED byte

const (
	LEDOff         LED = 0x00
	LEDGreen       LED = 0x01
	LEDRed         LED = 0x02
	LEDOrange      LED = 0x03
	LEDGreenFlash  LED = 0x04
	LEDRedFlash    LED = 0x05
	LEDOrangeFlash LED = 0x06
	LEDGreenPulse  LED = 0x07
	LEDRedPulse    LED = 0x08
	LEDOrangePulse LED = 0x09
)

// LCX encodes an integer constant in the smallest local-constant form.
func LCX(v int32) []byte {
	switch {
	case v >= -31 && v <= 31:
		// LC0: 6-bit two's complement in a single byte.
		return []byte{byte(v) & 0x3F}
	case v >= -127 && v <= 127:
		return []byte{0x81, byte(int8(v))}
	case v >= -32767 && v <= 32767:
		b := []byte{0x82, 0, 0}
		binary.LittleEndian.PutUint16(b[1:], uint16(int16(v)))
		return b
	default:
		b := []byte{0x83, 0, 0, 0, 0}
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		return b
	}
}

// GVX encodes a reference to a global variable at the given byte offset.
func GVX(offset int) []byte {
	switch {
	case offset < 32:
		return []byte{0x60 | byte(offset)}
	case offset < 256:
		return []byte{0xE1, byte(offset)}
	default:
		b := []byte{0xE2, 0, 0}
		binary.LittleEndian.PutUint16(b[1:], uint16(offset))
		return b
	}
}

// ops concatenates operation fragments.
func ops(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func op(code byte) []byte { return []byte{code} }

func lc(v int) []byte { return LCX(int32(v)) }
