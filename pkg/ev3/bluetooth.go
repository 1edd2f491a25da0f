package ev3

import (
	"fmt"
	"os"
	"time"

	"go.bug.st/serial"
)

// OpenSerial connects to a brick through a serial device, typically the
// RFCOMM port created when pairing over Bluetooth.
func OpenSerial(port string) (*Brick, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return NewBrick(serialConn{p}, port), nil
}

// serialConn gives a serial port deadlines. The port reports an expired
// read timeout as an empty read, which is turned into an error here.
type serialConn struct {
	serial.Port
}

func (c serialConn) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

// SetDeadline sets the read timeout to the time left until t. A zero t
// clears it.
func (c serialConn) SetDeadline(t time.Time) error {
	if t.IsZero() {
		return c.Port.SetReadTimeout(serial.NoTimeout)
	}
	d := time.Until(t)
	if d <= 0 {
		d = time.Millisecond
	}
	return c.Port.SetReadTimeout(d)
}
