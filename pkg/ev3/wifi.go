package ev3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// DiscoveryPort is the UDP port EV3 bricks broadcast their beacon on.
const DiscoveryPort = 3015

// ErrHandshake is returned when the brick rejects the TCP unlock request.
var ErrHandshake = errors.New("ev3: wifi handshake rejected")

// Beacon is the announcement a brick broadcasts over UDP.
type Beacon struct {
	Serial   string
	Port     int
	Name     string
	Protocol string
	Addr     *net.UDPAddr
}

// ParseBeacon parses a beacon payload of "Key: value\r\n" lines.
func ParseBeacon(data []byte) (Beacon, error) {
	var b Beacon
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Serial-Number":
			b.Serial = value
		case "Port":
			p, err := strconv.Atoi(value)
			if err != nil {
				return Beacon{}, fmt.Errorf("parse beacon port: %w", err)
			}
			b.Port = p
		case "Name":
			b.Name = value
		case "Protocol":
			b.Protocol = value
		}
	}
	if b.Serial == "" || b.Port == 0 {
		return Beacon{}, fmt.Errorf("incomplete beacon %q", data)
	}
	return b, nil
}

// SerialFromMAC converts a hardware address like 00:16:53:40:A2:BD to the
// serial number a brick announces (00165340a2bd).
func SerialFromMAC(mac string) string {
	return strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(mac))
}

// Discover listens for the beacon of the brick with the given serial number
// and acknowledges it, which makes the brick accept a TCP connection.
func Discover(ctx context.Context, serial string) (Beacon, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: DiscoveryPort})
	if err != nil {
		return Beacon{}, fmt.Errorf("listen for beacons: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, 256)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Beacon{}, fmt.Errorf("discover %s: %w", serial, ctx.Err())
			}
			return Beacon{}, fmt.Errorf("read beacon: %w", err)
		}
		b, err := ParseBeacon(buf[:n])
		if err != nil || !strings.EqualFold(b.Serial, serial) {
			continue
		}
		b.Addr = addr
		if _, err := conn.WriteToUDP([]byte{0x00}, addr); err != nil {
			return Beacon{}, fmt.Errorf("acknowledge beacon: %w", err)
		}
		return b, nil
	}
}

// DialWiFi connects to a brick over WiFi. When host is empty the brick is
// located by its UDP beacon; otherwise host ("ip" or "ip:port") is dialled
// directly.
func DialWiFi(ctx context.Context, serial, host string) (*Brick, error) {
	if host == "" {
		b, err := Discover(ctx, serial)
		if err != nil {
			return nil, err
		}
		host = net.JoinHostPort(b.Addr.IP.String(), strconv.Itoa(b.Port))
	} else if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "5555")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", host, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}
	if err := unlock(conn, serial); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return NewBrick(conn, serial), nil
}

// unlock performs the VMTP handshake on a fresh TCP connection.
func unlock(rw io.ReadWriter, serial string) error {
	req := fmt.Sprintf("GET /target?sn=%sVMTP1.0\r\nProtocol: EV3\r\n\r\n", serial)
	if _, err := io.WriteString(rw, req); err != nil {
		return fmt.Errorf("send unlock: %w", err)
	}
	resp := make([]byte, 16)
	if _, err := io.ReadFull(rw, resp); err != nil {
		return fmt.Errorf("read unlock reply: %w", err)
	}
	if !bytes.HasPrefix(resp, []byte("Accept:EV340")) {
		return fmt.Errorf("%w: %q", ErrHandshake, resp)
	}
	return nil
}
