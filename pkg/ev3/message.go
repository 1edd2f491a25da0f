package ev3

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Message types.
const (
	directCommandReply   byte = 0x00
	directCommandNoReply byte = 0x80
	directReply          byte = 0x02
	directReplyError     byte = 0x04
)

const (
	maxGlobalBytes = 1019
	maxLocalBytes  = 63
)

// ErrReply is returned when the brick answers a direct command with an
// error reply.
var ErrReply = errors.New("ev3: direct command failed")

// frame builds a direct command message.
//
// Layout: length (2, LE, excluding itself), counter (2, LE), type (1),
// variable header (2, LE: local<<10 | global), operations.
func frame(counter uint16, reply bool, global, local int, body []byte) ([]byte, error) {
	if global < 0 || global > maxGlobalBytes {
		return nil, fmt.Errorf("global memory %d out of range", global)
	}
	if local < 0 || local > maxLocalBytes {
		return nil, fmt.Errorf("local memory %d out of range", local)
	}

	typ := directCommandNoReply
	if reply {
		typ = directCommandReply
	}

	msg := make([]byte, 7, 7+len(body))
	binary.LittleEndian.PutUint16(msg[0:], uint16(5+len(body)))
	binary.LittleEndian.PutUint16(msg[2:], counter)
	msg[4] = typ
	binary.LittleEndian.PutUint16(msg[5:], uint16(local<<10|global))
	return append(msg, body...), nil
}

// reply is a decoded direct reply (without the length prefix).
type reply struct {
	counter uint16
	ok      bool
	data    []byte
}

func parseReply(body []byte) (reply, error) {
	if len(body) < 3 {
		return reply{}, fmt.Errorf("short reply: %d bytes", len(body))
	}
	r := reply{
		counter: binary.LittleEndian.Uint16(body[0:]),
		data:    body[3:],
	}
	switch body[2] {
	case directReply:
		r.ok = true
	case directReplyError:
		r.ok = false
	default:
		return reply{}, fmt.Errorf("unexpected reply type %#x", body[2])
	}
	return r, nil
}
