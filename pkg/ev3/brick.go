package ev3

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultReplyTimeout bounds how long Query waits for a reply when the
// context has no earlier deadline.
const DefaultReplyTimeout = time.Second

// Brick is a connection to an EV3 brick.
type Brick struct {
	mu      sync.Mutex
	conn    io.ReadWriteCloser
	counter uint16
	name    string

	// ReplyTimeout is applied to every Query. Zero waits as long as the
	// context allows.
	ReplyTimeout time.Duration
}

// NewBrick wraps an established transport. name is used in errors only.
// Replies are only waited for on transports with a SetDeadline method.
func NewBrick(conn io.ReadWriteCloser, name string) *Brick {
	return &Brick{conn: conn, name: name, ReplyTimeout: DefaultReplyTimeout}
}

// Name returns the brick name given at connect time.
func (b *Brick) Name() string {
	return b.name
}

// Close closes the underlying transport.
func (b *Brick) Close() error {
	return b.conn.Close()
}

// Send sends operations without requesting a reply.
func (b *Brick) Send(ctx context.Context, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	defer b.withDeadline(ctx)()

	msg, err := frame(b.next(), false, 0, 0, body)
	if err != nil {
		return err
	}
	if _, err := b.conn.Write(msg); err != nil {
		return fmt.Errorf("write %s: %w", b.name, err)
	}
	return nil
}

// Query sends operations and waits for the reply, returning the global
// memory the operations wrote to.
func (b *Brick) Query(ctx context.Context, body []byte, global int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.ReplyTimeout)
		defer cancel()
	}
	defer b.withDeadline(ctx)()

	counter := b.next()
	msg, err := frame(counter, true, global, 0, body)
	if err != nil {
		return nil, err
	}
	if _, err := b.conn.Write(msg); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.name, err)
	}

	for {
		r, err := b.readReply()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", b.name, err)
		}
		// Replies to earlier commands that timed out on our side.
		if r.counter != counter {
			continue
		}
		if !r.ok {
			return nil, ErrReply
		}
		if len(r.data) < global {
			return nil, fmt.Errorf("read %s: reply has %d bytes, want %d", b.name, len(r.data), global)
		}
		return r.data[:global], nil
	}
}

func (b *Brick) readReply() (reply, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(b.conn, hdr[:]); err != nil {
		return reply{}, err
	}
	body := make([]byte, binary.LittleEndian.Uint16(hdr[:]))
	if _, err := io.ReadFull(b.conn, body); err != nil {
		return reply{}, err
	}
	return parseReply(body)
}

func (b *Brick) next() uint16 {
	b.counter++
	return b.counter
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// withDeadline applies the context deadline to transports that support one
// and returns a func that clears it.
func (b *Brick) withDeadline(ctx context.Context) func() {
	d, ok := b.conn.(deadliner)
	if !ok {
		return func() {}
	}
	if dl, ok := ctx.Deadline(); ok {
		d.SetDeadline(dl)
		return func() { d.SetDeadline(time.Time{}) }
	}
	return func() {}
}
