package ev3

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// fakeConn records written bytes and serves canned replies.
type fakeConn struct {
	written bytes.Buffer
	replies bytes.Buffer
	closed  bool
}

func (f *fakeConn) Read(p []byte) (int, error)  { return f.replies.Read(p) }
func (f *fakeConn) Write(p []byte) (int, error) { return f.written.Write(p) }
func (f *fakeConn) Close() error                { f.closed = true; return nil }

func (f *fakeConn) reply(counter uint16, ok bool, data ...byte) {
	typ := directReply
	if !ok {
		typ = directReplyError
	}
	n := 3 + len(data)
	f.replies.Write([]byte{byte(n), byte(n >> 8), byte(counter), byte(counter >> 8), typ})
	f.replies.Write(data)
}

// body strips the 7-byte header of the only message written.
func (f *fakeConn) body(t *testing.T) []byte {
	t.Helper()
	b := f.written.Bytes()
	if len(b) < 7 {
		t.Fatalf("short message: % x", b)
	}
	return b[7:]
}

func TestMotor_StartMove(t *testing.T) {
	conn := &fakeConn{}
	m := NewMotor(NewBrick(conn, "test"), PortB)

	if err := m.StartMove(context.Background(), 100, 1); err != nil {
		t.Fatal(err)
	}
	expected := []byte{
		0x0D, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
		opOutputSpeed, 0x00, 0x02, 0x81, 0x64,
		opOutputStart, 0x00, 0x02,
	}
	if got := conn.written.Bytes(); !bytes.Equal(got, expected) {
		t.Errorf("StartMove wrote % x, want % x", got, expected)
	}
}

func TestMotor_StartMoveRamp(t *testing.T) {
	conn := &fakeConn{}
	m := NewMotor(NewBrick(conn, "test"), PortC)
	m.Ramp = 500 * time.Millisecond

	if err := m.StartMove(context.Background(), 50, -1); err != nil {
		t.Fatal(err)
	}
	expected := []byte{
		opOutputTimeSpeed, 0x00, 0x04, 0x81, 0xCE,
		0x82, 0xF4, 0x01, 0x00, 0x00, 0x00,
	}
	if got := conn.body(t); !bytes.Equal(got, expected) {
		t.Errorf("StartMove wrote % x, want % x", got, expected)
	}
}

func TestMotor_StartMoveValidates(t *testing.T) {
	m := NewMotor(NewBrick(&fakeConn{}, "test"), PortB)
	if err := m.StartMove(context.Background(), 101, 1); err == nil {
		t.Error("speed 101 should fail")
	}
	if err := m.StartMove(context.Background(), 50, 0); err == nil {
		t.Error("direction 0 should fail")
	}
}

func TestMotor_Stop(t *testing.T) {
	conn := &fakeConn{}
	m := NewMotor(NewBrick(conn, "test"), PortB)

	if err := m.Stop(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	expected := []byte{opOutputStop, 0x00, 0x02, 0x00}
	if got := conn.body(t); !bytes.Equal(got, expected) {
		t.Errorf("Stop wrote % x, want % x", got, expected)
	}
}

func TestStopAll(t *testing.T) {
	conn := &fakeConn{}
	b := NewBrick(conn, "test")

	if err := StopAll(context.Background(), b, false, PortB, PortC); err != nil {
		t.Fatal(err)
	}
	expected := []byte{opOutputStop, 0x00, 0x06, 0x00}
	if got := conn.body(t); !bytes.Equal(got, expected) {
		t.Errorf("StopAll wrote % x, want % x", got, expected)
	}
}

func TestMotor_Busy(t *testing.T) {
	conn := &fakeConn{}
	conn.reply(1, true, 0x01)
	m := NewMotor(NewBrick(conn, "test"), PortA)

	busy, err := m.Busy(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !busy {
		t.Error("Busy() = false, want true")
	}
	// reply requested, one byte of global memory
	if hdr := conn.written.Bytes()[4:7]; !bytes.Equal(hdr, []byte{0x00, 0x01, 0x00}) {
		t.Errorf("header = % x", hdr)
	}
}

func TestMotor_MoveTo(t *testing.T) {
	conn := &fakeConn{}
	// position 10 degrees
	conn.reply(1, true, 0x0A, 0x00, 0x00, 0x00)
	m := NewMotor(NewBrick(conn, "test"), PortA)

	if err := m.MoveTo(context.Background(), -360, 50, false); err != nil {
		t.Fatal(err)
	}

	// Skip the Get_Count query: 7 byte header + 4 bytes of ops.
	written := conn.written.Bytes()
	move := written[7+4:]
	expected := []byte{
		opOutputStepSpeed, 0x00, 0x01, 0x81, 0xCE,
		0x00, 0x82, 0x72, 0x01, 0x00, 0x00,
	}
	if !bytes.Equal(move[7:], expected) {
		t.Errorf("MoveTo wrote % x, want % x", move[7:], expected)
	}
}

func TestBrick_QueryErrorReply(t *testing.T) {
	conn := &fakeConn{}
	conn.reply(1, false)
	m := NewMotor(NewBrick(conn, "test"), PortA)

	if _, err := m.Position(context.Background()); !errors.Is(err, ErrReply) {
		t.Errorf("Position() error = %v, want ErrReply", err)
	}
}

func TestBrick_QuerySkipsStaleReplies(t *testing.T) {
	conn := &fakeConn{}
	b := NewBrick(conn, "test")
	b.counter = 4
	conn.reply(3, true, 0xFF, 0xFF, 0xFF, 0xFF)
	conn.reply(5, true, 0x68, 0x01, 0x00, 0x00)

	pos, err := NewMotor(b, PortD).Position(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pos != 360 {
		t.Errorf("Position() = %d, want 360", pos)
	}
}

func TestBrick_SendCanceled(t *testing.T) {
	conn := &fakeConn{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewBrick(conn, "test").Send(ctx, []byte{0x01}); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
	if conn.written.Len() != 0 {
		t.Error("canceled Send wrote to the transport")
	}
}

func TestJukebox_PlayTone(t *testing.T) {
	conn := &fakeConn{}
	j := NewJukebox(NewBrick(conn, "test"))

	if err := j.PlayTone(context.Background(), 1, 440, time.Second); err != nil {
		t.Fatal(err)
	}
	expected := []byte{opSound, soundTone, 0x01, 0x82, 0xB8, 0x01, 0x82, 0xE8, 0x03}
	if got := conn.body(t); !bytes.Equal(got, expected) {
		t.Errorf("PlayTone wrote % x, want % x", got, expected)
	}
}

func TestJukebox_SetLED(t *testing.T) {
	conn := &fakeConn{}
	j := NewJukebox(NewBrick(conn, "test"))

	if err := j.SetLED(context.Background(), LEDOrange); err != nil {
		t.Fatal(err)
	}
	expected := []byte{opUIWrite, uiWriteLED, 0x03}
	if got := conn.body(t); !bytes.Equal(got, expected) {
		t.Errorf("SetLED wrote % x, want % x", got, expected)
	}
}

func TestJukebox_PlaySong(t *testing.T) {
	conn := &fakeConn{}
	j := NewJukebox(NewBrick(conn, "test"))

	song := []Tone{
		{Frequency: 262, Duration: time.Millisecond},
		{Duration: time.Millisecond}, // rest
		{Frequency: 392, Duration: time.Millisecond},
	}
	if err := j.PlaySong(context.Background(), song); err != nil {
		t.Fatal(err)
	}
	// One 14-byte message per note; the rest sends nothing.
	if n := conn.written.Len(); n != 2*14 {
		t.Errorf("PlaySong wrote %d bytes, want %d", n, 2*14)
	}
}

func TestJukebox_PlaySongCanceled(t *testing.T) {
	conn := &fakeConn{}
	j := NewJukebox(NewBrick(conn, "test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := j.PlaySong(ctx, Triad)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PlaySong() = %v, want context.Canceled", err)
	}
}
