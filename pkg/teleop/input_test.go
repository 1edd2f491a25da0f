package teleop

import (
	"testing"
	"time"

	"github.com/ev3fleet/ev3remote/pkg/drive"
)

func newTestTracker() (*Tracker, *time.Time) {
	now := time.Unix(0, 0)
	tr := NewTracker(500 * time.Millisecond)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestTracker_HoldWindow(t *testing.T) {
	tr, now := newTestTracker()

	tr.Press(KeyLeft)
	if !tr.Sample().Left {
		t.Error("Left not held right after press")
	}

	*now = now.Add(400 * time.Millisecond)
	if !tr.Sample().Left {
		t.Error("Left released inside the hold window")
	}

	*now = now.Add(200 * time.Millisecond)
	if tr.Sample().Left {
		t.Error("Left still held after the hold window")
	}
}

func TestTracker_UpHeldWhileSteering(t *testing.T) {
	tr, now := newTestTracker()

	tr.Press(KeyUp)
	// Only Left auto-repeats from here on.
	for i := 0; i < 30; i++ {
		*now = now.Add(50 * time.Millisecond)
		tr.Press(KeyLeft)
	}
	in := tr.Sample()
	if !in.Up || !in.Left {
		t.Errorf("Sample() = %+v, want Up and Left held", in.Keys)
	}

	// Events stop: everything is released.
	*now = now.Add(600 * time.Millisecond)
	if in := tr.Sample(); in.Up || in.Left {
		t.Errorf("Sample() = %+v after events stopped, want nothing held", in.Keys)
	}
}

func TestTracker_LeftNotHeldByStream(t *testing.T) {
	tr, now := newTestTracker()

	tr.Press(KeyLeft)
	for i := 0; i < 30; i++ {
		*now = now.Add(50 * time.Millisecond)
		tr.Press(KeyUp)
	}
	in := tr.Sample()
	if !in.Up || in.Left {
		t.Errorf("Sample() = %+v, want only Up held", in.Keys)
	}
}

func TestTracker_HonkOncePerPress(t *testing.T) {
	tr, now := newTestTracker()

	tr.Press(KeyHorn)
	in := tr.Sample()
	if !in.Honk || !in.Horn {
		t.Fatalf("Sample() = %+v, want honk", in)
	}

	// Auto-repeat of the same press.
	*now = now.Add(100 * time.Millisecond)
	tr.Press(KeyHorn)
	in = tr.Sample()
	if in.Honk {
		t.Error("auto-repeat honked again")
	}
	if !in.Horn {
		t.Error("horn not held during auto-repeat")
	}

	*now = now.Add(time.Second)
	tr.Press(KeyHorn)
	if !tr.Sample().Honk {
		t.Error("new press after release did not honk")
	}
}

func TestTracker_ActionConsumed(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Press(KeyAction)
	if !tr.Sample().Action {
		t.Fatal("action not reported")
	}
	if tr.Sample().Action {
		t.Error("action reported twice")
	}
}

func TestTracker_Reset(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Press(KeyUp)
	tr.Press(KeyAction)
	tr.Reset()
	in := tr.Sample()
	if in.Up || in.Action {
		t.Errorf("Sample() after Reset = %+v", in)
	}
}

func TestTracker_OppositeDirectionReleases(t *testing.T) {
	tests := []struct {
		name        string
		first, then Key
	}{
		{"up then down", KeyUp, KeyDown},
		{"down then up", KeyDown, KeyUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, now := newTestTracker()

			// Hold the first key for a second, then only the other one.
			for i := 0; i < 30; i++ {
				*now = now.Add(30 * time.Millisecond)
				tr.Press(tt.first)
			}
			for i := 0; i < 60; i++ {
				*now = now.Add(30 * time.Millisecond)
				tr.Press(tt.then)
			}

			in := tr.Sample()
			want := drive.Keys{Up: tt.then == KeyUp, Down: tt.then == KeyDown}
			if in.Keys != want {
				t.Errorf("Sample() = %+v, want %+v", in.Keys, want)
			}
			if m, wantDir := drive.Map(in.Keys), dirOf(tt.then); m.LeftDir != wantDir || m.RightDir != wantDir {
				t.Errorf("Map() = %+v, want direction %d", m, wantDir)
			}
		})
	}
}

func dirOf(k Key) int {
	if k == KeyUp {
		return drive.Forward
	}
	return drive.Backward
}
