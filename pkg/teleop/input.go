package teleop

import (
	"sync"
	"time"

	"github.com/ev3fleet/ev3remote/pkg/drive"
)

// Key is a control key.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyHorn
	KeyAction
	numKeys
)

// Input is the key state sampled once per frame.
type Input struct {
	drive.Keys

	// Horn is true while the horn key is held.
	Horn bool
	// Honk and Action are set once per press of the horn and action keys.
	Honk   bool
	Action bool
}

// Tracker turns key press events into held-key state.
//
// Terminals report presses and auto-repeats but no releases, so a key counts
// as held until no event for it has arrived within the hold window. Only the
// most recently pressed key auto-repeats; Up and Down therefore stay held
// for as long as the stream of key events they started continues, which
// keeps steering with Left/Right while driving working. Up and Down release
// each other.
type Tracker struct {
	mu   sync.Mutex
	hold time.Duration
	now  func() time.Time

	lastSeen    [numKeys]time.Time
	streamStart time.Time
	lastEvent   time.Time
	honk        bool
	action      bool
}

// NewTracker returns a tracker with the given hold window.
func NewTracker(hold time.Duration) *Tracker {
	return &Tracker{hold: hold, now: time.Now}
}

// Press records a press or auto-repeat of k.
func (t *Tracker) Press(k Key) {
	if k < 0 || k >= numKeys {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.lastEvent.IsZero() || now.Sub(t.lastEvent) >= t.hold {
		t.streamStart = now
	}
	t.lastEvent = now

	switch k {
	case KeyUp:
		// Pressing the opposite direction releases the other one.
		t.lastSeen[KeyDown] = time.Time{}
	case KeyDown:
		t.lastSeen[KeyUp] = time.Time{}
	case KeyHorn:
		// Auto-repeats of a held horn key do not honk again.
		if !t.heldLocked(k, now) {
			t.honk = true
		}
	case KeyAction:
		if !t.heldLocked(k, now) {
			t.action = true
		}
	}
	t.lastSeen[k] = now
}

// Reset releases all keys, e.g. when the terminal loses focus.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = [numKeys]time.Time{}
	t.lastEvent = time.Time{}
	t.streamStart = time.Time{}
	t.honk, t.action = false, false
}

// Sample returns the current key state and consumes pending presses.
func (t *Tracker) Sample() Input {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	in := Input{
		Keys: drive.Keys{
			Up:    t.heldLocked(KeyUp, now),
			Down:  t.heldLocked(KeyDown, now),
			Left:  t.heldLocked(KeyLeft, now),
			Right: t.heldLocked(KeyRight, now),
		},
		Horn:   t.heldLocked(KeyHorn, now),
		Honk:   t.honk,
		Action: t.action,
	}
	t.honk, t.action = false, false
	return in
}

func (t *Tracker) heldLocked(k Key, now time.Time) bool {
	seen := t.lastSeen[k]
	if seen.IsZero() {
		return false
	}
	if now.Sub(seen) < t.hold {
		return true
	}
	if k == KeyUp || k == KeyDown {
		return !seen.Before(t.streamStart) && now.Sub(t.lastEvent) < t.hold
	}
	return false
}
