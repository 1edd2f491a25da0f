package drive

import "testing"

func TestMap(t *testing.T) {
	const (
		full = SpeedMax
		half = SpeedHalf
		soft = SpeedMax - TurnOffset
	)

	tests := []struct {
		name     string
		keys     Keys
		expected Motion
	}{
		{"none", Keys{}, Motion{}},
		{"up", Keys{Up: true}, Motion{full, 1, full, 1}},
		{"up left", Keys{Up: true, Left: true}, Motion{soft, 1, full, 1}},
		{"up right", Keys{Up: true, Right: true}, Motion{full, 1, soft, 1}},
		{"up left right", Keys{Up: true, Left: true, Right: true}, Motion{soft, 1, soft, 1}},
		{"down", Keys{Down: true}, Motion{full, -1, full, -1}},
		{"down left", Keys{Down: true, Left: true}, Motion{soft, -1, full, -1}},
		{"down right", Keys{Down: true, Right: true}, Motion{full, -1, soft, -1}},
		{"left", Keys{Left: true}, Motion{half, -1, half, 1}},
		{"right", Keys{Right: true}, Motion{half, 1, half, -1}},
		{"left right", Keys{Left: true, Right: true}, Motion{half, 1, half, -1}},
		{"up down", Keys{Up: true, Down: true}, Motion{full, 1, full, 1}},
		{"up down left", Keys{Up: true, Down: true, Left: true}, Motion{soft, 1, full, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.keys)
			if got != tt.expected {
				t.Errorf("Map(%+v) = %+v, want %+v", tt.keys, got, tt.expected)
			}
		})
	}
}

func TestMap_NoKeysIsStop(t *testing.T) {
	if !Map(Keys{}).Stopped() {
		t.Error("Map(no keys) should be a stop")
	}
	for _, k := range []Keys{{Up: true}, {Down: true}, {Left: true}, {Right: true}} {
		if Map(k).Stopped() {
			t.Errorf("Map(%+v) should not be a stop", k)
		}
	}
}

func TestMap_Idempotent(t *testing.T) {
	k := Keys{Down: true, Right: true}
	first := Map(k)
	second := Map(k)
	if first != second {
		t.Errorf("Map is not idempotent: %+v then %+v", first, second)
	}
}

func TestMotion_Signed(t *testing.T) {
	m := Map(Keys{Left: true})
	if m.Left() != -SpeedHalf || m.Right() != SpeedHalf {
		t.Errorf("signed speeds = %d, %d", m.Left(), m.Right())
	}
}
