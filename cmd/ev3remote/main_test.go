package main

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ev3fleet/ev3remote/pkg/teleop"
)

func TestWithDefaultCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no args", nil, []string{"drive"}},
		{"robot id", []string{"RED"}, []string{"drive", "RED"}},
		{"flag first", []string{"--strict", "R1"}, []string{"drive", "--strict", "R1"}},
		{"explicit command", []string{"robots"}, []string{"robots"}},
		{"alias", []string{"teleop", "BLUE"}, []string{"teleop", "BLUE"}},
		{"serve", []string{"serve", "--on"}, []string{"serve", "--on"}},
		{"top level help", []string{"-h"}, []string{"-h"}},
		{"single dash help", []string{"-help"}, []string{"--help"}},
		{"help after robot", []string{"RED", "-help"}, []string{"drive", "RED", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withDefaultCommand(tt.args)
			if !slices.Equal(got, tt.want) {
				t.Errorf("withDefaultCommand(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseTeams(t *testing.T) {
	got, err := parseTeams([]string{"RED=5", "BLUE=0"})
	if err != nil {
		t.Fatal(err)
	}
	if got["RED"] != 5 || got["BLUE"] != 0 || len(got) != 2 {
		t.Errorf("parseTeams() = %v", got)
	}

	for _, bad := range []string{"RED", "=5", "RED=x", "RED=-1"} {
		if _, err := parseTeams([]string{bad}); err == nil {
			t.Errorf("parseTeams(%q) = nil error", bad)
		}
	}
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want teleop.Key
		ok   bool
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, teleop.KeyUp, true},
		{tea.KeyMsg{Type: tea.KeyDown}, teleop.KeyDown, true},
		{tea.KeyMsg{Type: tea.KeyLeft}, teleop.KeyLeft, true},
		{tea.KeyMsg{Type: tea.KeyRight}, teleop.KeyRight, true},
		{tea.KeyMsg{Type: tea.KeySpace}, teleop.KeyHorn, true},
		{tea.KeyMsg{Type: tea.KeyEnter}, teleop.KeyAction, true},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, 0, false},
	}
	for _, tt := range tests {
		got, ok := keyFor(tt.msg)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("keyFor(%s) = %v, %v; want %v, %v", tt.msg, got, ok, tt.want, tt.ok)
		}
	}
}

type fakeReader struct {
	positions []int
	i         int
}

func (f *fakeReader) Position(ctx context.Context) (int, error) {
	if f.i >= len(f.positions) {
		return 0, errors.New("no reading")
	}
	p := f.positions[f.i]
	f.i++
	return p, nil
}

func TestCalibrationModel_TracksRange(t *testing.T) {
	r := &fakeReader{positions: []int{2100, 1500, 2600}}
	var m tea.Model = newCalibrationModel(r, 2048)

	for i := 0; i < 4; i++ {
		m, _ = m.Update(tickMsg{})
	}
	cm := m.(calibrationModel)
	if cm.minPos != 1500 || cm.maxPos != 2600 {
		t.Errorf("range = [%d, %d], want [1500, 2600]", cm.minPos, cm.maxPos)
	}
	if cm.curPos != 2600 {
		t.Errorf("current = %d, want 2600 (failed reads keep the last value)", cm.curPos)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.(calibrationModel).aborted {
		t.Error("q did not abort calibration")
	}
}

type fakeWiggler struct {
	moves    []int
	failMove int // position whose move fails
	disabled bool
	failOff  bool
}

func (f *fakeWiggler) SetPositionWithTime(ctx context.Context, position, timeMs int) error {
	if position == f.failMove {
		return errors.New("bus timeout")
	}
	f.moves = append(f.moves, position)
	return nil
}

func (f *fakeWiggler) Disable(ctx context.Context) error {
	if f.failOff {
		return errors.New("bus timeout")
	}
	f.disabled = true
	return nil
}

func TestWiggle(t *testing.T) {
	tests := []struct {
		name      string
		servo     *fakeWiggler
		wantMoves []int
		wantFail  int
	}{
		{"all moves", &fakeWiggler{failMove: -1}, []int{2030, 1970, 2000}, 0},
		{"move fails", &fakeWiggler{failMove: 2030}, []int{1970, 2000}, 1},
		{"disable fails", &fakeWiggler{failMove: -1, failOff: true}, []int{2030, 1970, 2000}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failed := wiggle(context.Background(), tt.servo, 2000, time.Millisecond)
			if failed != tt.wantFail {
				t.Errorf("wiggle() failures = %d, want %d", failed, tt.wantFail)
			}
			if !slices.Equal(tt.servo.moves, tt.wantMoves) {
				t.Errorf("moves = %v, want %v", tt.servo.moves, tt.wantMoves)
			}
			if tt.servo.disabled == tt.servo.failOff {
				t.Errorf("disabled = %v", tt.servo.disabled)
			}
		})
	}
}
