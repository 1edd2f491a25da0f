// Package game talks to the game server that hands out fuel to teams.
package game

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownTeam is returned when a team is missing from the server's table.
var ErrUnknownTeam = errors.New("team not in game")

var validate = validator.New(validator.WithRequiredStructEnabled())

// State is the game state as served by the game server. Fuel is owned by
// the server; clients only read it.
type State struct {
	Teams  map[string]int `json:"teams" validate:"required"`
	GameOn bool           `json:"game_on"`
}

// Fuel returns the remaining fuel of a team.
func (s State) Fuel(team string) (int, error) {
	fuel, ok := s.Teams[team]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	return fuel, nil
}

// Open reports whether a team may drive: it has fuel left and the game is on.
func (s State) Open(team string) bool {
	fuel, err := s.Fuel(team)
	return err == nil && fuel > 0 && s.GameOn
}

// Reason describes why the gate is closed for a team, or "" if it is open.
func (s State) Reason(team string) string {
	fuel, err := s.Fuel(team)
	switch {
	case err != nil:
		return "team not in game"
	case !s.GameOn:
		return "game is off"
	case fuel <= 0:
		return "out of fuel"
	}
	return ""
}
