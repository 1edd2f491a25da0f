package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ev3fleet/ev3remote/pkg/game"
)

type ServeCommand struct {
	Addr   string   `long:"addr" default:":8088" description:"Listen address"`
	Game   string   `long:"game" default:"9125" description:"Game id to seed"`
	Teams  []string `long:"team" value-name:"TEAM=FUEL" description:"Seed a team's fuel (repeatable)"`
	GameOn bool     `long:"on" description:"Start the seeded game switched on"`
}

// parseTeams parses TEAM=FUEL pairs.
func parseTeams(pairs []string) (map[string]int, error) {
	teams := make(map[string]int, len(pairs))
	for _, s := range pairs {
		team, fuel, ok := strings.Cut(s, "=")
		if !ok || team == "" {
			return nil, fmt.Errorf("bad team %q, want TEAM=FUEL", s)
		}
		n, err := strconv.Atoi(fuel)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad fuel for team %s: %q", team, fuel)
		}
		teams[team] = n
	}
	return teams, nil
}

func (c *ServeCommand) Execute(args []string) error {
	setupConsoleLogging(opts.Verbose)

	teams, err := parseTeams(c.Teams)
	if err != nil {
		return err
	}

	srv := game.NewServer()
	srv.SetGameOn(c.Game, c.GameOn)
	for team, fuel := range teams {
		srv.SetFuel(c.Game, team, fuel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		srv.Shutdown()
	}()

	slog.Info("Referee server listening", "addr", c.Addr, "game", c.Game, "teams", len(teams), "game_on", c.GameOn)
	if err := srv.Listen(c.Addr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
