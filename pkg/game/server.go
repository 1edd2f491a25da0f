package game

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// Server is a referee game server. It holds fuel per team and the game-on
// flag for any number of games, all set by the referee over HTTP.
type Server struct {
	mu    sync.RWMutex
	games map[string]*State
	app   *fiber.App
}

type gameOnRequest struct {
	GameOn *bool `json:"game_on" validate:"required"`
}

type fuelRequest struct {
	Fuel *int `json:"fuel" validate:"required,gte=0"`
}

// NewServer returns a server with no games.
func NewServer() *Server {
	s := &Server{games: make(map[string]*State)}

	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		slog.Debug("Log", "ip", c.IP(), "method", c.Method(), "path", c.Path())
		return c.Next()
	})

	g := app.Group("/game")
	g.Get("/:id", s.getGame)
	g.Put("/:id", s.putGame)
	g.Put("/:id/teams/:team", s.putFuel)
	g.Delete("/:id/teams/:team", s.deleteTeam)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SetGameOn sets the game-on flag, creating the game if needed.
func (s *Server) SetGameOn(id string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game(id).GameOn = on
}

// SetFuel sets a team's fuel, creating the game if needed.
func (s *Server) SetFuel(id, team string, fuel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game(id).Teams[team] = fuel
}

// State returns a copy of a game's state.
func (s *Server) State(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.games[id]
	if !ok {
		return State{}, false
	}
	return State{Teams: maps.Clone(st.Teams), GameOn: st.GameOn}, true
}

// game returns the game with the given id, creating it. Callers hold mu.
func (s *Server) game(id string) *State {
	st, ok := s.games[id]
	if !ok {
		st = &State{Teams: make(map[string]int)}
		s.games[id] = st
	}
	return st
}

func (s *Server) getGame(c *fiber.Ctx) error {
	st, ok := s.State(c.Params("id"))
	if !ok {
		return fiber.ErrNotFound
	}
	return c.JSON(st)
}

func (s *Server) putGame(c *fiber.Ctx) error {
	var req gameOnRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}
	id := c.Params("id")
	s.SetGameOn(id, *req.GameOn)
	slog.Info("game", "id", id, "game_on", *req.GameOn)
	return s.getGame(c)
}

func (s *Server) putFuel(c *fiber.Ctx) error {
	var req fuelRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}
	id, team := c.Params("id"), c.Params("team")
	s.SetFuel(id, team, *req.Fuel)
	slog.Info("fuel", "id", id, "team", team, "fuel", *req.Fuel)
	return s.getGame(c)
}

func (s *Server) deleteTeam(c *fiber.Ctx) error {
	id, team := c.Params("id"), c.Params("team")
	s.mu.Lock()
	st, ok := s.games[id]
	if ok {
		delete(st.Teams, team)
	}
	s.mu.Unlock()
	if !ok {
		return fiber.ErrNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) parse(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		slog.Error("BodyParser", "error", err)
		return fiber.ErrBadRequest
	}
	if err := validate.Struct(v); err != nil {
		slog.Error("Validate", "error", err)
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
