package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// Client fetches the game state with a plain GET.
type Client struct {
	URL     string
	Timeout time.Duration
}

// NewClient returns a client for the game state at url. A zero timeout
// waits as long as the server takes.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{URL: url, Timeout: timeout}
}

// Fetch requests the current game state.
func (c *Client) Fetch(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	timeout := c.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout == 0 || left < timeout {
			timeout = left
		}
	}

	a := fiber.Get(c.URL)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if timeout > 0 {
		a.Timeout(timeout)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return State{}, fmt.Errorf("fetch game state: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return State{}, fmt.Errorf("fetch game state: status %d", code)
	}

	var s State
	if err := json.Unmarshal(body, &s); err != nil {
		return State{}, fmt.Errorf("parse game state: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return State{}, fmt.Errorf("invalid game state: %w", err)
	}
	return s, nil
}

// Fetcher fetches a game state.
type Fetcher interface {
	Fetch(ctx context.Context) (State, error)
}

// Poller remembers the last state fetched successfully so a slow or failed
// request does not leave the caller without a state.
type Poller struct {
	Fetcher Fetcher

	last *State
}

// Poll fetches a fresh state. On failure it returns the last good state with
// ok set if there is one, together with the fetch error.
func (p *Poller) Poll(ctx context.Context) (s State, ok bool, err error) {
	s, err = p.Fetcher.Fetch(ctx)
	if err == nil {
		p.last = &s
		return s, true, nil
	}
	if p.last != nil {
		return *p.last, true, err
	}
	return State{}, false, err
}
