// Package teleop provides the remote control loop for a two-motor robot.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ev3fleet/ev3remote/pkg/drive"
	"github.com/ev3fleet/ev3remote/pkg/ev3"
	"github.com/ev3fleet/ev3remote/pkg/game"
	"github.com/ev3fleet/ev3remote/pkg/robot"
)

// Horn tone.
const (
	hornVolume    = 1
	hornFrequency = 440
	hornDuration  = time.Second
)

const shutdownTimeout = 2 * time.Second

// State represents the outcome of one control frame.
type State struct {
	Frame     uint64
	Input     Input
	Motion    drive.Motion // last motion sent to the motors
	Game      game.State
	HaveGame  bool   // a game state has been fetched at least once
	Open      bool   // input is being translated into commands
	Reason    string // why the gate is closed
	Fuel      int
	Gripper   string // "open", "closed" or "" without a gripper
	Timestamp time.Time
	Error     error
}

// Drivetrain moves the robot.
type Drivetrain interface {
	Apply(ctx context.Context, m drive.Motion) error
	Stop(ctx context.Context) error
}

// Signals is the brick's sound and light output.
type Signals interface {
	PlayTone(ctx context.Context, volume, frequency int, d time.Duration) error
	PlaySong(ctx context.Context, song []ev3.Tone) error
	SetLED(ctx context.Context, led ev3.LED) error
}

// Config holds configuration for the controller.
type Config struct {
	Robot      robot.Identity
	Drivetrain Drivetrain
	Gripper    robot.Gripper // optional
	Signals    Signals       // optional
	Game       game.Fetcher
	Keys       *Tracker
	Hz         int
	// Strict ends the session on the first failed game state fetch instead
	// of falling back to the last known state.
	Strict bool
	// Greeting plays a short tune once the loop starts.
	Greeting bool
	Logger   *slog.Logger
}

// Controller manages the remote control loop. The loop goroutine is the
// only user of the drivetrain, gripper and signals.
type Controller struct {
	robot    robot.Identity
	drive    Drivetrain
	gripper  robot.Gripper
	signals  Signals
	poller   *game.Poller
	keys     *Tracker
	hz       int
	strict   bool
	greeting bool
	logger   *slog.Logger

	mu      sync.RWMutex
	running bool
	err     error
	stateCh chan State
	logCh   chan string
	done    chan struct{}

	// loop state
	frame        uint64
	lastMotion   *drive.Motion
	gripperOpen  bool
	led          ev3.LED
	ledSet       bool
	fetchFailing bool
}

// NewController creates a new remote control controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Drivetrain == nil {
		return nil, errors.New("drivetrain is required")
	}
	if cfg.Game == nil {
		return nil, errors.New("game state source is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("key tracker is required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		robot:       cfg.Robot,
		drive:       cfg.Drivetrain,
		gripper:     cfg.Gripper,
		signals:     cfg.Signals,
		poller:      &game.Poller{Fetcher: cfg.Game},
		keys:        cfg.Keys,
		hz:          cfg.Hz,
		strict:      cfg.Strict,
		greeting:    cfg.Greeting,
		logger:      cfg.Logger.With("robot", cfg.Robot.ID),
		stateCh:     make(chan State, 1),
		logCh:       make(chan string, 10),
		done:        make(chan struct{}),
		gripperOpen: true,
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Done is closed once the loop has ended and the motors are stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the loop, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Robot returns the driven robot's identity.
func (c *Controller) Robot() robot.Identity {
	return c.robot
}

func (c *Controller) log(level slog.Level, msg string, args ...any) {
	c.logger.Log(context.Background(), level, msg, args...)

	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	select {
	case c.logCh <- line:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is done or a fatal error occurs.
// Either way it stops the motors before returning.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()
	defer close(c.done)

	if c.greeting && c.signals != nil {
		if err := c.signals.PlaySong(ctx, ev3.Triad); err != nil && ctx.Err() == nil {
			c.log(slog.LevelWarn, "Greeting failed", "error", err)
		}
	}

	c.log(slog.LevelInfo, "Remote control started", "hz", c.hz, "team", c.robot.TeamKey())

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			if err := c.step(ctx); err != nil {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
				c.log(slog.LevelError, "Remote control failed", "error", err)
				c.shutdown()
				return err
			}
		}
	}
}

// step runs one frame: fetch the game state, sample the keys, and if the
// gate is open translate them into commands. Only fatal errors are returned.
func (c *Controller) step(ctx context.Context) error {
	c.frame++
	team := c.robot.TeamKey()

	gs, haveGame, err := c.poller.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if c.strict {
			return fmt.Errorf("fetch game state: %w", err)
		}
		if !c.fetchFailing {
			c.log(slog.LevelWarn, "Game server unreachable, keeping last state", "error", err)
			c.fetchFailing = true
		}
	} else if c.fetchFailing {
		c.log(slog.LevelInfo, "Game server reachable again")
		c.fetchFailing = false
	}
	if c.strict && haveGame {
		if _, err := gs.Fuel(team); err != nil {
			return err
		}
	}

	in := c.keys.Sample()
	st := State{
		Frame:     c.frame,
		Input:     in,
		Game:      gs,
		HaveGame:  haveGame,
		Timestamp: time.Now(),
		Gripper:   c.gripperState(),
	}
	if c.lastMotion != nil {
		st.Motion = *c.lastMotion
	}
	st.Fuel, _ = gs.Fuel(team)

	switch {
	case !haveGame:
		st.Reason = "waiting for game server"
	case !gs.Open(team):
		st.Reason = gs.Reason(team)
	default:
		st.Open = true
	}
	c.showGate(ctx, st)

	if !st.Open {
		// A robot moving when the gate closes coasts to a halt once; later
		// gated frames send nothing.
		if c.lastMotion != nil && !c.lastMotion.Stopped() {
			c.haltOnGate(ctx, &st)
		}
		c.sendState(st)
		return nil
	}

	if in.Honk && c.signals != nil {
		if err := c.signals.PlayTone(ctx, hornVolume, hornFrequency, hornDuration); err != nil {
			c.log(slog.LevelWarn, "Horn failed", "error", err)
		}
	}

	if in.Action && c.gripper != nil {
		c.toggleGripper(ctx)
		st.Gripper = c.gripperState()
	}

	motion := drive.Map(in.Keys)
	if c.lastMotion == nil || *c.lastMotion != motion {
		if err := c.drive.Apply(ctx, motion); err != nil {
			c.log(slog.LevelError, "Drive command failed", "error", err)
			st.Error = err
		} else {
			c.lastMotion = &motion
			st.Motion = motion
		}
	}

	c.sendState(st)
	return nil
}

func (c *Controller) haltOnGate(ctx context.Context, st *State) {
	if err := c.drive.Stop(ctx); err != nil {
		c.log(slog.LevelError, "Drive stop failed", "error", err)
		st.Error = err
		return
	}
	var stopped drive.Motion
	c.lastMotion = &stopped
	st.Motion = stopped
	c.log(slog.LevelInfo, "Gate closed, motors stopped", "reason", st.Reason)
}

// toggleGripper flips the gripper between open and closed. The belief flips
// on every press whether or not the gripper accepted the command.
func (c *Controller) toggleGripper(ctx context.Context) {
	var (
		moved bool
		err   error
	)
	if c.gripperOpen {
		moved, err = c.gripper.Close(ctx)
	} else {
		moved, err = c.gripper.Open(ctx)
	}
	c.gripperOpen = !c.gripperOpen

	switch {
	case err != nil:
		c.log(slog.LevelWarn, "Gripper command failed", "error", err)
	case !moved:
		c.log(slog.LevelDebug, "Gripper busy, command ignored")
	default:
		c.log(slog.LevelDebug, "Gripper moving", "to", c.gripperState())
	}
}

func (c *Controller) gripperState() string {
	switch {
	case c.gripper == nil:
		return ""
	case c.gripperOpen:
		return "open"
	default:
		return "closed"
	}
}

// showGate mirrors the gate on the brick LED, only sending changes.
func (c *Controller) showGate(ctx context.Context, st State) {
	if c.signals == nil {
		return
	}
	led := ev3.LEDGreen
	switch {
	case st.Open:
	case !st.HaveGame:
		led = ev3.LEDOrangeFlash
	case !st.Game.GameOn:
		led = ev3.LEDOrange
	default:
		led = ev3.LEDRed
	}
	if c.ledSet && led == c.led {
		return
	}
	if err := c.signals.SetLED(ctx, led); err != nil {
		c.log(slog.LevelDebug, "LED update failed", "error", err)
		return
	}
	c.led, c.ledSet = led, true
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

// shutdown stops every motor without braking.
func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.drive.Stop(ctx); err != nil {
		c.log(slog.LevelWarn, "Failed to stop drive motors", "error", err)
	} else {
		c.log(slog.LevelInfo, "Drive motors stopped")
	}
	if c.gripper != nil {
		if err := c.gripper.Stop(ctx); err != nil {
			c.log(slog.LevelWarn, "Failed to stop gripper", "error", err)
		}
	}
	if c.signals != nil {
		c.signals.SetLED(ctx, ev3.LEDGreen)
	}
	c.lastMotion = nil
	c.log(slog.LevelInfo, "Remote control stopped")
}
