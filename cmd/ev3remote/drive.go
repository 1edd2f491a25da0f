package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/ev3fleet/ev3remote/pkg/game"
	"github.com/ev3fleet/ev3remote/pkg/robot"
	"github.com/ev3fleet/ev3remote/pkg/teleop"
	"github.com/ev3fleet/ev3remote/pkg/ui"
)

type DriveCommand struct {
	Server    string        `long:"server" value-name:"URL" description:"Game server URL"`
	Transport string        `long:"transport" choice:"wifi" choice:"bluetooth" description:"How to reach the brick"`
	Host      string        `long:"host" value-name:"IP[:PORT]" description:"Brick address, skips WiFi discovery"`
	Serial    string        `long:"serial" value-name:"DEVICE" description:"Bluetooth serial device of the brick"`
	FPS       int           `long:"fps" description:"Frames per second"`
	Strict    bool          `long:"strict" description:"End the session on the first failed game server request"`
	Assets    string        `long:"assets" value-name:"DIR" description:"Directory with the key images"`
	LogFile   string        `long:"log-file" value-name:"FILE" description:"Write log records to FILE"`
	Hold      time.Duration `long:"hold" default:"500ms" description:"How long a key counts as held after its last event"`
	Quiet     bool          `long:"quiet" description:"Do not play the greeting tune"`

	Args struct {
		Robot string `positional-arg-name:"ROBOT" description:"Robot id (default from config)"`
	} `positional-args:"yes"`
}

const (
	connectTimeout = 30 * time.Second
	canvasWidth    = 32 // cells
	canvasHeight   = 16 // cells, two pixels each
	headerHeight   = 3  // title + status + blank line
	footerHeight   = 9  // help line + log box
	maxLogs        = 5  // number of log messages to show
	borderSize     = 2  // chart border
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Series colors
var seriesColors = map[robot.MotorName]string{
	robot.LeftMotor:  "208", // orange
	robot.RightMotor: "51",  // cyan
}

type driveModel struct {
	ctrl     *teleop.Controller
	keys     *teleop.Tracker
	canvas   *ui.Renderer
	chart    *streamlinechart.Model
	stop     context.CancelFunc
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    teleop.State
	quitting bool
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string
type stoppedMsg struct{}

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// waitForStop reports when the controller has stopped the motors, either
// after stop was called or on its own after a fatal error.
func waitForStop(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Done()
		return stoppedMsg{}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 60, canvasHeight - borderSize
	}
	width = m.width - canvasWidth - borderSize - 3
	if width < 20 {
		width = 20
	}
	height = m.height - headerHeight - footerHeight - borderSize
	if height < canvasHeight-borderSize {
		height = canvasHeight - borderSize
	}
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func newDriveModel(ctrl *teleop.Controller, keys *teleop.Tracker, canvas *ui.Renderer, stop context.CancelFunc) driveModel {
	chart := streamlinechart.New(60, canvasHeight-borderSize,
		streamlinechart.WithYRange(-100, 100),
	)
	for _, name := range []robot.MotorName{robot.LeftMotor, robot.RightMotor} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return driveModel{
		ctrl:   ctrl,
		keys:   keys,
		canvas: canvas,
		chart:  &chart,
		stop:   stop,
	}
}

func (m driveModel) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(windowTitle(m.ctrl.Robot().ID)),
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		waitForStop(m.ctrl),
	)
}

func windowTitle(id string) string {
	return "EV3 Remote | Robot " + id
}

// keyFor maps terminal keys to remote control keys.
func keyFor(msg tea.KeyMsg) (teleop.Key, bool) {
	switch msg.Type {
	case tea.KeyUp:
		return teleop.KeyUp, true
	case tea.KeyDown:
		return teleop.KeyDown, true
	case tea.KeyLeft:
		return teleop.KeyLeft, true
	case tea.KeyRight:
		return teleop.KeyRight, true
	case tea.KeySpace:
		return teleop.KeyHorn, true
	case tea.KeyEnter:
		return teleop.KeyAction, true
	}
	return 0, false
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.BlurMsg:
		// Key events stop arriving while unfocused.
		m.keys.Reset()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			// Motors stop before the terminal is released: quit once
			// the controller reports it is done.
			m.quitting = true
			m.stop()
			return m, nil
		}
		if k, ok := keyFor(msg); ok {
			m.keys.Press(k)
		}
		return m, nil

	case stateMsg:
		m.state = teleop.State(msg)
		m.chart.PushDataSet(string(robot.LeftMotor), float64(m.state.Motion.Left()))
		m.chart.PushDataSet(string(robot.RightMotor), float64(m.state.Motion.Right()))
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case stoppedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Stopping motors...\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render(windowTitle(m.ctrl.Robot().ID)))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n\n")

	// Key canvas next to the speed chart
	in := m.state.Input
	canvas := m.canvas.Render(ui.Overlay{
		Up:    in.Up,
		Down:  in.Down,
		Left:  in.Left,
		Right: in.Right,
		Space: in.Horn,
	})
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		canvas, " ", chartStyle.Render(m.chart.View())))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString(statusStyle.Render("   arrows drive, space horn, enter gripper, q quit"))
	sb.WriteString("\n")

	// Log box
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(width).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m driveModel) statusLine() string {
	s := m.state
	var parts []string
	if s.Open {
		parts = append(parts, openStyle.Render("DRIVE"))
	} else {
		reason := s.Reason
		if reason == "" {
			reason = "starting"
		}
		parts = append(parts, closedStyle.Render("LOCKED")+" "+reason)
	}
	if s.HaveGame {
		parts = append(parts, fmt.Sprintf("fuel %d", s.Fuel))
		if s.Game.GameOn {
			parts = append(parts, "game on")
		} else {
			parts = append(parts, "game off")
		}
	}
	if s.Gripper != "" {
		parts = append(parts, "gripper "+s.Gripper)
	}
	return strings.Join(parts, statusStyle.Render(" | "))
}

func renderLegend() string {
	var items []string
	for _, name := range []robot.MotorName{robot.LeftMotor, robot.RightMotor} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

// apply overrides configuration values with the flags that were given.
func (c *DriveCommand) apply(cfg *robot.Config) error {
	if c.Server != "" {
		cfg.ServerURL = c.Server
	}
	if c.Transport != "" {
		cfg.Transport = robot.Transport(c.Transport)
	}
	if c.FPS != 0 {
		cfg.FPS = c.FPS
	}
	if c.Assets != "" {
		cfg.AssetDir = c.Assets
	}
	return cfg.Validate()
}

func (c *DriveCommand) Execute(args []string) error {
	if len(args) > 0 {
		parser.WriteHelp(os.Stderr)
		return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}

	id := c.Args.Robot
	if id == "" {
		id = cfg.DefaultRobot
	}
	ident, err := cfg.Robot(id)
	if err != nil {
		return err
	}
	if c.Serial != "" {
		ident.SerialPort = c.Serial
	}

	closeLog, err := setupLogging(c.LogFile, opts.Verbose)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()

	assets, err := ui.LoadAssets(cfg.AssetDir)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to robot %s (%s) over %s...\n", ident.ID, ident.Address, cfg.Transport)
	connectCtx, cancelConnect := signal.NotifyContext(context.Background(), os.Interrupt)
	connectCtx, cancelTimeout := context.WithTimeout(connectCtx, connectTimeout)
	r, err := robot.Connect(connectCtx, cfg, ident, c.Host)
	cancelTimeout()
	cancelConnect()
	if err != nil {
		return err
	}
	defer r.Close()

	keys := teleop.NewTracker(c.Hold)
	ctrl, err := teleop.NewController(teleop.Config{
		Robot:      ident,
		Drivetrain: r.Drivetrain,
		Gripper:    r.Gripper,
		Signals:    r.Jukebox,
		Game:       game.NewClient(cfg.ServerURL, cfg.FetchTimeout()),
		Keys:       keys,
		Hz:         cfg.FPS,
		Strict:     c.Strict,
		Greeting:   !c.Quiet,
	})
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Start(ctx)

	p := tea.NewProgram(newDriveModel(ctrl, keys, ui.NewRenderer(assets, canvasWidth, canvasHeight), cancel),
		tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := p.Run()

	// The program also ends on its own when the terminal goes away, which
	// counts as a voluntary exit.
	cancel()
	<-ctrl.Done()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, tea.ErrInterrupted) {
		return fmt.Errorf("run display: %w", runErr)
	}
	if err := ctrl.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("Robot %s stopped.\n", ident.ID)
	return nil
}
