package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/ev3fleet/ev3remote/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errAborted = errors.New("setup aborted")

type SetupCommand struct {
	MaxID int `long:"max-id" default:"10" description:"Highest servo id to scan for when looking for a gripper servo"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("EV3 Remote Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Ignoring existing configuration: %v", err)))
		cfg = robot.Default()
	}

	// Step 1: game server, robot and transport
	if err := askBasics(cfg); err != nil {
		return err
	}

	// Step 2: gripper
	switch cfg.Gripper.Kind {
	case robot.GripperKindServo:
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Gripper Servo ━━━"))
		fmt.Println()
		if err := setupServoGripper(&cfg.Gripper.Servo, c.MaxID); err != nil {
			return err
		}
	case robot.GripperKindMotor:
		fmt.Printf("Gripper motor on port %s, %d° at speed %d\n",
			cfg.Ports.Gripper, cfg.Gripper.Degrees, cfg.Gripper.Speed)
	}

	if err := cfg.SaveTo(configPath()); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", configPath())
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("ev3remote "+cfg.DefaultRobot))

	return nil
}

func askBasics(cfg *robot.Config) error {
	ids := make([]string, 0, len(cfg.Robots))
	for _, r := range cfg.Robots {
		ids = append(ids, r.ID)
	}
	transport := string(cfg.Transport)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Game server URL").
				Description("Polled every frame for fuel and game_on").
				Value(&cfg.ServerURL).
				Validate(validateURL),
			huh.NewSelect[string]().
				Title("Default robot").
				Options(huh.NewOptions(ids...)...).
				Value(&cfg.DefaultRobot),
			huh.NewSelect[string]().
				Title("Connect over").
				Options(
					huh.NewOption("WiFi (brick announces itself on the network)", string(robot.WiFi)),
					huh.NewOption("Bluetooth (paired serial port)", string(robot.Bluetooth)),
				).
				Value(&transport),
			huh.NewSelect[string]().
				Title("Gripper").
				Options(
					huh.NewOption("None", robot.GripperKindNone),
					huh.NewOption("EV3 medium motor", robot.GripperKindMotor),
					huh.NewOption("Feetech servo", robot.GripperKindServo),
				).
				Value(&cfg.Gripper.Kind),
		),
	)
	if err := form.Run(); err != nil {
		return errAborted
	}
	cfg.Transport = robot.Transport(transport)

	if cfg.Transport == robot.Bluetooth {
		return askSerialPort(cfg)
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL, e.g. http://192.168.0.3:8088/game/9125")
	}
	return nil
}

// askSerialPort picks the Bluetooth serial device of the default robot.
func askSerialPort(cfg *robot.Config) error {
	idx := -1
	for i, r := range cfg.Robots {
		if r.ID == cfg.DefaultRobot {
			idx = i
		}
	}
	if idx < 0 {
		return robot.ErrUnknownRobot
	}

	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		fmt.Println(dimStyle.Render("No serial ports found, enter the device by hand."))
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Bluetooth serial device of %s", cfg.DefaultRobot)).
				Value(&cfg.Robots[idx].SerialPort),
		))
		if err := form.Run(); err != nil {
			return errAborted
		}
		return nil
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Bluetooth serial device of %s", cfg.DefaultRobot)).
			Options(huh.NewOptions(ports...)...).
			Value(&cfg.Robots[idx].SerialPort),
	))
	if err := form.Run(); err != nil {
		return errAborted
	}
	return nil
}

func setupServoGripper(sc *robot.ServoConfig, maxID int) error {
	fmt.Println("Scanning for Feetech servos...")
	fmt.Println()

	found := findServos(maxID)
	if len(found) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the servo bus is connected and powered on.")
		return errors.New("no gripper servo found")
	}

	var gripper *servoInfo
	for i := range found {
		ok, err := identifyWithWiggle(found[i])
		if err != nil {
			closeAll(found)
			return err
		}
		if ok {
			gripper = &found[i]
			break
		}
	}
	if gripper == nil {
		closeAll(found)
		return errors.New("gripper servo not identified")
	}

	sc.Port = gripper.port
	sc.ID = gripper.servo.ID
	fmt.Println(successStyle.Render("Gripper identified:"))
	fmt.Printf("  Servo %d on %s\n\n", sc.ID, sc.Port)

	cal, err := calibrateGripper(gripper)
	closeAll(found)
	if err != nil {
		return err
	}
	sc.Calibration = cal
	if !sc.IsCalibrated() {
		return errors.New("gripper did not move during calibration")
	}
	return nil
}

type servoInfo struct {
	port  string
	servo feetech.FoundServo
	bus   *feetech.Bus
}

// findServos scans every serial port for servos with ids 1..maxID. Servos on
// the same port share one bus.
func findServos(maxID int) []servoInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []servoInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, maxID)
		cancel()

		if err != nil || len(servos) == 0 {
			bus.Close()
			continue
		}

		for _, s := range servos {
			fmt.Printf("  Found servo %d on %s\n", s.ID, port)
			found = append(found, servoInfo{port: port, servo: s, bus: bus})
		}
	}

	return found
}

func closeAll(servos []servoInfo) {
	closed := make(map[*feetech.Bus]bool)
	for _, s := range servos {
		if !closed[s.bus] {
			s.bus.Close()
			closed[s.bus] = true
		}
	}
}

// wiggler is the part of a feetech servo a wiggle needs.
type wiggler interface {
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
	Disable(ctx context.Context) error
}

// wiggle nudges the servo either side of pos, returns it and releases
// torque. Failed moves are reported and the wiggle carries on, so the
// servo always ends up disabled.
func wiggle(ctx context.Context, servo wiggler, pos int, moveTime time.Duration) int {
	const amount = 30
	failed := 0
	for _, target := range []int{pos + amount, pos - amount, pos} {
		if err := servo.SetPositionWithTime(ctx, target, int(moveTime.Milliseconds())); err != nil {
			fmt.Printf("  Error moving servo to %d: %v\n", target, err)
			failed++
			continue
		}
		time.Sleep(moveTime + moveTime/5)
	}
	if err := servo.Disable(ctx); err != nil {
		fmt.Printf("  Error disabling servo: %v\n", err)
		failed++
	}
	return failed
}

// identifyWithWiggle moves the servo a little and asks whether it was the
// gripper.
func identifyWithWiggle(info servoInfo) (bool, error) {
	ctx := context.Background()
	servo := feetech.NewServo(info.bus, info.servo.ID, info.servo.Model)

	// Read current position
	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false, nil
	}

	// Enable torque for wiggle
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false, nil
	}

	fmt.Printf("\n  Wiggling servo %d on %s...\n", info.servo.ID, info.port)

	wiggle(ctx, servo, originalPos, 500*time.Millisecond)

	var isGripper bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Did the gripper move? (servo %d on %s)", info.servo.ID, info.port)).
				Affirmative("Yes").
				Negative("No, try the next one").
				Value(&isGripper),
		),
	)
	if err := form.Run(); err != nil {
		return false, errAborted
	}
	return isGripper, nil
}

func calibrateGripper(info *servoInfo) (robot.ServoCalibration, error) {
	ctx := context.Background()
	servo := feetech.NewServo(info.bus, info.servo.ID, info.servo.Model)

	// Disable the servo so the claws can be moved by hand
	if err := servo.Disable(ctx); err != nil {
		return robot.ServoCalibration{}, fmt.Errorf("release servo %d: %w", info.servo.ID, err)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move the claws from fully closed to fully open.")
	fmt.Println()

	pos, err := servo.Position(ctx)
	if err != nil {
		return robot.ServoCalibration{}, fmt.Errorf("read servo position: %w", err)
	}

	model := newCalibrationModel(servo, pos)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return robot.ServoCalibration{}, fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)
	if cm.aborted {
		return robot.ServoCalibration{}, errAborted
	}

	cal := robot.ServoCalibration{RangeMin: cm.minPos, RangeMax: cm.maxPos}

	// Open is the maximum unless the claws, now open, rest nearer the minimum.
	var open bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Are the claws open right now?").
			Value(&open),
	))
	if err := form.Run(); err != nil {
		return robot.ServoCalibration{}, errAborted
	}
	nearMax := cal.Normalize(cm.curPos) >= 0
	cal.Inverted = open != nearMax

	fmt.Println()
	fmt.Println("Gripper calibrated.")
	return cal, nil
}

// positionReader reads a servo position.
type positionReader interface {
	Position(ctx context.Context) (int, error)
}

// Calibration TUI model
type calibrationModel struct {
	servo    positionReader
	curPos   int
	minPos   int
	maxPos   int
	quitting bool
	aborted  bool
}

type tickMsg time.Time

func newCalibrationModel(servo positionReader, pos int) calibrationModel {
	return calibrationModel{
		servo:  servo,
		curPos: pos,
		minPos: pos,
		maxPos: pos,
	}
}

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.quitting = true
			return m, tea.Quit
		case "q", "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		pos, err := m.servo.Position(context.Background())
		if err == nil {
			m.curPos = pos
			m.minPos = min(m.minPos, pos)
			m.maxPos = max(m.maxPos, pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rangeSize := m.maxPos - m.minPos
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Servo", "Current", "Min", "Max", "Range").
		Row(
			string(robot.GripperMotor),
			fmt.Sprintf("%d", m.curPos),
			fmt.Sprintf("%d", m.minPos),
			fmt.Sprintf("%d", m.maxPos),
			fmt.Sprintf("%d", rangeSize),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if rangeSize > 200 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, q to abort"))

	return sb.String()
}
