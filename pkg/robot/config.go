package robot

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ev3fleet/ev3remote/pkg/ev3"
)

const DefaultConfigFile = "ev3remote.json"

// ErrUnknownRobot is returned when a robot id is not in the robot table.
var ErrUnknownRobot = errors.New("unknown robot id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Transport selects how the brick is reached.
type Transport string

const (
	WiFi      Transport = "wifi"
	Bluetooth Transport = "bluetooth"
)

// Gripper kinds.
const (
	GripperKindNone  = "none"
	GripperKindMotor = "motor"
	GripperKindServo = "servo"
)

// Config holds the remote control configuration
type Config struct {
	ServerURL      string        `json:"server_url" validate:"required,url"`
	DefaultRobot   string        `json:"default_robot" validate:"required"`
	Transport      Transport     `json:"transport" validate:"oneof=wifi bluetooth"`
	FPS            int           `json:"fps" validate:"gte=1,lte=120"`
	FetchTimeoutMS int           `json:"fetch_timeout_ms" validate:"gte=0"`
	RampMS         int           `json:"ramp_ms" validate:"gte=0"`
	AssetDir       string        `json:"asset_dir" validate:"required"`
	Ports          Ports         `json:"ports"`
	Gripper        GripperConfig `json:"gripper"`
	Robots         []Identity    `json:"robots" validate:"required,min=1,dive"`
}

// GripperConfig holds configuration for the optional gripper
type GripperConfig struct {
	Kind    string      `json:"kind" validate:"oneof=none motor servo"`
	Degrees int         `json:"degrees" validate:"gt=0"`
	Speed   int         `json:"speed" validate:"gt=0,lte=100"`
	Servo   ServoConfig `json:"servo"`
}

// ServoConfig holds configuration for a Feetech servo gripper
type ServoConfig struct {
	Port        string           `json:"port"`
	ID          int              `json:"id" validate:"gte=0,lte=253"`
	MoveTimeMS  int              `json:"move_time_ms" validate:"gte=0"`
	Calibration ServoCalibration `json:"calibration"`
}

// IsCalibrated returns true if the servo has a usable range
func (s *ServoConfig) IsCalibrated() bool {
	return s.Calibration.RangeMax > s.Calibration.RangeMin
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:      "http://192.168.0.3:8088/game/9125",
		DefaultRobot:   "RED",
		Transport:      WiFi,
		FPS:            30,
		FetchTimeoutMS: 500,
		RampMS:         500,
		AssetDir:       "img",
		Ports: Ports{
			Left:    ev3.PortB,
			Right:   ev3.PortC,
			Gripper: ev3.PortA,
		},
		Gripper: GripperConfig{
			Kind:    GripperKindNone,
			Degrees: 370,
			Speed:   50,
			Servo: ServoConfig{
				ID:         1,
				MoveTimeMS: 500,
			},
		},
		Robots: DefaultRobots(),
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ports := []ev3.Port{c.Ports.Left, c.Ports.Right}
	if c.Gripper.Kind == GripperKindMotor {
		ports = append(ports, c.Ports.Gripper)
	}
	for i, p := range ports {
		if p.Number() < 0 {
			return fmt.Errorf("invalid config: bad port %s", p)
		}
		if slices.Contains(ports[:i], p) {
			return fmt.Errorf("invalid config: port %s used twice", p)
		}
	}
	if c.Gripper.Kind == GripperKindServo && c.Gripper.Servo.Port == "" {
		return fmt.Errorf("invalid config: servo gripper needs a serial port")
	}
	seen := make(map[string]bool, len(c.Robots))
	for _, r := range c.Robots {
		if seen[r.ID] {
			return fmt.Errorf("invalid config: duplicate robot id %q", r.ID)
		}
		seen[r.ID] = true
	}
	if !seen[c.DefaultRobot] {
		return fmt.Errorf("invalid config: default robot %q: %w", c.DefaultRobot, ErrUnknownRobot)
	}
	return nil
}

// Robot looks up a robot by id.
func (c *Config) Robot(id string) (Identity, error) {
	for _, r := range c.Robots {
		if r.ID == id {
			return r, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: %q", ErrUnknownRobot, id)
}

// FrameInterval returns the control loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// FetchTimeout returns the game server request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// Ramp returns the motor ramp-up time.
func (c *Config) Ramp() time.Duration {
	return time.Duration(c.RampMS) * time.Millisecond
}

// LoadConfig loads configuration from the default config file, falling back
// to the built-in defaults when it does not exist
func LoadConfig() (*Config, error) {
	if !ConfigExists() {
		return Default(), nil
	}
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
