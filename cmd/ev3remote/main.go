package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/ev3fleet/ev3remote/pkg/robot"
)

type Options struct {
	Config  string `long:"config" value-name:"FILE" description:"Configuration file (default: ev3remote.json)"`
	Verbose bool   `short:"v" long:"verbose" description:"Log debug messages"`

	Drive  DriveCommand  `command:"drive" alias:"teleop" description:"Drive a robot with the arrow keys (default command)"`
	Robots RobotsCommand `command:"robots" description:"List the known robots"`
	Setup  SetupCommand  `command:"setup" description:"Write the configuration file and calibrate the gripper"`
	Serve  ServeCommand  `command:"serve" description:"Run a referee game server"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "EV3 Remote - drive an EV3 robot from the keyboard while a game server hands out fuel"

	_, err := parser.ParseArgs(withDefaultCommand(os.Args[1:]))
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// withDefaultCommand routes invocations that do not name a command to drive,
// so "ev3remote RED" means "ev3remote drive RED".
func withDefaultCommand(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "-help" {
			a = "--help"
		}
		out = append(out, a)
	}
	if len(out) > 0 {
		if out[0] == "-h" || out[0] == "--help" || parser.Find(out[0]) != nil {
			return out
		}
	}
	return append([]string{"drive"}, out...)
}

// loadConfig reads --config, or the default file when present.
func loadConfig() (*robot.Config, error) {
	if opts.Config != "" {
		return robot.LoadConfigFrom(opts.Config)
	}
	return robot.LoadConfig()
}

func configPath() string {
	if opts.Config != "" {
		return opts.Config
	}
	return robot.DefaultConfigFile
}
