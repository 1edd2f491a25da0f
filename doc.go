// Package ev3remote drives a two-motor LEGO EV3 robot from the keyboard.
//
// Arrow keys move the robot, space sounds the horn and enter opens or closes
// the gripper. A game server hands out fuel per team and switches the game
// on and off; the controls only work while the robot's team has fuel and
// the game is on.
//
// # Installation
//
//	go install github.com/ev3fleet/ev3remote/cmd/ev3remote@latest
//
// # Usage
//
// Optionally run setup to pick the game server, robot, transport and gripper:
//
//	ev3remote setup
//
// Then drive a robot by its id:
//
//	ev3remote RED
//
// A referee can run a game server with:
//
//	ev3remote serve --team RED=10 --on
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/ev3remote: CLI with drive, robots, setup and serve commands
//   - pkg/ev3: EV3 direct command protocol over WiFi and Bluetooth
//   - pkg/drive: Key to motor speed mapping
//   - pkg/robot: Robot table, configuration, drivetrain and gripper
//   - pkg/game: Game server client and referee server
//   - pkg/teleop: Remote control loop
//   - pkg/ui: Terminal rendering of the key images
package ev3remote
