package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ev3fleet/ev3remote/pkg/robot"
)

type RobotsCommand struct{}

func (c *RobotsCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableIDStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableDefaultStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(cfg.Robots))
	defaultRow := -1
	for i, r := range cfg.Robots {
		if r.ID == cfg.DefaultRobot {
			defaultRow = i
		}
		rows = append(rows, []string{r.ID, r.Address, r.BrickSerial(), r.TeamKey(), r.SerialPort})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Robot", "Address", "WiFi serial", "Team", "Bluetooth port").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case row == defaultRow && col == 0:
				return tableDefaultStyle
			case col == 0:
				return tableIDStyle
			default:
				return tableCellStyle
			}
		})
	fmt.Println(t.Render())

	fmt.Printf("Default robot: %s, transport: %s, game server: %s\n",
		cfg.DefaultRobot, cfg.Transport, cfg.ServerURL)
	for _, name := range robot.AllMotors() {
		if name == robot.GripperMotor && cfg.Gripper.Kind != robot.GripperKindMotor {
			continue
		}
		fmt.Printf("  %-8s port %s\n", name, cfg.Ports.Of(name))
	}
	if cfg.Gripper.Kind == robot.GripperKindServo {
		fmt.Printf("  %-8s servo %d on %s\n", robot.GripperMotor, cfg.Gripper.Servo.ID, cfg.Gripper.Servo.Port)
	}
	return nil
}
