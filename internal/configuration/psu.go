package configuration

import (
	"github.com/markusressel/psu2go/internal/data"
	"time"
)

type PsuConfig struct {
	// Port is the serial port to select on startup, e.g. /dev/ttyUSB0
	Port        string        `json:"port"`
	BaudRate    int           `json:"baudRate"`
	Timeout     time.Duration `json:"timeout"`
	AutoConnect bool          `json:"autoConnect"`
	// AutoOutputOnApply switches the output on after a setpoint was applied
	AutoOutputOnApply DefaultTrueBool `json:"autoOutputOnApply"`

	InitialSetpoint SetpointConfig `json:"initialSetpoint"`
}

type SetpointConfig struct {
	Voltage Decimal `json:"voltage"`
	Current Decimal `json:"current"`
}

func (c SetpointConfig) Setpoint() data.Setpoint {
	return data.Setpoint{
		Voltage: float64(c.Voltage),
		Current: float64(c.Current),
	}
}
