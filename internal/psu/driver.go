package psu

import "github.com/markusressel/psu2go/internal/data"

// Driver is the boundary towards a single power supply device.
// Implementations are not safe for concurrent use, Session serializes all calls.
type Driver interface {
	// Connect opens the given port. Any previously open port is closed first.
	Connect(port string) error
	Disconnect() error
	IsConnected() bool
	// Port returns the last port this driver was connected to
	Port() string

	// Identify returns a human-readable identity string of the device
	Identify() (string, error)

	// ReadMeasurements reads both output channels. Each channel that could
	// not be read is nil.
	ReadMeasurements() data.Measurement
	// ReadSetpoint reads the currently configured voltage and current targets
	ReadSetpoint() (data.Setpoint, error)
	SetVoltageCurrent(voltage float64, current float64) error

	SetOutput(enabled bool) error
	GetOutput() (bool, error)

	// ResetCom closes and reopens the last used port
	ResetCom() error
}
