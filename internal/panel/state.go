package panel

import (
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/preset"
	"time"
)

const (
	unavailableReading = "--.--"
	unknownSetpoint    = "—"
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*l = LevelInfo
	case "success":
		*l = LevelSuccess
	case "warning":
		*l = LevelWarning
	case "error":
		*l = LevelError
	default:
		return fmt.Errorf("unknown level: %s", text)
	}
	return nil
}

// Status is the single line of feedback shown below the panel
type Status struct {
	Text  string `json:"text"`
	Level Level  `json:"level"`
}

// State is everything the panel displays. It is owned by the panel loop,
// everybody else only ever sees copies.
type State struct {
	Ports        []string `json:"ports"`
	SelectedPort string   `json:"selectedPort"`

	Connected bool   `json:"connected"`
	SessionId string `json:"sessionId,omitempty"`
	Identity  string `json:"identity"`

	Measurement     data.Measurement `json:"measurement"`
	MeasuredVoltage string           `json:"measuredVoltage"`
	MeasuredCurrent string           `json:"measuredCurrent"`
	AverageVoltage  *float64         `json:"averageVoltage"`
	AverageCurrent  *float64         `json:"averageCurrent"`
	PollErrors      uint64           `json:"pollErrors"`

	// text of the setpoint entry fields
	VoltageEntry string `json:"voltageEntry"`
	CurrentEntry string `json:"currentEntry"`

	// last setpoint known to be active on the device
	Setpoint        *data.Setpoint `json:"setpoint"`
	SetVoltageLabel string         `json:"setVoltageLabel"`
	SetCurrentLabel string         `json:"setCurrentLabel"`

	Output      bool   `json:"output"`
	OutputLabel string `json:"outputLabel"`

	Presets []preset.Preset `json:"presets"`

	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newState() State {
	s := State{
		Ports:   []string{},
		Presets: []preset.Preset{},
	}
	s.setMeasurement(data.Measurement{})
	s.setSetpoint(nil)
	s.setOutput(false)
	return s
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	result := s
	result.Ports = append([]string{}, s.Ports...)
	result.Presets = append([]preset.Preset{}, s.Presets...)
	result.Measurement = data.Measurement{
		Voltage: copyFloat(s.Measurement.Voltage),
		Current: copyFloat(s.Measurement.Current),
	}
	result.AverageVoltage = copyFloat(s.AverageVoltage)
	result.AverageCurrent = copyFloat(s.AverageCurrent)
	if s.Setpoint != nil {
		setpoint := *s.Setpoint
		result.Setpoint = &setpoint
	}
	return result
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	return data.Float(*value)
}

func (s *State) setMeasurement(measurement data.Measurement) {
	s.Measurement = measurement
	s.MeasuredVoltage = FormatReading(measurement.Voltage, "V")
	s.MeasuredCurrent = FormatReading(measurement.Current, "A")
}

func (s *State) setSetpoint(setpoint *data.Setpoint) {
	s.Setpoint = setpoint
	if setpoint == nil {
		s.SetVoltageLabel = unknownSetpoint
		s.SetCurrentLabel = unknownSetpoint
		return
	}
	s.SetVoltageLabel = FormatSetpoint(setpoint.Voltage, "V")
	s.SetCurrentLabel = FormatSetpoint(setpoint.Current, "A")
}

func (s *State) setOutput(enabled bool) {
	s.Output = enabled
	if enabled {
		s.OutputLabel = "ON"
	} else {
		s.OutputLabel = "OFF"
	}
}

// FormatReading formats a measured value, a nil value is shown as unavailable
func FormatReading(value *float64, unit string) string {
	if value == nil {
		return fmt.Sprintf("%s %s", unavailableReading, unit)
	}
	return fmt.Sprintf("%.3f %s", *value, unit)
}

func FormatSetpoint(value float64, unit string) string {
	return fmt.Sprintf("%.3f %s", value, unit)
}
