package data

import "fmt"

// Setpoint is a voltage/current target for the power supply.
type Setpoint struct {
	Voltage float64 `json:"U" yaml:"U"`
	Current float64 `json:"I" yaml:"I"`
}

func (s Setpoint) String() string {
	return fmt.Sprintf("U=%.3f V, I=%.3f A", s.Voltage, s.Current)
}

// Measurement holds the values read back from the device.
// A nil channel means the value could not be read.
type Measurement struct {
	Voltage *float64 `json:"voltage"`
	Current *float64 `json:"current"`
}

// Valid returns true if both channels could be read
func (m Measurement) Valid() bool {
	return m.Voltage != nil && m.Current != nil
}

// Float returns a pointer to a copy of the given value
func Float(value float64) *float64 {
	return &value
}
