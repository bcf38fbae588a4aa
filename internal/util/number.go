package util

import (
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"math"
	"strconv"
	"strings"
)

var ErrBadNumberFormat = errors.New("bad number format")

// ParseNumber parses user typed decimal text. Both '.' and ',' are accepted
// as decimal separator.
func ParseNumber(text string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if len(normalized) <= 0 {
		return 0, fmt.Errorf("%w: empty value", ErrBadNumberFormat)
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumberFormat, text)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrBadNumberFormat, text)
	}
	return value, nil
}

// ParseNonNegative is like ParseNumber but also rejects values below zero
func ParseNonNegative(text string) (float64, error) {
	value, err := ParseNumber(text)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %q must not be negative", ErrBadNumberFormat, text)
	}
	return value, nil
}

// ParseSetpoint parses user typed voltage and current text
func ParseSetpoint(voltageText string, currentText string) (data.Setpoint, error) {
	voltage, err := ParseNonNegative(voltageText)
	if err != nil {
		return data.Setpoint{}, fmt.Errorf("voltage: %w", err)
	}
	current, err := ParseNonNegative(currentText)
	if err != nil {
		return data.Setpoint{}, fmt.Errorf("current: %w", err)
	}
	return data.Setpoint{Voltage: voltage, Current: current}, nil
}

// FormatNumber formats a value the way it is shown in setpoint entry fields
func FormatNumber(value float64) string {
	result := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(result, ".") {
		result += ".0"
	}
	return result
}
