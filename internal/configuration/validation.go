package configuration

import (
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/ui"
	"golang.org/x/exp/slices"
	"math"
	"strings"
	"time"
)

// SupportedBaudRates are the rates selectable on the device
var SupportedBaudRates = []int{2400, 4800, 9600, 19200, 38400, 57600, 115200}

const minPollingRate = 50 * time.Millisecond

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	if len(strings.TrimSpace(config.PresetsPath)) <= 0 {
		return errors.New("presetsPath must not be empty")
	}
	if len(strings.TrimSpace(config.DbPath)) <= 0 {
		return errors.New("dbPath must not be empty")
	}

	err := validatePsu(&config.Psu)
	if err != nil {
		return err
	}
	err = validateTiming(config)
	if err != nil {
		return err
	}
	err = validateServers(config)
	if err != nil {
		return err
	}

	if config.Psu.AutoConnect && len(config.Psu.Port) <= 0 {
		ui.Warning("psu.autoConnect is enabled, but no psu.port is configured (%s)", path)
	}

	return nil
}

func validatePsu(config *PsuConfig) error {
	if !slices.Contains(SupportedBaudRates, config.BaudRate) {
		return fmt.Errorf("unsupported baud rate: %d, use one of: %v", config.BaudRate, SupportedBaudRates)
	}
	if config.Timeout <= 0 {
		return fmt.Errorf("psu.timeout must be positive: %s", config.Timeout)
	}

	voltage := float64(config.InitialSetpoint.Voltage)
	current := float64(config.InitialSetpoint.Current)
	if !isValidSetpointValue(voltage) || !isValidSetpointValue(current) {
		return fmt.Errorf("psu.initialSetpoint must not be negative: voltage=%v current=%v", voltage, current)
	}
	return nil
}

func isValidSetpointValue(value float64) bool {
	return value >= 0 && !math.IsNaN(value) && !math.IsInf(value, 0)
}

func validateTiming(config *Configuration) error {
	if config.PollingRate < minPollingRate {
		return fmt.Errorf("pollingRate must be at least %s: %s", minPollingRate, config.PollingRate)
	}
	if config.PollTimeout <= 0 {
		return fmt.Errorf("pollTimeout must be positive: %s", config.PollTimeout)
	}
	if config.IoTimeout <= 0 {
		return fmt.Errorf("ioTimeout must be positive: %s", config.IoTimeout)
	}
	if config.RollingWindowSize <= 0 {
		return fmt.Errorf("rollingWindowSize must be positive: %d", config.RollingWindowSize)
	}
	return nil
}

func validateServers(config *Configuration) error {
	if config.Api.Enabled && !isValidPort(config.Api.Port) {
		return fmt.Errorf("invalid api port: %d", config.Api.Port)
	}
	if config.Statistics.Enabled && !isValidPort(config.Statistics.Port) {
		return fmt.Errorf("invalid statistics port: %d", config.Statistics.Port)
	}
	if config.Api.Enabled && config.Statistics.Enabled && config.Api.Port == config.Statistics.Port {
		return fmt.Errorf("api and statistics can not use the same port: %d", config.Api.Port)
	}
	return nil
}

func isValidPort(port int) bool {
	return port > 0 && port < 65536
}
