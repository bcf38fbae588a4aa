package panel

import (
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"golang.org/x/exp/slices"
	"strings"
)

func failed(action string, err error) outcome {
	level := LevelWarning
	if errors.Is(err, psu.ErrConnectionFailed) || errors.Is(err, psu.ErrIo) || errors.Is(err, preset.ErrPersistence) {
		level = LevelError
	}
	return outcome{
		status: Status{Text: fmt.Sprintf("%s failed: %v", action, err), Level: level},
		err:    err,
	}
}

func (p *Panel) RescanPorts() error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		p.rescanPorts(s, finish, nil)
	})
}

// rescanPorts updates the list of available ports. then is executed on the
// loop after the list was updated.
func (p *Panel) rescanPorts(s *State, finish func(outcome), then func(s *State)) {
	p.offLoop(func() func(s *State) outcome {
		ports, err := p.listPorts()
		lastPort := p.loadLastPort()
		return func(s *State) outcome {
			if err != nil {
				return failed("Scanning ports", err)
			}
			s.Ports = ports

			if !s.Connected && !p.isSelectable(ports, s.SelectedPort) {
				switch {
				case slices.Contains(ports, lastPort):
					s.SelectedPort = lastPort
				case len(ports) > 0:
					s.SelectedPort = ports[0]
				default:
					s.SelectedPort = ""
				}
			}
			p.prefill(s.SelectedPort)

			if then != nil {
				then(s)
			}

			if len(ports) <= 0 {
				return succeeded(LevelWarning, "No serial ports found")
			}
			return succeeded(LevelInfo, fmt.Sprintf("Found %d port(s)", len(ports)))
		}
	}, finish)
}

// isSelectable returns true if the port can stay selected. The configured
// port is kept even if it is not enumerated, e.g. a udev symlink.
func (p *Panel) isSelectable(ports []string, port string) bool {
	if len(port) <= 0 {
		return false
	}
	return slices.Contains(ports, port) || port == p.config.Port
}

func (p *Panel) SelectPort(port string) error {
	port = strings.TrimSpace(port)
	return p.dispatch(func(s *State, finish func(outcome)) {
		if len(port) <= 0 {
			finish(failed("Selecting port", psu.ErrPortNotSelected))
			return
		}
		s.SelectedPort = port
		p.prefill(port)
		if s.Connected && p.session.Port() != port {
			finish(succeeded(LevelInfo, fmt.Sprintf("Selected %s, reconnect to use it", port)))
			return
		}
		finish(succeeded(LevelInfo, fmt.Sprintf("Selected %s", port)))
	})
}

// prefill fills the setpoint entry fields with the setpoint last applied on
// the given port, unless the user already typed something
func (p *Panel) prefill(port string) {
	if p.persistence == nil || len(port) <= 0 || p.entryTouched {
		return
	}
	go func() {
		setpoint, err := p.persistence.LoadSetpoint(port)
		if err != nil {
			return
		}
		p.post(func(s *State) {
			if p.entryTouched || s.SelectedPort != port {
				return
			}
			s.VoltageEntry = util.FormatNumber(setpoint.Voltage)
			s.CurrentEntry = util.FormatNumber(setpoint.Current)
		})
	}()
}

// ToggleConnect disconnects if connected, otherwise connects to the selected port
func (p *Panel) ToggleConnect() error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		if s.Connected {
			p.disconnect(s, finish)
		} else {
			p.connect(s, finish)
		}
	})
}

func (p *Panel) Connect() error {
	return p.dispatch(p.connect)
}

func (p *Panel) Disconnect() error {
	return p.dispatch(p.disconnect)
}

func (p *Panel) connect(s *State, finish func(outcome)) {
	port := s.SelectedPort
	if len(port) <= 0 {
		finish(failed("Connecting", psu.ErrPortNotSelected))
		return
	}
	s.Status = Status{Text: fmt.Sprintf("Connecting to %s...", port), Level: LevelInfo}
	p.publish()

	p.offLoop(func() func(s *State) outcome {
		ctx, cancel := p.ioContext()
		defer cancel()

		err := p.session.Connect(ctx, port)
		if err != nil {
			ui.ErrorAndNotify("Connection failed", "Unable to connect to %s: %v", port, err)
			return func(s *State) outcome {
				return failed("Connecting to "+port, err)
			}
		}

		identity, known := p.session.Identify(ctx)
		setpoint, setpointErr := p.session.ReadSetpoint(ctx)
		output, outputErr := p.session.OutputState(ctx)
		p.saveLastPort(port)

		return func(s *State) outcome {
			if !p.session.IsConnected() {
				return failed("Connecting to "+port, psu.ErrNotConnected)
			}
			if known {
				s.Identity = identity
			} else {
				s.Identity = fmt.Sprintf("connected (%s)", port)
			}
			if setpointErr == nil {
				s.setSetpoint(&setpoint)
			} else {
				ui.Warning("Unable to read setpoint: %v", setpointErr)
				s.setSetpoint(nil)
			}
			if outputErr == nil {
				s.setOutput(output)
			} else {
				ui.Warning("Unable to read output state: %v", outputErr)
			}
			return succeeded(LevelSuccess, "Connected to "+s.Identity)
		}
	}, finish)
}

func (p *Panel) disconnect(s *State, finish func(outcome)) {
	p.offLoop(func() func(s *State) outcome {
		ctx, cancel := p.ioContext()
		defer cancel()
		err := p.session.Disconnect(ctx)

		return func(s *State) outcome {
			s.setSetpoint(nil)
			s.setOutput(false)
			if err != nil {
				ui.Warning("Error while disconnecting: %v", err)
				return succeeded(LevelWarning, fmt.Sprintf("Disconnected (%v)", err))
			}
			return succeeded(LevelInfo, "Disconnected")
		}
	}, finish)
}

// ApplySetpoint parses the given voltage and current text and writes it to the device
func (p *Panel) ApplySetpoint(voltageText string, currentText string) error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		s.VoltageEntry = voltageText
		s.CurrentEntry = currentText
		p.entryTouched = true

		setpoint, err := util.ParseSetpoint(voltageText, currentText)
		if err != nil {
			finish(failed("Applying setpoint", err))
			return
		}
		p.applySetpoint(s, setpoint, finish)
	})
}

func (p *Panel) applySetpoint(s *State, setpoint data.Setpoint, finish func(outcome)) {
	if !s.Connected {
		finish(failed("Applying setpoint", psu.ErrNotConnected))
		return
	}

	p.offLoop(func() func(s *State) outcome {
		ctx, cancel := p.ioContext()
		defer cancel()

		err := p.session.ApplySetpoint(ctx, setpoint)
		if err != nil {
			return func(s *State) outcome {
				return failed("Applying setpoint", err)
			}
		}

		outputKnown := false
		output := false
		if p.config.AutoOutputOnApply {
			output, err = p.session.OutputState(ctx)
			if err == nil && !output {
				err = p.session.SetOutput(ctx, true)
				output = err == nil
			}
			if err != nil {
				ui.Warning("Unable to switch output on: %v", err)
			} else {
				outputKnown = true
			}
		}
		p.saveSetpoint(p.session.Port(), setpoint)

		return func(s *State) outcome {
			s.setSetpoint(&setpoint)
			if outputKnown {
				s.setOutput(output)
			}
			return succeeded(LevelSuccess, "Applied "+setpoint.String())
		}
	}, finish)
}

// ToggleOutput reads the output state from the device and inverts it
func (p *Panel) ToggleOutput() error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		if !s.Connected {
			finish(failed("Toggling output", psu.ErrNotConnected))
			return
		}
		p.offLoop(func() func(s *State) outcome {
			ctx, cancel := p.ioContext()
			defer cancel()
			enabled, err := p.session.ToggleOutput(ctx)
			return func(s *State) outcome {
				if err != nil {
					return failed("Toggling output", err)
				}
				s.setOutput(enabled)
				return succeeded(LevelSuccess, "Output "+s.OutputLabel)
			}
		}, finish)
	})
}

func (p *Panel) SetOutput(enabled bool) error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		if !s.Connected {
			finish(failed("Switching output", psu.ErrNotConnected))
			return
		}
		p.offLoop(func() func(s *State) outcome {
			ctx, cancel := p.ioContext()
			defer cancel()
			err := p.session.SetOutput(ctx, enabled)
			return func(s *State) outcome {
				if err != nil {
					return failed("Switching output", err)
				}
				s.setOutput(enabled)
				return succeeded(LevelSuccess, "Output "+s.OutputLabel)
			}
		}, finish)
	})
}

// ApplyPreset copies the preset into the setpoint entry fields and applies
// it if a device is connected
func (p *Panel) ApplyPreset(name string) error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		setpoint, ok := p.store.Get(name)
		if !ok {
			finish(failed("Applying preset", fmt.Errorf("%w: %s", preset.ErrUnknown, name)))
			return
		}
		s.VoltageEntry = util.FormatNumber(setpoint.Voltage)
		s.CurrentEntry = util.FormatNumber(setpoint.Current)
		p.entryTouched = true

		if !s.Connected {
			finish(succeeded(LevelInfo, fmt.Sprintf("Preset %s loaded", name)))
			return
		}
		p.applySetpoint(s, setpoint, finish)
	})
}

// ResetCom reopens the selected port
func (p *Panel) ResetCom() error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		port := s.SelectedPort
		if len(port) <= 0 {
			finish(failed("Resetting communication", psu.ErrPortNotSelected))
			return
		}
		p.offLoop(func() func(s *State) outcome {
			ctx, cancel := p.ioContext()
			defer cancel()
			err := p.session.ResetComm(ctx, port)
			if err != nil {
				ui.ErrorAndNotify("Connection failed", "Unable to reset communication on %s: %v", port, err)
			}
			return func(s *State) outcome {
				if err != nil {
					return failed("Resetting communication", err)
				}
				if len(s.Identity) <= 0 {
					s.Identity = fmt.Sprintf("connected (%s)", port)
				}
				return succeeded(LevelSuccess, "Communication reset on "+port)
			}
		}, finish)
	})
}

// EditPresets returns an editor working on a copy of the presets
func (p *Panel) EditPresets() *preset.Editor {
	return p.store.Edit()
}

// CommitPresets persists the editor's presets and shows them
func (p *Panel) CommitPresets(editor *preset.Editor) error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		p.offLoop(func() func(s *State) outcome {
			err := p.store.Commit(editor)
			return func(s *State) outcome {
				if err != nil {
					return failed("Saving presets", err)
				}
				s.Presets = p.store.Snapshot().Entries()
				return succeeded(LevelSuccess, fmt.Sprintf("Saved %d preset(s)", len(s.Presets)))
			}
		}, finish)
	})
}

// UpdatePresets applies fn to the current presets and persists the result.
// Updates never overwrite each other.
func (p *Panel) UpdatePresets(fn func(editor *preset.Editor) error) error {
	return p.dispatch(func(s *State, finish func(outcome)) {
		p.offLoop(func() func(s *State) outcome {
			err := p.store.Update(fn)
			return func(s *State) outcome {
				if err != nil {
					return failed("Saving presets", err)
				}
				s.Presets = p.store.Snapshot().Entries()
				return succeeded(LevelSuccess, fmt.Sprintf("Saved %d preset(s)", len(s.Presets)))
			}
		}, finish)
	})
}

func (p *Panel) saveSetpoint(port string, setpoint data.Setpoint) {
	if p.persistence == nil || len(port) <= 0 {
		return
	}
	if err := p.persistence.SaveSetpoint(port, setpoint); err != nil {
		ui.Warning("Unable to store setpoint for %s: %v", port, err)
	}
}

func (p *Panel) saveLastPort(port string) {
	if p.persistence == nil {
		return
	}
	if err := p.persistence.SaveLastPort(port); err != nil {
		ui.Warning("Unable to store last used port: %v", err)
	}
}

func (p *Panel) loadLastPort() string {
	if p.persistence == nil {
		return ""
	}
	port, err := p.persistence.LoadLastPort()
	if err != nil {
		return ""
	}
	return port
}
