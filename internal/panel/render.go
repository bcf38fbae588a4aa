package panel

import (
	"fmt"
	"github.com/pterm/pterm"
	"strings"
)

type Renderer interface {
	Render(state State)
	Close()
}

// TerminalRenderer draws the panel into a live area of the terminal
type TerminalRenderer struct {
	area *pterm.AreaPrinter
}

func NewTerminalRenderer() (*TerminalRenderer, error) {
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return nil, err
	}
	return &TerminalRenderer{area: area}, nil
}

func (r *TerminalRenderer) Render(state State) {
	r.area.Update(RenderText(state))
}

func (r *TerminalRenderer) Close() {
	_ = r.area.Stop()
}

// RenderText returns the boxed panel content for the given state
func RenderText(state State) string {
	connection := pterm.FgRed.Sprint("disconnected")
	if state.Connected {
		connection = pterm.FgGreen.Sprint("connected")
	}
	port := state.SelectedPort
	if len(port) <= 0 {
		port = "-"
	}

	output := pterm.FgGray.Sprint(state.OutputLabel)
	if state.Output {
		output = pterm.FgGreen.Sprint(state.OutputLabel)
	}

	presets := make([]string, 0, len(state.Presets))
	for _, p := range state.Presets {
		presets = append(presets, p.Name)
	}

	lines := []string{
		fmt.Sprintf("Port:      %s (%s)", port, connection),
		fmt.Sprintf("Device:    %s", state.Identity),
		fmt.Sprintf("Measured:  %-10s %-10s %s", state.MeasuredVoltage, state.MeasuredCurrent, formatAverages(state)),
		fmt.Sprintf("Setpoint:  %-10s %-10s", state.SetVoltageLabel, state.SetCurrentLabel),
		fmt.Sprintf("Entry:     %-10s %-10s", state.VoltageEntry+" V", state.CurrentEntry+" A"),
		fmt.Sprintf("Output:    %s", output),
		fmt.Sprintf("Presets:   %s", strings.Join(presets, ", ")),
		"",
		statusStyle(state.Status.Level).Sprint(state.Status.Text),
	}

	return pterm.DefaultBox.WithTitle("psu2go").Sprint(strings.Join(lines, "\n"))
}

func formatAverages(state State) string {
	if state.AverageVoltage == nil && state.AverageCurrent == nil {
		return ""
	}
	return fmt.Sprintf("(avg %s / %s)",
		FormatReading(state.AverageVoltage, "V"),
		FormatReading(state.AverageCurrent, "A"),
	)
}

func statusStyle(level Level) pterm.Color {
	switch level {
	case LevelSuccess:
		return pterm.FgGreen
	case LevelWarning:
		return pterm.FgYellow
	case LevelError:
		return pterm.FgRed
	default:
		return pterm.FgCyan
	}
}
