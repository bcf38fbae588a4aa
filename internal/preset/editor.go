package preset

import (
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/util"
)

// Editor modifies a copy of a Store's presets. Nothing is visible to the
// store until the editor is passed to Store.Commit.
type Editor struct {
	presets *Presets
}

func (e *Editor) Put(name string, voltage float64, current float64) bool {
	return e.presets.Put(name, voltage, current)
}

// PutText parses user typed voltage and current text and stores the preset
func (e *Editor) PutText(name string, voltageText string, currentText string) error {
	setpoint, err := util.ParseSetpoint(voltageText, currentText)
	if err != nil {
		return err
	}
	return e.presets.put(name, setpoint)
}

func (e *Editor) Remove(name string) {
	e.presets.Remove(name)
}

func (e *Editor) List() []string {
	return e.presets.List()
}

func (e *Editor) Get(name string) (data.Setpoint, bool) {
	return e.presets.Get(name)
}

// Replace discards all edits and replaces the edited presets with a copy of p
func (e *Editor) Replace(p *Presets) {
	e.presets = p.Clone()
}

// Presets returns a copy of the edited presets
func (e *Editor) Presets() *Presets {
	return e.presets.Clone()
}
