package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"math"
	"strings"
)

var (
	ErrNotAnObject  = errors.New("presets document is not a JSON object")
	ErrEmptyName    = errors.New("preset name must not be empty")
	ErrInvalidValue = errors.New("preset values must be finite and not negative")
	ErrUnknown      = errors.New("unknown preset")
)

// Presets is an ordered mapping from preset name to setpoint.
// Iteration order is insertion order; overwriting an entry keeps its position.
type Presets struct {
	names  []string
	values map[string]data.Setpoint
}

func NewPresets() *Presets {
	return &Presets{
		values: map[string]data.Setpoint{},
	}
}

// DefaultPresets returns the presets used when no valid presets file exists
func DefaultPresets() *Presets {
	p := NewPresets()
	p.Put("0V 0A", 0, 0)
	p.Put("5V 1A", 5, 1)
	p.Put("12V 3A", 12, 3)
	return p
}

// Put inserts or overwrites the entry for name.
// Returns false if name is empty after trimming whitespace or a value is invalid.
func (p *Presets) Put(name string, voltage float64, current float64) bool {
	return p.put(name, data.Setpoint{Voltage: voltage, Current: current}) == nil
}

func (p *Presets) put(name string, setpoint data.Setpoint) error {
	name = strings.TrimSpace(name)
	if len(name) <= 0 {
		return ErrEmptyName
	}
	if !isValidValue(setpoint.Voltage) || !isValidValue(setpoint.Current) {
		return fmt.Errorf("%w: %s (%s)", ErrInvalidValue, name, setpoint)
	}
	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}
	p.values[name] = setpoint
	return nil
}

func isValidValue(value float64) bool {
	return value >= 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}

// Remove deletes the entry for name, if present
func (p *Presets) Remove(name string) {
	name = strings.TrimSpace(name)
	if _, exists := p.values[name]; !exists {
		return
	}
	delete(p.values, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// List returns all preset names in insertion order
func (p *Presets) List() []string {
	result := make([]string, len(p.names))
	copy(result, p.names)
	return result
}

func (p *Presets) Get(name string) (data.Setpoint, bool) {
	setpoint, ok := p.values[name]
	return setpoint, ok
}

func (p *Presets) Len() int {
	return len(p.names)
}

// Clone returns a deep copy
func (p *Presets) Clone() *Presets {
	result := &Presets{
		names:  make([]string, len(p.names)),
		values: make(map[string]data.Setpoint, len(p.values)),
	}
	copy(result.names, p.names)
	for k, v := range p.values {
		result.values[k] = v
	}
	return result
}

// Equal compares names, order and values
func (p *Presets) Equal(other *Presets) bool {
	if other == nil || p.Len() != other.Len() {
		return false
	}
	for i, name := range p.names {
		if other.names[i] != name || other.values[name] != p.values[name] {
			return false
		}
	}
	return true
}

// Entries returns all presets in order
func (p *Presets) Entries() []Preset {
	result := make([]Preset, 0, len(p.names))
	for _, name := range p.names {
		result = append(result, Preset{Name: name, Setpoint: p.values[name]})
	}
	return result
}

// Preset is a single named setpoint
type Preset struct {
	Name string `json:"name"`
	data.Setpoint
}

func (p *Presets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalUnescaped(name)
		if err != nil {
			return nil, err
		}
		value, err := marshalUnescaped(p.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalUnescaped(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
// Entries with an empty name or invalid values are an error.
func (p *Presets) UnmarshalJSON(b []byte) error {
	result, err := decode(b, nil)
	if err != nil {
		return err
	}
	*p = *result
	return nil
}

// decode reads a JSON object of presets in document order.
// If skip is nil, the first invalid entry fails the whole document. Otherwise
// invalid entries are passed to skip and left out of the result.
func decode(b []byte, skip func(name string, err error)) (*Presets, error) {
	decoder := json.NewDecoder(bytes.NewReader(b))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotAnObject
	}

	result := NewPresets()
	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return nil, err
		}
		name, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", token)
		}

		var raw json.RawMessage
		if err = decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}

		entryErr := decodeEntry(result, name, raw)
		if entryErr != nil {
			if skip == nil {
				return nil, entryErr
			}
			skip(name, entryErr)
		}
	}

	if _, err = decoder.Token(); err != nil {
		return nil, err
	}
	return result, nil
}

func decodeEntry(presets *Presets, name string, raw json.RawMessage) error {
	var setpoint data.Setpoint
	if err := json.Unmarshal(raw, &setpoint); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
	}
	return presets.put(name, setpoint)
}
