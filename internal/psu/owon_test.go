package psu

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakePort struct {
	mu       sync.Mutex
	replies  map[string]string
	written  []string
	pending  []byte
	closed   bool
	timeout  time.Duration
	writeErr error
}

func newFakePort(replies map[string]string) *fakePort {
	return &fakePort{replies: replies}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) <= 0 {
		timeout := p.timeout
		p.mu.Unlock()
		// behaves like a serial port with a read timeout
		time.Sleep(timeout)
		return 0, nil
	}
	defer p.mu.Unlock()
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	command := strings.TrimSuffix(string(b), "\n")
	p.written = append(p.written, command)
	if reply, ok := p.replies[command]; ok {
		p.pending = append(p.pending, []byte(reply+"\r\n")...)
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	return nil
}

func (p *fakePort) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.written...)
}

func createOwonDriver(port *fakePort) (*OwonDriver, *[]string) {
	var opened []string
	driver := NewOwonDriverWithOpener(9600, 20*time.Millisecond, func(name string, baudRate int) (Port, error) {
		opened = append(opened, name)
		return port, nil
	})
	return driver, &opened
}

func TestOwonDriver_ConnectEntersRemoteMode(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{})
	driver, opened := createOwonDriver(port)

	// WHEN
	err := driver.Connect("/dev/ttyUSB0")

	// THEN
	assert.NoError(t, err)
	assert.True(t, driver.IsConnected())
	assert.Equal(t, "/dev/ttyUSB0", driver.Port())
	assert.Equal(t, []string{"/dev/ttyUSB0"}, *opened)
	assert.Equal(t, []string{"SYST:REM"}, port.Written())
	assert.Equal(t, 20*time.Millisecond, port.timeout)
}

func TestOwonDriver_ConnectOpenError(t *testing.T) {
	// GIVEN
	driver := NewOwonDriverWithOpener(9600, 20*time.Millisecond, func(name string, baudRate int) (Port, error) {
		return nil, errors.New("no such device")
	})

	// WHEN
	err := driver.Connect("/dev/ttyUSB9")

	// THEN
	assert.Error(t, err)
	assert.False(t, driver.IsConnected())
}

func TestOwonDriver_ReadMeasurements(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{
		"MEAS:VOLT?": "12.003",
		"MEAS:CURR?": "0.512",
	})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	result := driver.ReadMeasurements()

	// THEN
	assert.True(t, result.Valid())
	assert.Equal(t, 12.003, *result.Voltage)
	assert.Equal(t, 0.512, *result.Current)
}

func TestOwonDriver_ReadMeasurements_ChannelsAreIndependent(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{
		"MEAS:CURR?": "3.3",
	})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	result := driver.ReadMeasurements()

	// THEN
	assert.Nil(t, result.Voltage)
	assert.NotNil(t, result.Current)
	assert.Equal(t, 3.3, *result.Current)
}

func TestOwonDriver_SetVoltageCurrent(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	err := driver.SetVoltageCurrent(5, 1.25)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, []string{"SYST:REM", "VOLT 5.000", "CURR 1.250"}, port.Written())
}

func TestOwonDriver_Output(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{
		"OUTP?": "ON",
	})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	state, err := driver.GetOutput()
	setErr := driver.SetOutput(false)

	// THEN
	assert.NoError(t, err)
	assert.NoError(t, setErr)
	assert.True(t, state)
	assert.Equal(t, []string{"SYST:REM", "OUTP?", "OUTP OFF"}, port.Written())
}

func TestOwonDriver_GetOutputUnexpectedReply(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{
		"OUTP?": "MAYBE",
	})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	_, err := driver.GetOutput()

	// THEN
	assert.ErrorIs(t, err, ErrIo)
}

func TestOwonDriver_IdentifyAndSetpoint(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{
		"*IDN?": "OWON,SPE6103,2222,FV:V1.2",
		"VOLT?": "5.000",
		"CURR?": "1.000A",
	})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	identity, idErr := driver.Identify()
	setpoint, spErr := driver.ReadSetpoint()

	// THEN
	assert.NoError(t, idErr)
	assert.NoError(t, spErr)
	assert.Equal(t, "OWON,SPE6103,2222,FV:V1.2", identity)
	assert.Equal(t, 5.0, setpoint.Voltage)
	assert.Equal(t, 1.0, setpoint.Current)
}

func TestOwonDriver_QueryTimeout(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{})
	driver, _ := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	_, err := driver.Identify()

	// THEN
	assert.ErrorIs(t, err, ErrIo)
}

func TestOwonDriver_NotConnected(t *testing.T) {
	// GIVEN
	driver, _ := createOwonDriver(newFakePort(map[string]string{}))

	// WHEN
	err := driver.SetOutput(true)

	// THEN
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestOwonDriver_ResetCom(t *testing.T) {
	// GIVEN
	port := newFakePort(map[string]string{})
	driver, opened := createOwonDriver(port)
	_ = driver.Connect("/dev/ttyUSB0")

	// WHEN
	err := driver.ResetCom()

	// THEN
	assert.NoError(t, err)
	assert.True(t, driver.IsConnected())
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB0"}, *opened)
}

func TestOwonDriver_ResetComWithoutPort(t *testing.T) {
	// GIVEN
	driver, _ := createOwonDriver(newFakePort(map[string]string{}))

	// WHEN
	err := driver.ResetCom()

	// THEN
	assert.ErrorIs(t, err, ErrPortNotSelected)
}

func TestParseReading(t *testing.T) {
	inputs := map[string]float64{
		"5":        5,
		" 12.003 ": 12.003,
		"1.000A":   1,
		"3.30V":    3.3,
	}
	for input, expected := range inputs {
		// WHEN
		result, err := parseReading(input)

		// THEN
		assert.NoError(t, err)
		assert.Equal(t, expected, result)
	}

	_, err := parseReading("ERR")
	assert.ErrorIs(t, err, ErrIo)
}
