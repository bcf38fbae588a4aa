package testingutils

import (
	"errors"
	"github.com/markusressel/psu2go/internal/data"
	"sync"
	"time"
)

var ErrFake = errors.New("fake driver failure")

// FakeDriver is an in-memory power supply for tests
type FakeDriver struct {
	mu sync.Mutex

	connected bool
	portName  string

	Identity    string
	Measurement data.Measurement
	Setpoint    data.Setpoint
	Output      bool

	ConnectErr  error
	IdentifyErr error
	SetpointErr error
	OutputErr   error

	// Delay is applied to every call, to simulate a slow device
	Delay time.Duration

	calls         map[string]int
	inFlight      int
	maxConcurrent int
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Identity: "OWON,SPE6103,0000000,FV:V1.0",
		calls:    map[string]int{},
	}
}

func (d *FakeDriver) enter(name string) {
	d.mu.Lock()
	d.calls[name]++
	d.inFlight++
	if d.inFlight > d.maxConcurrent {
		d.maxConcurrent = d.inFlight
	}
	delay := d.Delay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
}

func (d *FakeDriver) leave() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
}

// Calls returns how often the given method was called
func (d *FakeDriver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// TotalCalls returns the number of calls to any method
func (d *FakeDriver) TotalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, count := range d.calls {
		total += count
	}
	return total
}

// MaxConcurrent returns the highest number of calls that were executed at the same time
func (d *FakeDriver) MaxConcurrent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxConcurrent
}

func (d *FakeDriver) Set(fn func(d *FakeDriver)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d)
}

func (d *FakeDriver) Connect(port string) error {
	d.enter("Connect")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ConnectErr != nil {
		d.connected = false
		return d.ConnectErr
	}
	d.connected = true
	d.portName = port
	return nil
}

func (d *FakeDriver) Disconnect() error {
	d.enter("Disconnect")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *FakeDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *FakeDriver) Port() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.portName
}

func (d *FakeDriver) Identify() (string, error) {
	d.enter("Identify")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Identity, d.IdentifyErr
}

func (d *FakeDriver) ReadMeasurements() data.Measurement {
	d.enter("ReadMeasurements")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Measurement
}

func (d *FakeDriver) ReadSetpoint() (data.Setpoint, error) {
	d.enter("ReadSetpoint")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Setpoint, d.SetpointErr
}

func (d *FakeDriver) SetVoltageCurrent(voltage float64, current float64) error {
	d.enter("SetVoltageCurrent")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SetpointErr != nil {
		return d.SetpointErr
	}
	d.Setpoint = data.Setpoint{Voltage: voltage, Current: current}
	return nil
}

func (d *FakeDriver) SetOutput(enabled bool) error {
	d.enter("SetOutput")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OutputErr != nil {
		return d.OutputErr
	}
	d.Output = enabled
	return nil
}

func (d *FakeDriver) GetOutput() (bool, error) {
	d.enter("GetOutput")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Output, d.OutputErr
}

func (d *FakeDriver) ResetCom() error {
	d.enter("ResetCom")
	defer d.leave()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ConnectErr != nil {
		d.connected = false
		return d.ConnectErr
	}
	d.connected = true
	return nil
}
