package psu

import (
	"bytes"
	"fmt"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaudRate = 9600
	DefaultTimeout  = 200 * time.Millisecond

	commandTerminator = "\n"
)

// Port is the subset of serial.Port used by OwonDriver
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortOpener opens the named port with the given baud rate
type PortOpener func(name string, baudRate int) (Port, error)

// OpenSerialPort opens a serial port with 8N1 framing
func OpenSerialPort(name string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// OwonDriver talks SCPI to an Owon SPE series power supply.
type OwonDriver struct {
	baudRate int
	timeout  time.Duration
	open     PortOpener

	port     Port
	portName string
}

func NewOwonDriver(baudRate int, timeout time.Duration) *OwonDriver {
	return NewOwonDriverWithOpener(baudRate, timeout, OpenSerialPort)
}

func NewOwonDriverWithOpener(baudRate int, timeout time.Duration, opener PortOpener) *OwonDriver {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OwonDriver{
		baudRate: baudRate,
		timeout:  timeout,
		open:     opener,
	}
}

func (d *OwonDriver) Connect(port string) error {
	if d.port != nil {
		_ = d.Disconnect()
	}

	p, err := d.open(port, d.baudRate)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", port)
	}
	if err = p.SetReadTimeout(d.timeout); err != nil {
		_ = p.Close()
		return errors.Wrapf(err, "unable to set read timeout on %s", port)
	}

	d.port = p
	d.portName = port

	// front panel is locked while in remote mode
	if err = d.write("SYST:REM"); err != nil {
		_ = d.Disconnect()
		return err
	}

	ui.Debug("Connected to Owon PSU on %s (%d baud)", port, d.baudRate)
	return nil
}

func (d *OwonDriver) Disconnect() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	if err != nil {
		return errors.Wrapf(err, "unable to close %s", d.portName)
	}
	return nil
}

func (d *OwonDriver) IsConnected() bool {
	return d.port != nil
}

func (d *OwonDriver) Port() string {
	return d.portName
}

func (d *OwonDriver) Identify() (string, error) {
	identity, err := d.query("*IDN?")
	if err != nil {
		return "", err
	}
	if len(identity) <= 0 {
		return "", errors.Wrap(ErrIo, "empty identity")
	}
	return identity, nil
}

func (d *OwonDriver) ReadMeasurements() data.Measurement {
	result := data.Measurement{}
	if voltage, err := d.queryFloat("MEAS:VOLT?"); err == nil {
		result.Voltage = &voltage
	} else {
		ui.Debug("Unable to measure voltage: %v", err)
	}
	if current, err := d.queryFloat("MEAS:CURR?"); err == nil {
		result.Current = &current
	} else {
		ui.Debug("Unable to measure current: %v", err)
	}
	return result
}

func (d *OwonDriver) ReadSetpoint() (data.Setpoint, error) {
	voltage, err := d.queryFloat("VOLT?")
	if err != nil {
		return data.Setpoint{}, err
	}
	current, err := d.queryFloat("CURR?")
	if err != nil {
		return data.Setpoint{}, err
	}
	return data.Setpoint{Voltage: voltage, Current: current}, nil
}

func (d *OwonDriver) SetVoltageCurrent(voltage float64, current float64) error {
	if err := d.write(fmt.Sprintf("VOLT %.3f", voltage)); err != nil {
		return err
	}
	return d.write(fmt.Sprintf("CURR %.3f", current))
}

func (d *OwonDriver) SetOutput(enabled bool) error {
	if enabled {
		return d.write("OUTP ON")
	}
	return d.write("OUTP OFF")
}

func (d *OwonDriver) GetOutput() (bool, error) {
	reply, err := d.query("OUTP?")
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(reply) {
	case "ON", "1":
		return true, nil
	case "OFF", "0":
		return false, nil
	default:
		return false, errors.Wrapf(ErrIo, "unexpected output state reply: %q", reply)
	}
}

func (d *OwonDriver) ResetCom() error {
	if len(d.portName) <= 0 {
		return ErrPortNotSelected
	}
	_ = d.Disconnect()
	return d.Connect(d.portName)
}

func (d *OwonDriver) write(command string) error {
	if d.port == nil {
		return ErrNotConnected
	}
	_, err := d.port.Write([]byte(command + commandTerminator))
	if err != nil {
		return errors.Wrapf(err, "unable to write %q", command)
	}
	return nil
}

func (d *OwonDriver) query(command string) (string, error) {
	if d.port == nil {
		return "", ErrNotConnected
	}
	// drop stale replies of earlier, timed out queries
	_ = d.port.ResetInputBuffer()
	if err := d.write(command); err != nil {
		return "", err
	}
	reply, err := d.readLine()
	if err != nil {
		return "", errors.Wrapf(err, "no reply to %q", command)
	}
	return reply, nil
}

func (d *OwonDriver) queryFloat(command string) (float64, error) {
	reply, err := d.query(command)
	if err != nil {
		return 0, err
	}
	return parseReading(reply)
}

func (d *OwonDriver) readLine() (string, error) {
	deadline := time.Now().Add(d.timeout)
	buf := make([]byte, 64)
	var line []byte
	for {
		n, err := d.port.Read(buf)
		if err != nil {
			return "", err
		}
		line = append(line, buf[:n]...)
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			return strings.TrimSpace(string(line[:i])), nil
		}
		if time.Now().After(deadline) {
			return "", errors.Wrap(ErrIo, "read timeout")
		}
	}
}

// parseReading parses a numeric reply, tolerating a trailing unit
func parseReading(reply string) (float64, error) {
	text := strings.TrimRight(strings.TrimSpace(reply), "VvAaWw")
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrIo, "unexpected reply: %q", reply)
	}
	return value, nil
}
