package psu

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const closeTimeout = 2 * time.Second

type job struct {
	ctx      context.Context
	fn       func(driver Driver) error
	err      error
	finished chan struct{}
}

// Session wraps the connection to a single device.
// All driver calls are executed one after another by a single worker goroutine.
// Callers wait for their call until it finished or their context expired.
type Session struct {
	driver Driver

	jobs      chan *job
	done      chan struct{}
	closeOnce sync.Once

	state atomic.Int32
	port  atomic.Value
	id    atomic.Value
}

func NewSession(driver Driver) *Session {
	s := &Session{
		driver: driver,
		jobs:   make(chan *job),
		done:   make(chan struct{}),
	}
	s.port.Store("")
	s.id.Store("")
	go s.work()
	return s
}

func (s *Session) work() {
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			// the caller already gave up on this job
			if j.ctx.Err() != nil {
				j.err = timeoutError(j.ctx)
			} else {
				j.err = j.fn(s.driver)
			}
			close(j.finished)
		}
	}
}

func (s *Session) do(ctx context.Context, fn func(driver Driver) error) error {
	j := &job{
		ctx:      ctx,
		fn:       fn,
		finished: make(chan struct{}),
	}

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return timeoutError(ctx)
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case <-j.finished:
		return j.err
	case <-ctx.Done():
		return timeoutError(ctx)
	}
}

func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

func (s *Session) IsConnected() bool {
	return s.State() == Connected
}

// Port returns the port of the last successful connection
func (s *Session) Port() string {
	return s.port.Load().(string)
}

// ID returns a unique id of the current connection, empty if disconnected
func (s *Session) ID() string {
	return s.id.Load().(string)
}

func (s *Session) setConnected(port string) {
	s.port.Store(port)
	s.id.Store(uuid.NewString())
	s.state.Store(int32(Connected))
}

func (s *Session) setDisconnected() {
	s.state.Store(int32(Disconnected))
	s.id.Store("")
}

func (s *Session) Connect(ctx context.Context, port string) error {
	port = strings.TrimSpace(port)
	if len(port) <= 0 {
		return ErrPortNotSelected
	}

	return s.do(ctx, func(driver Driver) error {
		if err := driver.Connect(port); err != nil {
			s.setDisconnected()
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, port, err)
		}
		s.setConnected(port)
		ui.Info("Connected to PSU on %s", port)
		return nil
	})
}

// Disconnect always leaves the session disconnected, even if closing the
// port failed.
func (s *Session) Disconnect(ctx context.Context) error {
	s.setDisconnected()
	return s.do(ctx, func(driver Driver) error {
		return ioError(driver.Disconnect())
	})
}

func (s *Session) ensureConnected(driver Driver) error {
	if !s.IsConnected() || !driver.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// ReadMeasurements reads both channels. Channels that could not be read are nil,
// this is not an error.
func (s *Session) ReadMeasurements(ctx context.Context) (data.Measurement, error) {
	if !s.IsConnected() {
		return data.Measurement{}, ErrNotConnected
	}
	var result data.Measurement
	err := s.do(ctx, func(driver Driver) error {
		if err := s.ensureConnected(driver); err != nil {
			return err
		}
		result = driver.ReadMeasurements()
		return nil
	})
	if err != nil {
		return data.Measurement{}, err
	}
	return result, nil
}

func (s *Session) ReadSetpoint(ctx context.Context) (data.Setpoint, error) {
	if !s.IsConnected() {
		return data.Setpoint{}, ErrNotConnected
	}
	var result data.Setpoint
	err := s.do(ctx, func(driver Driver) (err error) {
		if err = s.ensureConnected(driver); err != nil {
			return err
		}
		result, err = driver.ReadSetpoint()
		return ioError(err)
	})
	if err != nil {
		return data.Setpoint{}, err
	}
	return result, nil
}

// ApplySetpoint writes voltage and current in a single device job
func (s *Session) ApplySetpoint(ctx context.Context, setpoint data.Setpoint) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	if setpoint.Voltage < 0 || setpoint.Current < 0 {
		return fmt.Errorf("%w: setpoint must not be negative: %s", util.ErrBadNumberFormat, setpoint)
	}
	return s.do(ctx, func(driver Driver) error {
		if err := s.ensureConnected(driver); err != nil {
			return err
		}
		return ioError(driver.SetVoltageCurrent(setpoint.Voltage, setpoint.Current))
	})
}

func (s *Session) SetOutput(ctx context.Context, enabled bool) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	return s.do(ctx, func(driver Driver) error {
		if err := s.ensureConnected(driver); err != nil {
			return err
		}
		return ioError(driver.SetOutput(enabled))
	})
}

// ToggleOutput reads the output flag from the device and writes its inverse.
// Returns the new output state.
func (s *Session) ToggleOutput(ctx context.Context) (bool, error) {
	if !s.IsConnected() {
		return false, ErrNotConnected
	}
	var result bool
	err := s.do(ctx, func(driver Driver) error {
		if err := s.ensureConnected(driver); err != nil {
			return err
		}
		current, err := driver.GetOutput()
		if err != nil {
			return ioError(err)
		}
		if err = driver.SetOutput(!current); err != nil {
			return ioError(err)
		}
		result = !current
		return nil
	})
	if err != nil {
		return false, err
	}
	return result, nil
}

func (s *Session) OutputState(ctx context.Context) (bool, error) {
	if !s.IsConnected() {
		return false, ErrNotConnected
	}
	var result bool
	err := s.do(ctx, func(driver Driver) (err error) {
		if err = s.ensureConnected(driver); err != nil {
			return err
		}
		result, err = driver.GetOutput()
		return ioError(err)
	})
	if err != nil {
		return false, err
	}
	return result, nil
}

// Identify returns the identity string of the device, false if it is unknown
func (s *Session) Identify(ctx context.Context) (string, bool) {
	if !s.IsConnected() {
		return "", false
	}
	var result string
	err := s.do(ctx, func(driver Driver) (err error) {
		if err = s.ensureConnected(driver); err != nil {
			return err
		}
		result, err = driver.Identify()
		return err
	})
	if err != nil || len(strings.TrimSpace(result)) <= 0 {
		return "", false
	}
	return strings.TrimSpace(result), true
}

// ResetComm closes and reopens the given port. The session does not need to be
// connected for this.
func (s *Session) ResetComm(ctx context.Context, port string) error {
	port = strings.TrimSpace(port)
	if len(port) <= 0 {
		return ErrPortNotSelected
	}

	return s.do(ctx, func(driver Driver) error {
		var err error
		if driver.Port() == port {
			err = driver.ResetCom()
		} else {
			_ = driver.Disconnect()
			err = driver.Connect(port)
		}
		if err != nil {
			s.setDisconnected()
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, port, err)
		}
		s.setConnected(port)
		ui.Info("Reset communication on %s", port)
		return nil
	})
}

// Close disconnects the device and stops the worker
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := s.Disconnect(ctx); err != nil {
			ui.Warning("Error closing PSU session: %v", err)
		}
		close(s.done)
	})
}
