package panel

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/persistence"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
	"sync"
	"time"
)

var ErrStopped = errors.New("panel is not running")

type Config struct {
	PollingRate       time.Duration
	PollTimeout       time.Duration
	IoTimeout         time.Duration
	RollingWindowSize int

	// Port is selected on startup if set
	Port              string
	AutoConnect       bool
	AutoOutputOnApply bool
	InitialSetpoint   data.Setpoint
}

type outcome struct {
	status Status
	err    error
}

func succeeded(level Level, text string) outcome {
	return outcome{status: Status{Text: text, Level: level}}
}

type command struct {
	run    func(s *State, finish func(outcome))
	result chan error
}

// Panel is the event loop that owns the displayed State.
// Device I/O is never executed on the loop itself.
type Panel struct {
	config      Config
	session     *psu.Session
	store       *preset.Store
	persistence persistence.Persistence
	listPorts   psu.PortLister
	renderer    Renderer

	ctx      context.Context
	commands chan command
	updates  chan func(s *State)
	stopped  chan struct{}
	runOnce  sync.Once

	// owned by the loop
	state        State
	polling      bool
	entryTouched bool
	avgVoltage   *util.RollingAverage
	avgCurrent   *util.RollingAverage

	snapshotMu  sync.RWMutex
	snapshot    State
	subscribers cmap.ConcurrentMap[string, chan State]
}

// New creates a panel. persistence and renderer are optional.
func New(
	config Config,
	session *psu.Session,
	store *preset.Store,
	persistence persistence.Persistence,
	listPorts psu.PortLister,
	renderer Renderer,
) *Panel {
	if config.RollingWindowSize <= 0 {
		config.RollingWindowSize = 1
	}
	p := &Panel{
		config:      config,
		session:     session,
		store:       store,
		persistence: persistence,
		listPorts:   listPorts,
		renderer:    renderer,
		ctx:         context.Background(),
		commands:    make(chan command),
		updates:     make(chan func(s *State)),
		stopped:     make(chan struct{}),
		state:       newState(),
		avgVoltage:  util.NewRollingAverage(config.RollingWindowSize),
		avgCurrent:  util.NewRollingAverage(config.RollingWindowSize),
		subscribers: cmap.New[chan State](),
	}
	p.state.VoltageEntry = util.FormatNumber(config.InitialSetpoint.Voltage)
	p.state.CurrentEntry = util.FormatNumber(config.InitialSetpoint.Current)
	p.state.SelectedPort = config.Port
	p.snapshot = p.state.Clone()
	return p
}

// Run executes the panel loop until the context is cancelled
func (p *Panel) Run(ctx context.Context) error {
	started := false
	p.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("panel is already running")
	}
	defer close(p.stopped)
	if p.renderer != nil {
		defer p.renderer.Close()
	}

	p.ctx = ctx
	ticker := time.NewTicker(p.config.PollingRate)
	defer ticker.Stop()

	p.initialize()

	for {
		select {
		case <-ctx.Done():
			ui.Debug("Panel stopped")
			return nil
		case cmd := <-p.commands:
			cmd.run(&p.state, p.finisher(cmd.result))
		case update := <-p.updates:
			update(&p.state)
			p.syncConnection()
			p.publish()
		case <-ticker.C:
			if p.syncConnection() {
				p.publish()
			}
			p.poll()
		}
	}
}

func (p *Panel) initialize() {
	p.state.Presets = p.store.Snapshot().Entries()
	p.state.Status = Status{Text: "Ready", Level: LevelInfo}
	p.publish()

	p.rescanPorts(&p.state, p.finisher(nil), func(s *State) {
		if p.config.AutoConnect && len(s.SelectedPort) > 0 {
			p.connect(s, p.finisher(nil))
		}
	})
}

// finisher returns the function that completes an action on the loop
func (p *Panel) finisher(result chan error) func(outcome) {
	return func(o outcome) {
		p.state.Status = o.status
		p.syncConnection()
		p.publish()
		if result != nil {
			result <- o.err
		}
	}
}

// dispatch runs the given action on the loop and waits until it finished
func (p *Panel) dispatch(run func(s *State, finish func(outcome))) error {
	result := make(chan error, 1)
	select {
	case p.commands <- command{run: run, result: result}:
	case <-p.stopped:
		return ErrStopped
	}
	select {
	case err := <-result:
		return err
	case <-p.stopped:
		return ErrStopped
	}
}

// post applies the given update on the loop
func (p *Panel) post(update func(s *State)) {
	select {
	case p.updates <- update:
	case <-p.stopped:
	}
}

// offLoop executes work on its own goroutine. The returned function is then
// applied on the loop and its outcome finishes the action.
func (p *Panel) offLoop(work func() func(s *State) outcome, finish func(outcome)) {
	go func() {
		apply := work()
		p.post(func(s *State) {
			finish(apply(s))
		})
	}()
}

func (p *Panel) ioContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(p.ctx, p.config.IoTimeout)
}

// syncConnection takes over the connection state of the session,
// returns true if it changed
func (p *Panel) syncConnection() bool {
	s := &p.state
	connected := p.session.IsConnected()
	id := p.session.ID()
	if s.Connected == connected && s.SessionId == id {
		return false
	}
	s.Connected = connected
	s.SessionId = id
	if !connected {
		s.Identity = ""
		s.setMeasurement(data.Measurement{})
		s.AverageVoltage = nil
		s.AverageCurrent = nil
		p.avgVoltage.Reset()
		p.avgCurrent.Reset()
	}
	return true
}

func (p *Panel) poll() {
	if !p.state.Connected || p.polling {
		return
	}
	p.polling = true
	go func() {
		ctx, cancel := context.WithTimeout(p.ctx, p.config.PollTimeout)
		measurement, err := p.session.ReadMeasurements(ctx)
		cancel()
		p.post(func(s *State) {
			p.polling = false
			p.applyMeasurement(s, measurement, err)
		})
	}()
}

func (p *Panel) applyMeasurement(s *State, measurement data.Measurement, err error) {
	if err != nil {
		s.setMeasurement(data.Measurement{})
		if errors.Is(err, psu.ErrNotConnected) {
			return
		}
		s.PollErrors++
		s.Status = Status{Text: "Reading measurements failed: " + err.Error(), Level: LevelWarning}
		return
	}

	s.setMeasurement(measurement)
	if measurement.Voltage != nil {
		p.avgVoltage.Append(*measurement.Voltage)
	}
	if measurement.Current != nil {
		p.avgCurrent.Append(*measurement.Current)
	}
	s.AverageVoltage = average(p.avgVoltage)
	s.AverageCurrent = average(p.avgCurrent)
}

func average(window *util.RollingAverage) *float64 {
	value, ok := window.Avg()
	if !ok {
		return nil
	}
	return data.Float(value)
}

// publish renders the state and hands copies of it to all subscribers
func (p *Panel) publish() {
	p.state.UpdatedAt = time.Now()
	snapshot := p.state.Clone()

	p.snapshotMu.Lock()
	p.snapshot = snapshot
	p.snapshotMu.Unlock()

	if p.renderer != nil {
		p.renderer.Render(snapshot)
	}

	for item := range p.subscribers.IterBuffered() {
		ch := item.Val
		// subscribers only care about the latest state
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot.Clone():
		default:
		}
	}
}

// Snapshot returns a copy of the current state
func (p *Panel) Snapshot() State {
	p.snapshotMu.RLock()
	defer p.snapshotMu.RUnlock()
	return p.snapshot.Clone()
}

// Subscribe returns a channel receiving the state after every change.
// Slow subscribers miss intermediate states.
func (p *Panel) Subscribe() (<-chan State, func()) {
	id := uuid.NewString()
	ch := make(chan State, 1)
	p.subscribers.Set(id, ch)
	return ch, func() {
		p.subscribers.Remove(id)
	}
}

// Done is closed when the panel loop stopped
func (p *Panel) Done() <-chan struct{} {
	return p.stopped
}
