package panel

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/persistence"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/testingutils"
	"github.com/markusressel/psu2go/internal/util"
	"github.com/stretchr/testify/assert"
)

const (
	testPort = "/dev/ttyUSB0"
	waitFor  = 2 * time.Second
	tick     = 5 * time.Millisecond
)

type testEnv struct {
	panel       *Panel
	driver      *testingutils.FakeDriver
	session     *psu.Session
	persistence persistence.Persistence
	presetsPath string
	cancel      context.CancelFunc
}

func createConfig() Config {
	return Config{
		PollingRate:       20 * time.Millisecond,
		PollTimeout:       200 * time.Millisecond,
		IoTimeout:         1 * time.Second,
		RollingWindowSize: 5,
		AutoOutputOnApply: true,
	}
}

func createPersistence(t *testing.T) persistence.Persistence {
	return persistence.NewPersistence(filepath.Join(t.TempDir(), "psu2go.db"))
}

func startPanel(t *testing.T, config Config, ports []string, pers persistence.Persistence) *testEnv {
	driver := testingutils.NewFakeDriver()
	session := psu.NewSession(driver)
	presetsPath := filepath.Join(t.TempDir(), "psu_presets.json")
	store := preset.NewStore(presetsPath)
	listPorts := func() ([]string, error) {
		return ports, nil
	}

	p := New(config, session, store, pers, listPorts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-p.Done()
		session.Close()
	})

	return &testEnv{
		panel:       p,
		driver:      driver,
		session:     session,
		persistence: pers,
		presetsPath: presetsPath,
		cancel:      cancel,
	}
}

func startConnectedPanel(t *testing.T, config Config) *testEnv {
	env := startPanel(t, config, []string{testPort}, createPersistence(t))
	err := env.panel.SelectPort(testPort)
	assert.NoError(t, err)
	err = env.panel.Connect()
	assert.NoError(t, err)
	return env
}

func TestPanel_RescanSelectsFirstPort(t *testing.T) {
	// GIVEN
	ports := []string{"/dev/ttyACM0", testPort}

	// WHEN
	env := startPanel(t, createConfig(), ports, nil)

	// THEN
	assert.Eventually(t, func() bool {
		s := env.panel.Snapshot()
		return len(s.Ports) == 2 && s.SelectedPort == "/dev/ttyACM0"
	}, waitFor, tick)
}

func TestPanel_RescanWithoutPorts(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{}, nil)

	// WHEN
	err := env.panel.RescanPorts()

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.Empty(t, s.SelectedPort)
	assert.Equal(t, LevelWarning, s.Status.Level)
	assert.Equal(t, "No serial ports found", s.Status.Text)
}

func TestPanel_ConnectReadsDeviceState(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Setpoint = data.Setpoint{Voltage: 5, Current: 1}
		d.Output = true
	})
	_ = env.panel.SelectPort(testPort)

	// WHEN
	err := env.panel.Connect()

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.True(t, s.Connected)
	assert.NotEmpty(t, s.SessionId)
	assert.Equal(t, "OWON,SPE6103,0000000,FV:V1.0", s.Identity)
	assert.Equal(t, "5.000 V", s.SetVoltageLabel)
	assert.Equal(t, "1.000 A", s.SetCurrentLabel)
	assert.Equal(t, "ON", s.OutputLabel)
	assert.Equal(t, LevelSuccess, s.Status.Level)
}

func TestPanel_ConnectUnknownIdentity(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.IdentifyErr = testingutils.ErrFake
	})
	_ = env.panel.SelectPort(testPort)

	// WHEN
	err := env.panel.Connect()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "connected (/dev/ttyUSB0)", env.panel.Snapshot().Identity)
}

func TestPanel_ConnectWithoutPort(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{}, nil)

	// WHEN
	err := env.panel.Connect()

	// THEN
	assert.ErrorIs(t, err, psu.ErrPortNotSelected)
	assert.False(t, env.panel.Snapshot().Connected)
	assert.Equal(t, 0, env.driver.TotalCalls())
}

func TestPanel_ConnectFailure(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.ConnectErr = testingutils.ErrFake
	})
	_ = env.panel.SelectPort(testPort)

	// WHEN
	err := env.panel.Connect()

	// THEN
	assert.ErrorIs(t, err, psu.ErrConnectionFailed)
	s := env.panel.Snapshot()
	assert.False(t, s.Connected)
	assert.Equal(t, LevelError, s.Status.Level)
}

func TestPanel_ToggleConnect(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	err := env.panel.ToggleConnect()

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.False(t, s.Connected)
	assert.Empty(t, s.Identity)
	assert.Equal(t, "—", s.SetVoltageLabel)
	assert.Equal(t, "Disconnected", s.Status.Text)

	err = env.panel.ToggleConnect()
	assert.NoError(t, err)
	assert.True(t, env.panel.Snapshot().Connected)
}

func TestPanel_PollRendersChannelsIndependently(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Measurement = data.Measurement{Voltage: nil, Current: data.Float(3.3)}
	})

	// THEN
	assert.Eventually(t, func() bool {
		return env.panel.Snapshot().MeasuredCurrent == "3.300 A"
	}, waitFor, tick)
	s := env.panel.Snapshot()
	assert.Equal(t, "--.-- V", s.MeasuredVoltage)
	assert.Nil(t, s.AverageVoltage)
	assert.NotNil(t, s.AverageCurrent)
	assert.InDelta(t, 3.3, *s.AverageCurrent, 0.0001)
}

func TestPanel_PollErrorKeepsConnection(t *testing.T) {
	// GIVEN
	config := createConfig()
	config.PollTimeout = 20 * time.Millisecond
	env := startConnectedPanel(t, config)

	// WHEN
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Delay = 100 * time.Millisecond
	})

	// THEN
	assert.Eventually(t, func() bool {
		return env.panel.Snapshot().PollErrors > 0
	}, waitFor, tick)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Delay = 0
	})
	s := env.panel.Snapshot()
	assert.True(t, s.Connected)
	assert.Equal(t, "--.-- V", s.MeasuredVoltage)
	assert.Equal(t, 1, env.driver.MaxConcurrent())
}

func TestPanel_FollowsSessionDisconnect(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Measurement = data.Measurement{Voltage: data.Float(5), Current: data.Float(1)}
	})
	assert.Eventually(t, func() bool {
		return env.panel.Snapshot().MeasuredVoltage == "5.000 V"
	}, waitFor, tick)

	// WHEN
	err := env.session.Disconnect(context.Background())

	// THEN
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		s := env.panel.Snapshot()
		return !s.Connected && s.MeasuredVoltage == "--.-- V"
	}, waitFor, tick)
}

func TestPanel_ApplySetpoint_NotConnected(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)

	// WHEN
	err := env.panel.ApplySetpoint("5,0", "1")

	// THEN
	assert.ErrorIs(t, err, psu.ErrNotConnected)
	assert.Equal(t, 0, env.driver.TotalCalls())
	s := env.panel.Snapshot()
	assert.Equal(t, "5,0", s.VoltageEntry)
	assert.Equal(t, "1", s.CurrentEntry)
	assert.Equal(t, LevelWarning, s.Status.Level)
}

func TestPanel_ApplySetpoint_BadNumber(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	err := env.panel.ApplySetpoint("abc", "1")

	// THEN
	assert.ErrorIs(t, err, util.ErrBadNumberFormat)
	assert.Equal(t, 0, env.driver.Calls("SetVoltageCurrent"))
}

func TestPanel_ApplySetpoint_SwitchesOutputOn(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	err := env.panel.ApplySetpoint("12", "0,5")

	// THEN
	assert.NoError(t, err)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		assert.Equal(t, data.Setpoint{Voltage: 12, Current: 0.5}, d.Setpoint)
		assert.True(t, d.Output)
	})
	s := env.panel.Snapshot()
	assert.Equal(t, "12.000 V", s.SetVoltageLabel)
	assert.Equal(t, "0.500 A", s.SetCurrentLabel)
	assert.True(t, s.Output)

	stored, loadErr := env.persistence.LoadSetpoint(testPort)
	assert.NoError(t, loadErr)
	assert.Equal(t, data.Setpoint{Voltage: 12, Current: 0.5}, stored)
}

func TestPanel_ApplySetpoint_KeepsOutput(t *testing.T) {
	// GIVEN
	config := createConfig()
	config.AutoOutputOnApply = false
	env := startConnectedPanel(t, config)

	// WHEN
	err := env.panel.ApplySetpoint("3.3", "0.1")

	// THEN
	assert.NoError(t, err)
	assert.False(t, env.panel.Snapshot().Output)
	assert.Equal(t, 0, env.driver.Calls("SetOutput"))
}

func TestPanel_ToggleOutputReadsDevice(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())
	assert.False(t, env.panel.Snapshot().Output)
	// switched on at the device itself
	env.driver.Set(func(d *testingutils.FakeDriver) {
		d.Output = true
	})

	// WHEN
	err := env.panel.ToggleOutput()

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.False(t, s.Output)
	assert.Equal(t, "OFF", s.OutputLabel)
}

func TestPanel_SetOutput(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	err := env.panel.SetOutput(true)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "ON", env.panel.Snapshot().OutputLabel)
}

func TestPanel_ApplyPreset_NotConnected(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)

	// WHEN
	err := env.panel.ApplyPreset("5V 1A")

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.Equal(t, "5.0", s.VoltageEntry)
	assert.Equal(t, "1.0", s.CurrentEntry)
	assert.Equal(t, 0, env.driver.TotalCalls())
}

func TestPanel_ApplyPreset_Connected(t *testing.T) {
	// GIVEN
	env := startConnectedPanel(t, createConfig())

	// WHEN
	err := env.panel.ApplyPreset("12V 3A")

	// THEN
	assert.NoError(t, err)
	env.driver.Set(func(d *testingutils.FakeDriver) {
		assert.Equal(t, data.Setpoint{Voltage: 12, Current: 3}, d.Setpoint)
	})
	assert.Equal(t, "12.000 V", env.panel.Snapshot().SetVoltageLabel)
}

func TestPanel_ApplyPreset_Unknown(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)

	// WHEN
	err := env.panel.ApplyPreset("missing")

	// THEN
	assert.ErrorIs(t, err, preset.ErrUnknown)
}

func TestPanel_CommitPresets(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	editor := env.panel.EditPresets()
	editor.Put("test", 9, 0.5)
	assert.Len(t, env.panel.Snapshot().Presets, 3)

	// WHEN
	err := env.panel.CommitPresets(editor)

	// THEN
	assert.NoError(t, err)
	presets := env.panel.Snapshot().Presets
	assert.Len(t, presets, 4)
	assert.Equal(t, "test", presets[3].Name)
	reloaded := preset.Load(env.presetsPath)
	assert.Equal(t, []string{"0V 0A", "5V 1A", "12V 3A", "test"}, reloaded.List())
}

func TestPanel_UpdatePresets(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)

	// WHEN
	err := env.panel.UpdatePresets(func(editor *preset.Editor) error {
		editor.Remove("0V 0A")
		return editor.PutText("test", "9", "0,5")
	})
	failedErr := env.panel.UpdatePresets(func(editor *preset.Editor) error {
		editor.Remove("5V 1A")
		return editor.PutText("bad", "x", "1")
	})

	// THEN
	assert.NoError(t, err)
	assert.ErrorIs(t, failedErr, util.ErrBadNumberFormat)
	presets := env.panel.Snapshot().Presets
	assert.Len(t, presets, 3)
	assert.Equal(t, "5V 1A", presets[0].Name)
	assert.Equal(t, "test", presets[2].Name)
	reloaded := preset.Load(env.presetsPath)
	assert.Equal(t, []string{"5V 1A", "12V 3A", "test"}, reloaded.List())
}

func TestPanel_ResetCom(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	_ = env.panel.SelectPort(testPort)

	// WHEN
	err := env.panel.ResetCom()

	// THEN
	assert.NoError(t, err)
	s := env.panel.Snapshot()
	assert.True(t, s.Connected)
	assert.Equal(t, "connected (/dev/ttyUSB0)", s.Identity)
}

func TestPanel_ResetComWithoutPort(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{}, nil)

	// WHEN
	err := env.panel.ResetCom()

	// THEN
	assert.ErrorIs(t, err, psu.ErrPortNotSelected)
}

func TestPanel_PrefillsStoredSetpoint(t *testing.T) {
	// GIVEN
	pers := createPersistence(t)
	err := pers.SaveSetpoint(testPort, data.Setpoint{Voltage: 7.5, Current: 0.2})
	assert.NoError(t, err)
	config := createConfig()
	config.Port = testPort

	// WHEN
	env := startPanel(t, config, []string{testPort}, pers)

	// THEN
	assert.Eventually(t, func() bool {
		s := env.panel.Snapshot()
		return s.VoltageEntry == "7.5" && s.CurrentEntry == "0.2"
	}, waitFor, tick)
	assert.Equal(t, 0, env.driver.TotalCalls())
}

func TestPanel_InitialSetpoint(t *testing.T) {
	// GIVEN
	config := createConfig()
	config.InitialSetpoint = data.Setpoint{Voltage: 3.3, Current: 0.1}

	// WHEN
	env := startPanel(t, config, []string{testPort}, nil)

	// THEN
	s := env.panel.Snapshot()
	assert.Equal(t, "3.3", s.VoltageEntry)
	assert.Equal(t, "0.1", s.CurrentEntry)
}

func TestPanel_AutoConnect(t *testing.T) {
	// GIVEN
	config := createConfig()
	config.Port = testPort
	config.AutoConnect = true

	// WHEN
	env := startPanel(t, config, []string{}, nil)

	// THEN
	assert.Eventually(t, func() bool {
		return env.panel.Snapshot().Connected
	}, waitFor, tick)
	assert.Equal(t, testPort, env.session.Port())
}

func TestPanel_Subscribe(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	updates, cancel := env.panel.Subscribe()
	defer cancel()

	// WHEN
	err := env.panel.SelectPort("/dev/ttyUSB7")

	// THEN
	assert.NoError(t, err)
	timeout := time.After(waitFor)
	for {
		select {
		case s := <-updates:
			if s.SelectedPort == "/dev/ttyUSB7" {
				return
			}
		case <-timeout:
			t.Fatal("no update received")
		}
	}
}

func TestPanel_Stopped(t *testing.T) {
	// GIVEN
	env := startPanel(t, createConfig(), []string{testPort}, nil)
	env.cancel()
	<-env.panel.Done()

	// WHEN
	err := env.panel.ToggleOutput()

	// THEN
	assert.ErrorIs(t, err, ErrStopped)
}
