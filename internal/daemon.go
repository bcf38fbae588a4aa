package internal

import (
	"context"
	"errors"
	"fmt"
	"github.com/markusressel/psu2go/internal/api"
	"github.com/markusressel/psu2go/internal/configuration"
	"github.com/markusressel/psu2go/internal/panel"
	"github.com/markusressel/psu2go/internal/persistence"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/statistics"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

func RunDaemon() {
	config := configuration.CurrentConfig
	ui.SetNotificationsEnabled(config.Notifications)

	pers := persistence.NewPersistence(config.DbPath)
	if err := pers.Init(); err != nil {
		ui.Warning("Unable to initialize persistence at %s, setpoints will not be remembered: %v", config.DbPath, err)
		pers = nil
	}

	store := preset.NewStore(config.PresetsPath)
	ui.Info("Loaded %d presets from %s", len(store.List()), store.Path())

	driver := psu.NewOwonDriver(config.Psu.BaudRate, config.Psu.Timeout)
	session := psu.NewSession(driver)
	defer session.Close()

	var renderer panel.Renderer
	if config.Panel.Enabled.Get() {
		terminalRenderer, err := panel.NewTerminalRenderer()
		if err != nil {
			ui.Warning("Unable to draw the panel: %v", err)
		} else {
			renderer = terminalRenderer
		}
	}

	p := panel.New(CreatePanelConfig(config), session, store, pers, psu.ListPorts, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	{
		// === panel
		g.Add(func() error {
			return p.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	{
		enabled := config.Statistics.Enabled
		if enabled {
			statistics.Register(statistics.NewPsuCollector(p))

			// === Prometheus Exporter
			port := config.Statistics.Port
			if port <= 0 || port >= 65535 {
				port = 9000
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

			g.Add(func() error {
				ui.Info("Serving metrics on %s/metrics", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping statistics server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := server.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		if config.Api.Enabled {
			// === REST API
			rest := api.CreateRestService(p, prometheus.DefaultRegisterer)
			addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)

			g.Add(func() error {
				ui.Info("Serving REST API on %s", addr)
				if err := rest.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					ui.Error("Cannot start REST API (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping REST API...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer timeoutCancel()
				if err := rest.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping REST API: %v", err)
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		session.Close()
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else {
		session.Close()
		ui.Info("Done.")
		os.Exit(0)
	}
}

// CreatePanelConfig maps the configuration to the panel settings
func CreatePanelConfig(config configuration.Configuration) panel.Config {
	return panel.Config{
		PollingRate:       config.PollingRate,
		PollTimeout:       config.PollTimeout,
		IoTimeout:         config.IoTimeout,
		RollingWindowSize: config.RollingWindowSize,
		Port:              config.Psu.Port,
		AutoConnect:       config.Psu.AutoConnect,
		AutoOutputOnApply: config.Psu.AutoOutputOnApply.Get(),
		InitialSetpoint:   config.Psu.InitialSetpoint.Setpoint(),
	}
}
