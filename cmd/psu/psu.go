package psu

import (
	"context"
	"github.com/markusressel/psu2go/internal/configuration"
	"github.com/markusressel/psu2go/internal/persistence"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
	"time"
)

var portName string

var Command = &cobra.Command{
	Use:              "psu",
	Short:            "Power supply related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the power supply (default is psu.port of the configuration)")
}

// connection is a short lived session used by a single command
type connection struct {
	session   *psu.Session
	ioTimeout time.Duration
}

// connect opens a session to the power supply on the selected port
func connect() (*connection, error) {
	if err := configuration.ReadConfigFile(); err != nil {
		return nil, err
	}
	config := configuration.CurrentConfig

	port := resolvePort(config)
	if len(port) <= 0 {
		return nil, psu.ErrPortNotSelected
	}

	driver := psu.NewOwonDriver(config.Psu.BaudRate, config.Psu.Timeout)
	session := psu.NewSession(driver)
	c := &connection{
		session:   session,
		ioTimeout: config.IoTimeout,
	}

	ctx, cancel := c.context()
	defer cancel()
	if err := session.Connect(ctx, port); err != nil {
		session.Close()
		return nil, err
	}
	ui.Debug("Connected to %s", port)
	return c, nil
}

// resolvePort picks the port from the flag, the configuration or the
// port used by the daemon most recently, in that order
func resolvePort(config configuration.Configuration) string {
	if len(portName) > 0 {
		return portName
	}
	if len(config.Psu.Port) > 0 {
		return config.Psu.Port
	}

	p := persistence.NewPersistence(config.DbPath)
	lastPort, err := p.LoadLastPort()
	if err != nil {
		ui.Debug("No last used port: %v", err)
		return ""
	}
	return lastPort
}

func (c *connection) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.ioTimeout)
}

func (c *connection) Close() {
	ctx, cancel := c.context()
	defer cancel()
	if err := c.session.Disconnect(ctx); err != nil {
		ui.Warning("Error disconnecting: %v", err)
	}
	c.session.Close()
}
