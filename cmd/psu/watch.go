package psu

import (
	"context"
	"fmt"
	"github.com/asecurityteam/rolling"
	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/psu2go/internal/configuration"
	"github.com/markusressel/psu2go/internal/panel"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

var (
	graphWidth  int
	sampleCount int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously plot the measured voltage and current",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config := configuration.CurrentConfig
		w := newWatcher(graphWidth, config.RollingWindowSize)

		area, err := pterm.DefaultArea.Start()
		if err != nil {
			return err
		}
		defer func() {
			_ = area.Stop()
		}()

		tick := time.NewTicker(config.PollingRate)
		defer tick.Stop()
		for samples := 0; sampleCount <= 0 || samples < sampleCount; samples++ {
			readCtx, cancel := context.WithTimeout(ctx, config.PollTimeout)
			measurement, err := c.session.ReadMeasurements(readCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				ui.Warning("Error reading measurements: %v", err)
			} else {
				w.append(measurement.Voltage, measurement.Current)
				area.Update(w.render())
			}

			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
			}
		}
		return nil
	},
}

// watcher keeps the plotted history of both channels
type watcher struct {
	width int

	voltage []float64
	current []float64

	voltageAvg *util.RollingAverage
	currentAvg *util.RollingAverage
	voltageMax *rolling.PointPolicy
	currentMax *rolling.PointPolicy
}

func newWatcher(width int, windowSize int) *watcher {
	return &watcher{
		width:      width,
		voltageAvg: util.NewRollingAverage(windowSize),
		currentAvg: util.NewRollingAverage(windowSize),
		voltageMax: util.CreateRollingWindow(windowSize),
		currentMax: util.CreateRollingWindow(windowSize),
	}
}

// append adds a sample, channels that could not be read repeat their last value
func (w *watcher) append(voltage *float64, current *float64) {
	w.voltage = w.appendChannel(w.voltage, voltage, w.voltageAvg, w.voltageMax)
	w.current = w.appendChannel(w.current, current, w.currentAvg, w.currentMax)
}

func (w *watcher) appendChannel(history []float64, value *float64, avg *util.RollingAverage, max *rolling.PointPolicy) []float64 {
	var next float64
	if value != nil {
		next = *value
		avg.Append(next)
		max.Append(next)
	} else if len(history) > 0 {
		next = history[len(history)-1]
	} else {
		return history
	}

	history = append(history, next)
	if len(history) > w.width {
		history = history[len(history)-w.width:]
	}
	return history
}

func (w *watcher) render() string {
	var sb strings.Builder
	sb.WriteString(w.plot(w.voltage, "V", w.voltageAvg, w.voltageMax))
	sb.WriteString("\n\n")
	sb.WriteString(w.plot(w.current, "A", w.currentAvg, w.currentMax))
	sb.WriteString("\n")
	return sb.String()
}

func (w *watcher) plot(history []float64, unit string, avg *util.RollingAverage, max *rolling.PointPolicy) string {
	if len(history) <= 0 {
		return panel.FormatReading(nil, unit)
	}

	caption := fmt.Sprintf("%s (max %s)", panel.FormatSetpoint(history[len(history)-1], unit), panel.FormatSetpoint(util.GetWindowMax(max), unit))
	if value, ok := avg.Avg(); ok {
		caption = fmt.Sprintf("%s, avg %s", caption, panel.FormatSetpoint(value, unit))
	}
	return asciigraph.Plot(
		history,
		asciigraph.Height(10),
		asciigraph.Width(w.width),
		asciigraph.Caption(caption),
	)
}

func init() {
	watchCmd.Flags().IntVarP(&graphWidth, "width", "w", 80, "Number of samples shown in the graph")
	watchCmd.Flags().IntVarP(&sampleCount, "count", "n", 0, "Stop after this many samples (0 = run until interrupted)")
	Command.AddCommand(watchCmd)
}
