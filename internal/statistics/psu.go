package statistics

import (
	"github.com/markusressel/psu2go/internal/panel"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemPsu = "psu"

// StateSource provides the state to export
type StateSource interface {
	Snapshot() panel.State
}

type PsuCollector struct {
	source StateSource

	connected       *prometheus.Desc
	voltage         *prometheus.Desc
	current         *prometheus.Desc
	averageVoltage  *prometheus.Desc
	averageCurrent  *prometheus.Desc
	setpointVoltage *prometheus.Desc
	setpointCurrent *prometheus.Desc
	output          *prometheus.Desc
	pollErrors      *prometheus.Desc
	presets         *prometheus.Desc
}

func NewPsuCollector(source StateSource) *PsuCollector {
	return &PsuCollector{
		source: source,
		connected: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "connected"),
			"1 if a power supply is connected",
			[]string{"port"}, nil,
		),
		voltage: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "voltage_volts"),
			"Measured output voltage",
			[]string{"port"}, nil,
		),
		current: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "current_amperes"),
			"Measured output current",
			[]string{"port"}, nil,
		),
		averageVoltage: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "voltage_average_volts"),
			"Rolling average of the measured output voltage",
			[]string{"port"}, nil,
		),
		averageCurrent: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "current_average_amperes"),
			"Rolling average of the measured output current",
			[]string{"port"}, nil,
		),
		setpointVoltage: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "setpoint_voltage_volts"),
			"Voltage setpoint active on the device",
			[]string{"port"}, nil,
		),
		setpointCurrent: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "setpoint_current_amperes"),
			"Current limit active on the device",
			[]string{"port"}, nil,
		),
		output: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "output_enabled"),
			"1 if the output is switched on",
			[]string{"port"}, nil,
		),
		pollErrors: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPsu, "poll_errors_total"),
			"Number of failed measurement polls",
			nil, nil,
		),
		presets: prometheus.NewDesc(prometheus.BuildFQName(namespace, "preset", "count"),
			"Number of stored presets",
			nil, nil,
		),
	}
}

func (collector *PsuCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.connected
	ch <- collector.voltage
	ch <- collector.current
	ch <- collector.averageVoltage
	ch <- collector.averageCurrent
	ch <- collector.setpointVoltage
	ch <- collector.setpointCurrent
	ch <- collector.output
	ch <- collector.pollErrors
	ch <- collector.presets
}

// Collect implements required collect function for all prometheus collectors
func (collector *PsuCollector) Collect(ch chan<- prometheus.Metric) {
	state := collector.source.Snapshot()
	port := state.SelectedPort

	ch <- prometheus.MustNewConstMetric(collector.connected, prometheus.GaugeValue, boolToFloat(state.Connected), port)
	ch <- prometheus.MustNewConstMetric(collector.pollErrors, prometheus.CounterValue, float64(state.PollErrors))
	ch <- prometheus.MustNewConstMetric(collector.presets, prometheus.GaugeValue, float64(len(state.Presets)))

	if !state.Connected {
		return
	}

	ch <- prometheus.MustNewConstMetric(collector.output, prometheus.GaugeValue, boolToFloat(state.Output), port)
	collectOptional(ch, collector.voltage, state.Measurement.Voltage, port)
	collectOptional(ch, collector.current, state.Measurement.Current, port)
	collectOptional(ch, collector.averageVoltage, state.AverageVoltage, port)
	collectOptional(ch, collector.averageCurrent, state.AverageCurrent, port)
	if state.Setpoint != nil {
		ch <- prometheus.MustNewConstMetric(collector.setpointVoltage, prometheus.GaugeValue, state.Setpoint.Voltage, port)
		ch <- prometheus.MustNewConstMetric(collector.setpointCurrent, prometheus.GaugeValue, state.Setpoint.Current, port)
	}
}

// collectOptional skips values that are currently unavailable
func collectOptional(ch chan<- prometheus.Metric, desc *prometheus.Desc, value *float64, port string) {
	if value == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, *value, port)
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
