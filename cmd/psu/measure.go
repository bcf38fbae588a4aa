package psu

import (
	"fmt"
	"github.com/markusressel/psu2go/internal/panel"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Print the measured output voltage and current",
	Long:  `Channels that could not be read are printed as "--.--".`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := c.context()
		defer cancel()
		measurement, err := c.session.ReadMeasurements(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n",
			panel.FormatReading(measurement.Voltage, "V"),
			panel.FormatReading(measurement.Current, "A"),
		)
		return nil
	},
}

func init() {
	Command.AddCommand(measureCmd)
}
