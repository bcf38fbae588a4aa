package psu

import (
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the serial communication with the power supply",
	Long:  `Closes and reopens the serial port and clears the device's communication state.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := c.context()
		defer cancel()
		if err = c.session.ResetComm(ctx, c.session.Port()); err != nil {
			return err
		}
		ui.Success("Communication with %s reset", c.session.Port())
		return nil
	},
}

func init() {
	Command.AddCommand(resetCmd)
}
