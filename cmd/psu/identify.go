package psu

import (
	"fmt"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Print the identification string of the power supply",
	Long:  ``,
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
		identity, ok := c.session.Identify(ctx)
		if !ok {
			return fmt.Errorf("device on %s did not identify itself", c.session.Port())
		}
		fmt.Println(identity)
		return nil
	},
}

func init() {
	Command.AddCommand(identifyCmd)
}
