package psu

import (
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
)

var outputCmd = &cobra.Command{
	Use:       "output [on|off|toggle]",
	Short:     "Print or change the output state",
	Long:      `Without an argument the current output state is printed.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := c.context()
		defer cancel()

		var enabled bool
		if len(args) <= 0 {
			enabled, err = c.session.OutputState(ctx)
		} else {
			switch args[0] {
			case "on":
				enabled = true
				err = c.session.SetOutput(ctx, true)
			case "off":
				err = c.session.SetOutput(ctx, false)
			case "toggle":
				enabled, err = c.session.ToggleOutput(ctx)
			}
		}
		if err != nil {
			return err
		}

		ui.Printfln("Output: %s", formatOutput(enabled))
		return nil
	},
}

func formatOutput(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

func init() {
	Command.AddCommand(outputCmd)
}
