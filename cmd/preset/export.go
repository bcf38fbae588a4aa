package preset

import (
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"os"
)

var format string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all presets in a machine readable format",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		store, err := openStore()
		if err != nil {
			return err
		}
		return preset.Export(os.Stdout, store.Snapshot(), format)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&format, "format", "o", preset.FormatJson, "Output format, one of: json, yaml")
	Command.AddCommand(exportCmd)
}
