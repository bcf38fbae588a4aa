package preset

import (
	"bytes"
	"github.com/markusressel/psu2go/cmd/global"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all presets",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		entries := store.Snapshot().Entries()
		if len(entries) <= 0 {
			ui.Warning("No presets found in %s", store.Path())
			return nil
		}

		var rows [][]string
		for _, entry := range entries {
			rows = append(rows, []string{
				entry.Name, util.FormatNumber(entry.Voltage), util.FormatNumber(entry.Current),
			})
		}

		tab := table.Table{
			Headers: []string{"Name", "Voltage (V)", "Current (A)"},
			Rows:    rows,
		}
		var buf bytes.Buffer
		tableErr := tab.WriteTable(&buf, &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		})
		if tableErr != nil {
			return tableErr
		}
		ui.Printfln(buf.String())
		return nil
	},
}

func init() {
	Command.AddCommand(listCmd)
}
