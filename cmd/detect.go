package cmd

import (
	"bytes"
	"github.com/markusressel/psu2go/cmd/global"
	"github.com/markusressel/psu2go/internal/psu"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"strconv"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect serial ports",
	Long:  `Detects all serial ports a power supply could be connected to and prints them as a list`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := psu.DetectPorts()
		if err != nil {
			return err
		}
		if len(ports) <= 0 {
			ui.Warning("No serial ports found")
			return nil
		}

		var rows [][]string
		for _, port := range ports {
			vid := "-"
			pid := "-"
			if port.IsUSB {
				vid = port.VID
				pid = port.PID
			}
			rows = append(rows, []string{
				port.Name, strconv.FormatBool(port.IsUSB), vid, pid, port.SerialNumber, port.Product,
			})
		}

		// === Print detected ports ===
		tab := table.Table{
			Headers: []string{"Port", "USB", "VID", "PID", "Serial", "Product"},
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
	rootCmd.AddCommand(detectCmd)
}
