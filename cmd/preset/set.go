package preset

import (
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
	"strings"
)

var setCmd = &cobra.Command{
	Use:   "set <name> <voltage> <current>",
	Short: "Create or overwrite a preset",
	Long:  `Values accept both "." and "," as decimal separator.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		err = store.Update(func(editor *preset.Editor) error {
			return editor.PutText(args[0], args[1], args[2])
		})
		if err != nil {
			return err
		}

		setpoint, _ := store.Get(strings.TrimSpace(args[0]))
		ui.Success("Preset '%s' set to %s", strings.TrimSpace(args[0]), setpoint)
		return nil
	},
}

func init() {
	Command.AddCommand(setCmd)
}
