package preset

import (
	"fmt"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a preset",
	Long:    ``,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		name := args[0]
		err = store.Update(func(editor *preset.Editor) error {
			if _, ok := editor.Get(name); !ok {
				return fmt.Errorf("%w: %s", preset.ErrUnknown, name)
			}
			editor.Remove(name)
			return nil
		})
		if err != nil {
			return err
		}

		ui.Success("Preset '%s' deleted", name)
		return nil
	},
}

func init() {
	Command.AddCommand(deleteCmd)
}
