package psu

import (
	"fmt"
	"github.com/markusressel/psu2go/internal/configuration"
	"github.com/markusressel/psu2go/internal/data"
	"github.com/markusressel/psu2go/internal/persistence"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/markusressel/psu2go/internal/util"
	"github.com/spf13/cobra"
)

var (
	presetName   string
	enableOutput bool
)

var setCmd = &cobra.Command{
	Use:   "set [<voltage> <current>]",
	Short: "Apply a voltage/current setpoint",
	Long: `Applies the given setpoint, or the setpoint of the preset given with --preset.
Values accept both "." and "," as decimal separator.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setpoint, err := resolveSetpoint(args)
		if err != nil {
			return err
		}

		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := c.context()
		defer cancel()
		if err = c.session.ApplySetpoint(ctx, setpoint); err != nil {
			return err
		}
		if enableOutput {
			if err = c.session.SetOutput(ctx, true); err != nil {
				return err
			}
		}

		p := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
		if err = p.Init(); err == nil {
			err = p.SaveSetpoint(c.session.Port(), setpoint)
		}
		if err != nil {
			ui.Warning("Unable to remember setpoint: %v", err)
		}

		ui.Success("Applied %s", setpoint)
		return nil
	},
}

func resolveSetpoint(args []string) (data.Setpoint, error) {
	if len(presetName) > 0 {
		if len(args) > 0 {
			return data.Setpoint{}, fmt.Errorf("either a preset or voltage and current can be given")
		}
		if err := configuration.ReadConfigFile(); err != nil {
			return data.Setpoint{}, err
		}
		store := preset.NewStore(configuration.CurrentConfig.PresetsPath)
		setpoint, ok := store.Get(presetName)
		if !ok {
			return data.Setpoint{}, fmt.Errorf("%w: %s", preset.ErrUnknown, presetName)
		}
		return setpoint, nil
	}
	if len(args) != 2 {
		return data.Setpoint{}, fmt.Errorf("voltage and current are required")
	}
	return util.ParseSetpoint(args[0], args[1])
}

func init() {
	setCmd.Flags().StringVarP(&presetName, "preset", "", "", "Name of the preset to apply")
	setCmd.Flags().BoolVarP(&enableOutput, "output", "o", false, "Switch the output on after applying the setpoint")
	Command.AddCommand(setCmd)
}
