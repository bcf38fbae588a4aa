package preset

import (
	"github.com/markusressel/psu2go/internal/configuration"
	"github.com/markusressel/psu2go/internal/preset"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/spf13/cobra"
)

var presetsFile string

var Command = &cobra.Command{
	Use:              "preset",
	Short:            "Preset related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(&presetsFile, "file", "f", "", "Presets file (default is presetsPath of the configuration)")
}

func openStore() (*preset.Store, error) {
	path := presetsFile
	if len(path) <= 0 {
		if err := configuration.ReadConfigFile(); err != nil {
			return nil, err
		}
		path = configuration.CurrentConfig.PresetsPath
	}
	ui.Debug("Using presets file: %s", path)
	return preset.NewStore(path), nil
}
