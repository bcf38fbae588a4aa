package configuration

import (
	"errors"
	"github.com/markusressel/psu2go/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"os"
	"strings"
	"time"
)

const (
	DefaultPresetsPath = "~/Documents/psu2go/psu_presets.json"
	DefaultDbPath      = "~/.local/share/psu2go/psu2go.db"
)

type Configuration struct {
	DbPath      string `json:"dbPath"`
	PresetsPath string `json:"presetsPath"`

	Psu PsuConfig `json:"psu"`

	PollingRate       time.Duration `json:"pollingRate"`
	PollTimeout       time.Duration `json:"pollTimeout"`
	IoTimeout         time.Duration `json:"ioTimeout"`
	RollingWindowSize int           `json:"rollingWindowSize"`

	Panel         PanelConfig `json:"panel"`
	Notifications bool        `json:"notifications"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("psu2go")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/psu2go/")
	}

	viper.SetEnvPrefix("PSU2GO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", DefaultDbPath)
	viper.SetDefault("presetsPath", DefaultPresetsPath)

	viper.SetDefault("psu.port", "")
	viper.SetDefault("psu.baudRate", 9600)
	viper.SetDefault("psu.timeout", 200*time.Millisecond)
	viper.SetDefault("psu.autoConnect", false)

	viper.SetDefault("pollingRate", 200*time.Millisecond)
	viper.SetDefault("pollTimeout", 1*time.Second)
	viper.SetDefault("ioTimeout", 3*time.Second)
	viper.SetDefault("rollingWindowSize", 25)

	viper.SetDefault("notifications", false)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
}

// ReadConfigFile reads the config file. A missing config file is not an error,
// the default values are used instead.
func ReadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		ui.Debug("No configuration file found, using defaults")
	} else {
		// this is only populated _after_ ReadInConfig()
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}

	return LoadConfig()
}

// DetectConfigFile returns the path of the config file that would be used
func DetectConfigFile() string {
	_ = viper.ReadInConfig()
	return viper.ConfigFileUsed()
}

func LoadConfig() error {
	var config Configuration
	err := viper.Unmarshal(&config, viper.DecodeHook(decodeHooks()))
	if err != nil {
		return err
	}

	config.DbPath, err = homedir.Expand(config.DbPath)
	if err != nil {
		return err
	}
	config.PresetsPath, err = homedir.Expand(config.PresetsPath)
	if err != nil {
		return err
	}

	CurrentConfig = config
	return nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		DecimalHookFunc(),
		DefaultTrueBoolHookFunc(),
	)
}
