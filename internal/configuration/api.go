package configuration

type ApiConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type PanelConfig struct {
	// Enabled draws the live panel on the terminal
	Enabled DefaultTrueBool `json:"enabled"`
}
