package preset

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
)

const (
	FormatJson = "json"
	FormatYaml = "yaml"
)

// Export writes presets to w in the given format
func Export(w io.Writer, presets *Presets, format string) error {
	switch format {
	case FormatJson:
		content, err := encode(presets)
		if err != nil {
			return err
		}
		_, err = w.Write(content)
		return err
	case FormatYaml:
		return exportYaml(w, presets)
	default:
		return fmt.Errorf("unsupported format: %s, must be one of: %s, %s", format, FormatJson, FormatYaml)
	}
}

func exportYaml(w io.Writer, presets *Presets) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range presets.Entries() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name}
		value := &yaml.Node{}
		if err := value.Encode(entry.Setpoint); err != nil {
			return err
		}
		root.Content = append(root.Content, key, value)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return err
	}
	return encoder.Close()
}
