package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values can use the human form
// ("15m", "24h") in both the YAML file and environment variables.
type Duration time.Duration

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalText parses "15m" style values. Environment parsing goes
// through this.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML parses "15m" style values from the config file.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

// MarshalYAML writes the human form back out.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
