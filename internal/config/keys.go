package config

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// toViper loads cfg into a fresh viper instance keyed by the yaml names,
// so nested settings are addressed as "camera.device".
func toViper(cfg *Config) (*viper.Viper, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return v, nil
}

// Lookup returns the value at a dotted key such as "output.prefix"
func Lookup(cfg *Config, key string) (interface{}, error) {
	v, err := toViper(cfg)
	if err != nil {
		return nil, err
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v.Get(key), nil
}

// Set returns a copy of cfg with the dotted key replaced. The value is parsed
// as a YAML scalar, so "8080" sets a number and "true" a boolean. The result
// is validated.
func Set(cfg *Config, key, value string) (*Config, error) {
	v, err := toViper(cfg)
	if err != nil {
		return nil, err
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	if _, nested := v.Get(key).(map[string]interface{}); nested {
		return nil, fmt.Errorf("config key %s is a section, set one of its fields", key)
	}

	var parsed interface{}
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	v.Set(key, parsed)

	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	out := Defaults()
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
