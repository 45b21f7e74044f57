package config

import (
	"sort"

	"github.com/san-kum/thermalstate/internal/thermal"
)

// Presets are named starting points. GetPreset hands out copies so callers
// may override fields freely.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"cold_snap": with(func(c *Config) {
		c.Ambient, c.Setpoint, c.Start = -15, 21, 12
	}),
	"mild": with(func(c *Config) {
		c.Ambient, c.Setpoint, c.Start = 10, 20, 18
	}),
	"overheated": with(func(c *Config) {
		c.Ambient, c.Setpoint, c.Start = 5, 18, 30
	}),
	// Logistic slope used by the first version of the model.
	"legacy_slope": with(func(c *Config) {
		c.Curve = thermal.Curve{Lag: -2, Slope: 0.8}
	}),
}

func with(fn func(*Config)) *Config {
	cfg := DefaultConfig()
	fn(cfg)
	return cfg
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
