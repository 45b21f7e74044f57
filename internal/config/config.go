package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/thermal"
)

const (
	DefaultAmbient    = 0.0
	DefaultSetpoint   = 20.0
	DefaultStart      = 15
	DefaultIntegrator = "rk45"
	DefaultDt         = 0.01
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Ambient     float64       `yaml:"ambient"`
	Setpoint    float64       `yaml:"setpoint"`
	Start       int           `yaml:"start"`
	InitialMass float64       `yaml:"initial_mass"`
	Integrator  string        `yaml:"integrator"`
	Dt          float64       `yaml:"dt"`
	Horizon     float64       `yaml:"horizon"`
	Points      int           `yaml:"points"`
	RelTol      float64       `yaml:"rel_tol"`
	AbsTol      float64       `yaml:"abs_tol"`
	MaxSteps    int           `yaml:"max_steps"`
	Curve       thermal.Curve `yaml:"curve"`
	Rates       thermal.Rates `yaml:"rates"`
}

func DefaultConfig() *Config {
	solver := dynamo.DefaultConfig()
	return &Config{
		Ambient:     DefaultAmbient,
		Setpoint:    DefaultSetpoint,
		Start:       DefaultStart,
		InitialMass: thermal.DefaultInitialMass,
		Integrator:  DefaultIntegrator,
		Dt:          DefaultDt,
		Horizon:     thermal.DefaultHorizon,
		Points:      thermal.DefaultPoints,
		RelTol:      solver.RelTol,
		AbsTol:      solver.AbsTol,
		MaxSteps:    solver.MaxSteps,
		Curve:       thermal.DefaultCurve(),
		Rates:       thermal.DefaultRates(),
	}
}

// Load reads a yaml file on top of the defaults, so a file only needs to
// name the fields it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Start < 0 || c.Start >= thermal.TempBins:
		return fmt.Errorf("%w: start %d not in [0, %d)", ErrInvalidConfig, c.Start, thermal.TempBins)
	case !finite(c.Ambient) || !finite(c.Setpoint):
		return fmt.Errorf("%w: ambient and setpoint must be finite", ErrInvalidConfig)
	case c.InitialMass < 0 || !finite(c.InitialMass):
		return fmt.Errorf("%w: initial_mass %g", ErrInvalidConfig, c.InitialMass)
	case c.Horizon <= 0 || !finite(c.Horizon):
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidConfig)
	case c.Points < 2:
		return fmt.Errorf("%w: points must be at least 2", ErrInvalidConfig)
	case c.Integrator == "":
		return fmt.Errorf("%w: integrator not set", ErrInvalidConfig)
	case !finite(c.Curve.Slope) || !finite(c.Curve.Lag):
		return fmt.Errorf("%w: curve must be finite", ErrInvalidConfig)
	}
	if err := c.Rates.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Solver().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Solver maps the integration fields onto a driver config.
func (c *Config) Solver() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.RelTol = c.RelTol
	cfg.AbsTol = c.AbsTol
	cfg.MaxSteps = c.MaxSteps
	if c.Integrator != "rk45" {
		cfg.Dt = c.Dt
	}
	return cfg
}

func (c *Config) Times() []float64 {
	return dynamo.Linspace(0, c.Horizon, c.Points)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
