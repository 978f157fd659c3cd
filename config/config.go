// Package config loads and freezes the simulator's global tuning
// parameters via viper, the way the rest of the corpus layers structured
// config loading over encoding/json.Decoder-style raw parsing.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrAlreadyLoaded is returned by Reload on a Config produced by Load: config
// is read once at construction and frozen for the lifetime of a Simulator.
var ErrAlreadyLoaded = errors.New("config: already loaded")

// ErrNonPositive is returned when a parameter that must be positive is not.
var ErrNonPositive = errors.New("config: parameter must be positive")

// Config holds the simulator's global, frozen tuning parameters (spec §6).
type Config struct {
	StepsPerSecond     float64 `mapstructure:"steps_per_second"`
	SpeedLimit         float64 `mapstructure:"speed_limit"`
	MaxBraking         float64 `mapstructure:"max_braking"`
	MinAcceleration    float64 `mapstructure:"min_acceleration"`
	MaxVehicleLength   float64 `mapstructure:"max_vehicle_length"`
	LengthBufferFactor float64 `mapstructure:"length_buffer_factor"`

	loaded bool
}

// DeltaT returns 1/steps_per_second.
func (c *Config) DeltaT() float64 { return 1 / c.StepsPerSecond }

// MinEntranceLength derives speed_limit^2/(2*|max_braking|) + max_vehicle_length.
func (c *Config) MinEntranceLength() float64 {
	return (c.SpeedLimit*c.SpeedLimit)/(2*-c.MaxBraking) + c.MaxVehicleLength
}

func defaults() *Config {
	return &Config{
		StepsPerSecond:     60,
		SpeedLimit:         15,
		MaxBraking:         -3.4,
		MinAcceleration:    1,
		MaxVehicleLength:   5.5,
		LengthBufferFactor: 0.1,
	}
}

// Load reads configuration from path (YAML) via viper, merges it over
// defaults, and freezes the result. Each call reads the file afresh into a
// new Config; calling Reload on the returned Config is the error case.
func Load(path string) (*Config, error) {
	cfg := defaults()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.loaded = true
	return cfg, nil
}

// Reload returns ErrAlreadyLoaded for a Config produced by Load, whose
// configuration is frozen; on any other Config it returns nil and reads nothing.
func (c *Config) Reload(path string) error {
	if c.loaded {
		return ErrAlreadyLoaded
	}
	return nil
}

func (c *Config) validate() error {
	if c.StepsPerSecond <= 0 || c.SpeedLimit <= 0 || c.MaxVehicleLength <= 0 {
		return ErrNonPositive
	}
	if c.MaxBraking >= 0 {
		return fmt.Errorf("config: max_braking must be negative, got %v", c.MaxBraking)
	}
	if c.MinAcceleration <= 0 {
		return ErrNonPositive
	}
	if c.LengthBufferFactor < 0 {
		return fmt.Errorf("config: length_buffer_factor must be nonnegative, got %v", c.LengthBufferFactor)
	}
	return nil
}
