// Package config loads the daemon configuration from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/pir-stairs/internal/gpio"
)

// HTTPOff as the http address disables the status server.
const HTTPOff = "off"

// GPIO selects the pin backend.
type GPIO struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
}

// Config is the daemon configuration.
type Config struct {
	Poll             time.Duration `yaml:"poll"`
	Broker           string        `yaml:"broker"`
	ClientID         string        `yaml:"client_id"`
	WLEDTopic        string        `yaml:"wled_topic"`
	HTTPAddr         string        `yaml:"http"`
	UsermodConfig    string        `yaml:"usermod_config"`
	HistoryDB        string        `yaml:"history_db"`
	HistoryRetention time.Duration `yaml:"history_retention"`
	GPIO             GPIO          `yaml:"gpio"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Poll:             50 * time.Millisecond,
		Broker:           "tcp://192.168.1.200:1883",
		ClientID:         "pir-stairs",
		WLEDTopic:        "wled/stairs",
		HTTPAddr:         ":8080",
		UsermodConfig:    "/var/lib/pir-stairs/cfg.json",
		HistoryRetention: 30 * 24 * time.Hour,
		GPIO: GPIO{
			Backend: gpio.BackendCdev,
			Chip:    gpio.DefaultChip,
		},
		LogLevel: "info",
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path
// returns the defaults. The result is not validated; callers apply their
// overrides and then call Resolve.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve normalizes sentinel values and validates the final configuration.
func (c *Config) Resolve() error {
	if c.HTTPAddr == HTTPOff {
		c.HTTPAddr = ""
	}
	return c.Validate()
}

// Validate checks values that would keep the daemon from running.
func (c Config) Validate() error {
	if c.Poll <= 0 {
		return errors.New("poll must be positive")
	}
	if c.UsermodConfig == "" {
		return errors.New("usermod_config is required")
	}
	if c.WLEDTopic == "" {
		return errors.New("wled_topic is required")
	}
	switch c.GPIO.Backend {
	case gpio.BackendCdev, gpio.BackendPeriph:
	default:
		return fmt.Errorf("unknown gpio backend %q", c.GPIO.Backend)
	}
	return nil
}
