// Package config loads the application configuration from a YAML file and
// fills in defaults for anything unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir          string        `yaml:"data_dir"`
	KeyDBFile        string        `yaml:"key_db_file"`
	DeviceSecretFile string        `yaml:"device_secret_file"`
	SessionTTL       time.Duration `yaml:"-"`
	MaxPINAttempts   int           `yaml:"max_pin_attempts"`
	AttemptWindow    time.Duration `yaml:"-"`
	LogLevel         string        `yaml:"log_level"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("5m", "1h30m").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type alias struct {
		DataDir          string `yaml:"data_dir"`
		KeyDBFile        string `yaml:"key_db_file"`
		DeviceSecretFile string `yaml:"device_secret_file"`
		SessionTTL       string `yaml:"session_ttl"`
		MaxPINAttempts   int    `yaml:"max_pin_attempts"`
		AttemptWindow    string `yaml:"attempt_window"`
		LogLevel         string `yaml:"log_level"`
	}
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	c.DataDir = a.DataDir
	c.KeyDBFile = a.KeyDBFile
	c.DeviceSecretFile = a.DeviceSecretFile
	c.MaxPINAttempts = a.MaxPINAttempts
	c.LogLevel = a.LogLevel

	var err error
	if a.SessionTTL != "" {
		if c.SessionTTL, err = time.ParseDuration(a.SessionTTL); err != nil {
			return fmt.Errorf("session_ttl: %w", err)
		}
	}
	if a.AttemptWindow != "" {
		if c.AttemptWindow, err = time.ParseDuration(a.AttemptWindow); err != nil {
			return fmt.Errorf("attempt_window: %w", err)
		}
	}
	return nil
}

// Load reads path if it exists; a missing file yields a default config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".finvault")
	}
	if c.KeyDBFile == "" {
		c.KeyDBFile = filepath.Join(c.DataDir, "keys.db")
	}
	if c.DeviceSecretFile == "" {
		c.DeviceSecretFile = filepath.Join(c.DataDir, "device.secret")
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.MaxPINAttempts <= 0 {
		c.MaxPINAttempts = 5
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
