// Package config loads and saves the nexus configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig locates one provider's native conversation storage
type ProviderConfig struct {
	// Root is the directory holding the provider's live conversation
	// files (transcripts or checkpoints).
	Root string `yaml:"root"`
}

// LockConfig tunes the state store's cooperative lock
type LockConfig struct {
	TimeoutMS      int `yaml:"timeoutMs"`
	PollIntervalMS int `yaml:"pollIntervalMs"`
}

// BreakerConfig tunes the session-creation circuit breaker
type BreakerConfig struct {
	Threshold  int `yaml:"threshold"`
	CooldownMS int `yaml:"cooldownMs"`
}

// Config is the persisted nexus configuration
type Config struct {
	StateDir    string         `yaml:"stateDir"`
	ArchivePath string         `yaml:"archivePath"`
	Claude      ProviderConfig `yaml:"claude"`
	Gemini      ProviderConfig `yaml:"gemini"`
	Lock        LockConfig     `yaml:"lock"`
	Breaker     BreakerConfig  `yaml:"breaker"`
}

// DefaultPath returns the default config file location
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nexus", "config.yaml"), nil
}

// Default returns the configuration used when no file exists
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".nexus")
	return &Config{
		StateDir:    filepath.Join(base, "sync"),
		ArchivePath: filepath.Join(base, "archive.db"),
		Claude:      ProviderConfig{Root: filepath.Join(home, ".claude", "projects", "default")},
		Gemini:      ProviderConfig{Root: filepath.Join(home, ".gemini", "tmp")},
		Lock:        LockConfig{TimeoutMS: 10000, PollIntervalMS: 100},
		Breaker:     BreakerConfig{Threshold: 3, CooldownMS: 30000},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Unset fields are filled in from the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	def := Default()
	if cfg.StateDir == "" {
		cfg.StateDir = def.StateDir
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = def.ArchivePath
	}
	if cfg.Claude.Root == "" {
		cfg.Claude.Root = def.Claude.Root
	}
	if cfg.Gemini.Root == "" {
		cfg.Gemini.Root = def.Gemini.Root
	}
	if cfg.Lock.TimeoutMS <= 0 {
		cfg.Lock.TimeoutMS = def.Lock.TimeoutMS
	}
	if cfg.Lock.PollIntervalMS <= 0 {
		cfg.Lock.PollIntervalMS = def.Lock.PollIntervalMS
	}
	if cfg.Breaker.Threshold <= 0 {
		cfg.Breaker.Threshold = def.Breaker.Threshold
	}
	if cfg.Breaker.CooldownMS <= 0 {
		cfg.Breaker.CooldownMS = def.Breaker.CooldownMS
	}
	return cfg, nil
}

// Save writes the config file, creating parent directories as needed
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LockTimeout returns the lock timeout as a duration
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutMS) * time.Millisecond
}

// LockPollInterval returns the lock retry interval as a duration
func (c *Config) LockPollInterval() time.Duration {
	return time.Duration(c.Lock.PollIntervalMS) * time.Millisecond
}

// BreakerCooldown returns the breaker cooldown as a duration
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownMS) * time.Millisecond
}
