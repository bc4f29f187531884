package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chatsync/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	// UserID identifies the local user in messages, reactions, and read
	// receipts. Empty falls back to the profile name.
	UserID  string  `toml:"user_id"`
	Sync    Sync    `toml:"sync"`
	Remote  Remote  `toml:"remote"`
	Media   Media   `toml:"media"`
	Network Network `toml:"network"`
}

// Sync tunes the background drain loop.
type Sync struct {
	DrainIntervalSeconds int `toml:"drain_interval_seconds"`
	RetryLimit           int `toml:"retry_limit"`
	RemoteTimeoutSeconds int `toml:"remote_timeout_seconds"`
}

// Remote points at the document store backend.
type Remote struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// Media holds the upload backend credentials. All empty disables uploads;
// messages with attachments then stay queued.
type Media struct {
	CloudName string `toml:"cloud_name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Folder    string `toml:"folder"`
}

// Network configures the reachability prober.
type Network struct {
	ProbeAddress         string `toml:"probe_address"`
	ProbeIntervalSeconds int    `toml:"probe_interval_seconds"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		DefaultProfile: "default",
		Sync: Sync{
			DrainIntervalSeconds: 30,
			RetryLimit:           3,
			RemoteTimeoutSeconds: 10,
		},
		Remote: Remote{
			MongoURI: "mongodb://localhost:27017",
			Database: "chatsync",
		},
		Network: Network{
			ProbeAddress:         "1.1.1.1:443",
			ProbeIntervalSeconds: 15,
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads the config, falling back to defaults when the file does
// not exist yet. A present-but-unparsable file is still an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// fillDefaults patches zero values in a loaded config so partial files work.
func (c *Config) fillDefaults() {
	d := Default()
	if c.DefaultProfile == "" {
		c.DefaultProfile = d.DefaultProfile
	}
	if c.Sync.DrainIntervalSeconds <= 0 {
		c.Sync.DrainIntervalSeconds = d.Sync.DrainIntervalSeconds
	}
	if c.Sync.RetryLimit <= 0 {
		c.Sync.RetryLimit = d.Sync.RetryLimit
	}
	if c.Sync.RemoteTimeoutSeconds <= 0 {
		c.Sync.RemoteTimeoutSeconds = d.Sync.RemoteTimeoutSeconds
	}
	if c.Remote.MongoURI == "" {
		c.Remote.MongoURI = d.Remote.MongoURI
	}
	if c.Remote.Database == "" {
		c.Remote.Database = d.Remote.Database
	}
	if c.Network.ProbeAddress == "" {
		c.Network.ProbeAddress = d.Network.ProbeAddress
	}
	if c.Network.ProbeIntervalSeconds <= 0 {
		c.Network.ProbeIntervalSeconds = d.Network.ProbeIntervalSeconds
	}
}
