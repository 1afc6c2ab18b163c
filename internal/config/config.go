// Package config loads the service configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration shared by the three binaries. Each binary
// only uses the sections it needs.
type Config struct {
	APIServer APIServerConfig `yaml:"apiserver"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Creds     CredsConfig     `yaml:"creds"`
	Registrar WorkerConfig    `yaml:"registrar"`
	Tracker   WorkerConfig    `yaml:"tracker"`
}

// APIServerConfig configures the HTTP API server.
type APIServerConfig struct {
	Addr       string `yaml:"addr"`
	StaticPath string `yaml:"staticPath"`
}

// DBConfig configures the catalogue database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `yaml:"format"`
}

// CredsConfig holds the credentials used to call external services.
type CredsConfig struct {
	GitHubTokens []string `yaml:"githubTokens"`
}

// WorkerConfig configures a background worker's fan-out.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns a configuration with the default values set.
func DefaultConfig() *Config {
	return &Config{
		APIServer: APIServerConfig{
			Addr: "127.0.0.1:8000",
		},
		DB: DBConfig{
			Host: "localhost",
			Port: 5432,
		},
		Registrar: WorkerConfig{Concurrency: 1},
		Tracker:   WorkerConfig{Concurrency: 1},
	}
}

// Load reads the configuration file at the path provided on top of the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Registrar.Concurrency <= 0 {
		return fmt.Errorf("registrar.concurrency must be a positive integer")
	}
	if c.Tracker.Concurrency <= 0 {
		return fmt.Errorf("tracker.concurrency must be a positive integer")
	}
	return nil
}
