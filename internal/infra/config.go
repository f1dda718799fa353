package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all process configuration. Loaded from yaml, then
// overridden via environment (PORT).
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Hyperliquid struct {
		WSURL       string `yaml:"ws_url"`
		RestURL     string `yaml:"rest_url"`
		DefaultCoin string `yaml:"default_coin"`
		BookDepth   int    `yaml:"book_depth"`
	} `yaml:"hyperliquid"`

	Storage struct {
		Path        string `yaml:"path"`
		FillsTTLSec int    `yaml:"fills_ttl_sec"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies defaults for
// anything unset, then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing file runs on defaults.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hlview"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	if c.Hyperliquid.WSURL == "" {
		c.Hyperliquid.WSURL = "wss://api.hyperliquid.xyz/ws"
	}
	if c.Hyperliquid.RestURL == "" {
		c.Hyperliquid.RestURL = "https://api.hyperliquid.xyz"
	}
	if c.Hyperliquid.DefaultCoin == "" {
		c.Hyperliquid.DefaultCoin = "BTC"
	}
	if c.Hyperliquid.BookDepth == 0 {
		c.Hyperliquid.BookDepth = 20
	}
	if c.Storage.FillsTTLSec == 0 {
		c.Storage.FillsTTLSec = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// FillsTTL returns the fills-cache freshness window.
func (c *Config) FillsTTL() time.Duration {
	return time.Duration(c.Storage.FillsTTLSec) * time.Second
}
