// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Crypto CryptoConfig `yaml:"crypto"`
	GitHub GitHubConfig `yaml:"github"`
	Docgen DocgenConfig `yaml:"docgen"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	// URL is a full connection string (redis://...); when set it wins
	// over the individual fields.
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CryptoConfig struct {
	Passphrase string `yaml:"passphrase"`
}

type GitHubConfig struct {
	APIBaseURL   string        `yaml:"api_base_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxTreeDepth int           `yaml:"max_tree_depth"`
	MaxTreeNodes int           `yaml:"max_tree_nodes"`
}

type DocgenConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				Password: "",
				DB:       0,
			},
		},
		GitHub: GitHubConfig{
			APIBaseURL:   "https://api.github.com",
			FetchTimeout: 15 * time.Second,
			MaxTreeDepth: 20,
			MaxTreeNodes: 2000,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}

	// Store
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Store.Redis.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}

	// Secrets
	if v := os.Getenv("SECRET_KEY"); v != "" {
		c.Crypto.Passphrase = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Docgen.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Docgen.Model = v
	}

	// GitHub
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		c.GitHub.APIBaseURL = v
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitHub.FetchTimeout = d
		}
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if c.Store.Type != "memory" && c.Store.Type != "redis" {
		return fmt.Errorf("invalid store type: %s (must be 'memory' or 'redis')", c.Store.Type)
	}

	if c.Store.Type == "redis" && c.Store.Redis.URL == "" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis url or addr is required when store type is 'redis'")
	}

	if c.Crypto.Passphrase == "" {
		return fmt.Errorf("crypto passphrase is required (set SECRET_KEY)")
	}

	if c.GitHub.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
