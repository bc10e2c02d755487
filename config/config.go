package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/USBABC1/V75VIRAL/models"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Providers ProvidersConfig `toml:"providers"`
	Search    SearchConfig    `toml:"search"`
	Images    ImagesConfig    `toml:"images"`
	Database  DatabaseConfig  `toml:"database"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	CORSEnabled bool   `toml:"cors_enabled"`
}

type ProvidersConfig struct {
	ContentAPIURL   string `toml:"content_api_url"`
	ContentAPIToken string `toml:"content_api_token"`
	SearchAPIURL    string `toml:"search_api_url"`
	SearchAPIKey    string `toml:"search_api_key"`
	OpenAIBaseURL   string `toml:"openai_base_url"`
	OpenAIKey       string `toml:"openai_api_key"`
	OpenAIModel     string `toml:"openai_model"`
}

type SearchConfig struct {
	DefaultMaxImages     int      `toml:"default_max_images"`
	DefaultMinEngagement float64  `toml:"default_min_engagement"`
	DefaultPlatforms     []string `toml:"default_platforms"`
}

type ImagesConfig struct {
	Download  bool   `toml:"download"`
	Dir       string `toml:"dir"`
	MaxSizeMB int64  `toml:"max_size_mb"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8787",
			CORSEnabled: true,
		},
		Providers: ProvidersConfig{
			ContentAPIURL: "https://api.apify.com",
			SearchAPIURL:  "https://google.serper.dev",
			OpenAIBaseURL: "https://api.openai.com",
			OpenAIModel:   "gpt-4o-mini",
		},
		Search: SearchConfig{
			DefaultMaxImages:     20,
			DefaultMinEngagement: 50,
			DefaultPlatforms:     []string{models.PlatformInstagram, models.PlatformFacebook},
		},
		Images: ImagesConfig{
			Download:  false,
			Dir:       "analyses_data/viral_images",
			MaxSizeMB: 10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "viral.db",
		},
	}
}

// Load reads config from a TOML file layered over the defaults, then
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides credentials and addresses from the environment.
// Keys in the environment always win over the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CONTENT_API_URL"); v != "" {
		c.Providers.ContentAPIURL = v
	}
	if v := os.Getenv("CONTENT_API_TOKEN"); v != "" {
		c.Providers.ContentAPIToken = v
	}
	if v := os.Getenv("SEARCH_API_URL"); v != "" {
		c.Providers.SearchAPIURL = v
	}
	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		c.Providers.SearchAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Providers.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Providers.OpenAIModel = v
	}
}
