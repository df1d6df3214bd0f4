package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBackendURL  = "http://localhost:3000/api"
	DefaultQuranURL    = "https://api.quran.com/api/v4"
	DefaultScaleFactor = 0.7
	DefaultBackground  = "/static/default-bg.png"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Quran   QuranConfig
	Session SessionConfig
	Log     LogConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port       string
	PublicURL  string `mapstructure:"public_url"`
	Background string
}

// BackendConfig points at the image-generation API.
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration
	ScaleFactor   float64       `mapstructure:"scale_factor"`
	GenerateEvery time.Duration `mapstructure:"generate_every"`
	GenerateBurst int           `mapstructure:"generate_burst"`
}

// QuranConfig points at the verse metadata API.
type QuranConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Language string
	Timeout  time.Duration
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SessionConfig controls how long idle sessions are kept.
type SessionConfig struct {
	TTL time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix AYAHAPP_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.background", DefaultBackground)
	v.SetDefault("backend.base_url", DefaultBackendURL)
	v.SetDefault("backend.timeout", "60s")
	v.SetDefault("backend.scale_factor", DefaultScaleFactor)
	v.SetDefault("backend.generate_every", "1s")
	v.SetDefault("backend.generate_burst", 4)
	v.SetDefault("quran.base_url", DefaultQuranURL)
	v.SetDefault("quran.language", "en")
	v.SetDefault("quran.timeout", "12s")
	v.SetDefault("quran.cache_ttl", "30m")
	v.SetDefault("session.ttl", "1h")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("AYAHAPP_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ayahapp"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("AYAHAPP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing default config file is fine, a missing explicit one is not
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgPath != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// PORT wins over everything, as most hosting platforms set it.
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	c.Quran.BaseURL = strings.TrimRight(c.Quran.BaseURL, "/")
	if c.Backend.ScaleFactor <= 0 {
		return Config{}, fmt.Errorf("backend.scale_factor must be positive, got %v", c.Backend.ScaleFactor)
	}
	return c, nil
}
