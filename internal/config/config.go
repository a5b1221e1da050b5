package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmmcquay/reversi-mcp/internal/reversi"
	"github.com/spf13/viper"
)

// MaxSearchDepth caps the configurable search depth. The search has no
// pruning, so each extra ply multiplies the work by the branching factor.
const MaxSearchDepth = 8

type Config struct {
	// Engine configuration
	Engine EngineConfig `mapstructure:"engine" json:"engine"`

	// Server configuration
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging" json:"logging"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit" json:"rateLimit"`
}

type EngineConfig struct {
	SearchDepth int `mapstructure:"searchDepth" json:"searchDepth"`
}

type ServerConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	Version     string `mapstructure:"version" json:"version"`
	Description string `mapstructure:"description" json:"description"`
	HTTPAddr    string `mapstructure:"httpAddr" json:"httpAddr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
	Prefix string `mapstructure:"prefix" json:"prefix"`
}

type RateLimitConfig struct {
	Enabled        bool           `mapstructure:"enabled" json:"enabled"`
	RequestsPerMin int            `mapstructure:"requestsPerMin" json:"requestsPerMin"`
	BurstSize      int            `mapstructure:"burstSize" json:"burstSize"`
	PerToolLimits  map[string]int `mapstructure:"perToolLimits" json:"perToolLimits"`
}

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"engine.searchDepth":       "REVERSI_SEARCH_DEPTH",
	"server.httpAddr":          "REVERSI_HTTP_ADDR",
	"logging.level":            "REVERSI_LOG_LEVEL",
	"logging.format":           "REVERSI_LOG_FORMAT",
	"rateLimit.enabled":        "REVERSI_RATE_LIMIT_ENABLED",
	"rateLimit.requestsPerMin": "REVERSI_RATE_LIMIT_RPM",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.searchDepth", reversi.DefaultDepth)

	v.SetDefault("server.name", "reversi-mcp")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.description", "Reversi move engine for MCP")
	v.SetDefault("server.httpAddr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.prefix", "[reversi-mcp] ")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMin", 120)
	v.SetDefault("rateLimit.burstSize", 20)
	v.SetDefault("rateLimit.perToolLimits", map[string]int{})
}

// Load reads defaults, then the optional config file (JSON or YAML by
// extension), then environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.RateLimit.PerToolLimits == nil {
		cfg.RateLimit.PerToolLimits = make(map[string]int)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.SearchDepth < 0 {
		c.Engine.SearchDepth = 0
	}
	if c.Engine.SearchDepth > MaxSearchDepth {
		c.Engine.SearchDepth = MaxSearchDepth
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMin < 1 {
			c.RateLimit.RequestsPerMin = 1
		}
		if c.RateLimit.BurstSize < 1 {
			c.RateLimit.BurstSize = 1
		}
	}
	for tool, limit := range c.RateLimit.PerToolLimits {
		if limit < 1 {
			return fmt.Errorf("rate limit for %s must be positive, got %d", tool, limit)
		}
	}

	return nil
}

func GetConfigPath() string {
	if path := os.Getenv("REVERSI_MCP_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".reversi-mcp", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}
