package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	SessionIdleTimeout   time.Duration `yaml:"session_idle_timeout"`
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`
	MinThinkingTime      time.Duration `yaml:"min_thinking_time"`
	MaxAccuracy          float64       `yaml:"max_accuracy"`
	DefaultRegion        string        `yaml:"default_region"`

	MatchTimeLimit    time.Duration `yaml:"match_time_limit"`
	MatchMoveLimit    int           `yaml:"match_move_limit"`
	MoveCacheTTL      time.Duration `yaml:"move_cache_ttl"`
	DefaultDifficulty string        `yaml:"default_difficulty"`

	MessagesDir string `yaml:"messages_dir"`

	Log LogConfig `yaml:"log"`
}

// LogConfig feeds obslog.Init.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
	Caller  bool   `yaml:"caller"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:           ":8080",
		SessionIdleTimeout:   5 * time.Minute,
		SessionSweepInterval: 30 * time.Second,
		MinThinkingTime:      100 * time.Millisecond,
		MaxAccuracy:          0.95,
		MatchTimeLimit:       time.Hour,
		MatchMoveLimit:       500,
		MoveCacheTTL:         24 * time.Hour,
		DefaultDifficulty:    "normal",
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Console: true,
		},
	}
}

// Load builds the config from defaults, then GUNGI_CONFIG_FILE (YAML) when
// set, then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("GUNGI_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_REGION")); v != "" {
		cfg.DefaultRegion = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		cfg.DefaultDifficulty = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SESSION_IDLE_TIMEOUT", &cfg.SessionIdleTimeout},
		{"SESSION_SWEEP_INTERVAL", &cfg.SessionSweepInterval},
		{"MIN_THINKING_TIME", &cfg.MinThinkingTime},
		{"MATCH_TIME_LIMIT", &cfg.MatchTimeLimit},
		{"MOVE_CACHE_TTL", &cfg.MoveCacheTTL},
	}
	for _, d := range durations {
		if v := strings.TrimSpace(os.Getenv(d.key)); v != "" {
			parsed, err := parseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if v := strings.TrimSpace(os.Getenv("MATCH_MOVE_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MATCH_MOVE_LIMIT: %w", err)
		}
		cfg.MatchMoveLimit = n
	}
	if v := strings.TrimSpace(os.Getenv("MAX_ACCURACY")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_ACCURACY: %w", err)
		}
		cfg.MaxAccuracy = f
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Console = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_CALLER")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Caller = b
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.SessionIdleTimeout <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.MaxAccuracy < 0 || c.MaxAccuracy > 1 {
		return fmt.Errorf("MAX_ACCURACY %v outside [0,1]", c.MaxAccuracy)
	}
	return nil
}

// parseDuration accepts Go durations ("90s") or bare seconds ("90").
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
