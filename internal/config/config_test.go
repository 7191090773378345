package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GUNGI_CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.SessionIdleTimeout != 5*time.Minute || cfg.MatchMoveLimit != 500 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MinThinkingTime != 100*time.Millisecond || cfg.MaxAccuracy != 0.95 {
		t.Fatalf("unexpected fraud defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gungi.yaml")
	body := `
listen_addr: ":9000"
redis_url: "redis://cache:6379/2"
session_idle_timeout: 2m
match_move_limit: 120
log:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GUNGI_CONFIG_FILE", path)
	t.Setenv("LISTEN_ADDR", ":9100")
	t.Setenv("SESSION_SWEEP_INTERVAL", "10")
	t.Setenv("MIN_THINKING_TIME", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9100" {
		t.Fatalf("env should win over file, got %q", cfg.ListenAddr)
	}
	if cfg.RedisURL != "redis://cache:6379/2" || cfg.MatchMoveLimit != 120 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.SessionIdleTimeout != 2*time.Minute || cfg.SessionSweepInterval != 10*time.Second {
		t.Fatalf("durations: %v %v", cfg.SessionIdleTimeout, cfg.SessionSweepInterval)
	}
	if cfg.MinThinkingTime != 250*time.Millisecond {
		t.Fatalf("min thinking time: %v", cfg.MinThinkingTime)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" || !cfg.Log.Console {
		t.Fatalf("log config: %+v", cfg.Log)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MATCH_TIME_LIMIT":       "soon",
		"MATCH_MOVE_LIMIT":       "many",
		"MAX_ACCURACY":           "1.5",
		"SESSION_IDLE_TIMEOUT":   "-1s",
		"SESSION_SWEEP_INTERVAL": "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("GUNGI_CONFIG_FILE", "")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", key, val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("GUNGI_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
