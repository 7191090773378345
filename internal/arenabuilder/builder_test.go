package arenabuilder

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/gungi-arena/internal/config"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		ListenAddr:           ":0",
		SessionIdleTimeout:   time.Minute,
		SessionSweepInterval: time.Second,
		MinThinkingTime:      100 * time.Millisecond,
		MaxAccuracy:          0.95,
		MatchTimeLimit:       time.Hour,
		MatchMoveLimit:       500,
		MoveCacheTTL:         time.Hour,
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		raw      string
		host     string
		port, db int
		pass     string
		wantErr  bool
	}{
		{raw: "redis://localhost", host: "localhost", port: 6379},
		{raw: "redis://:secret@cache:6380/3", host: "cache", port: 6380, db: 3, pass: "secret"},
		{raw: "rediss://user:pw@10.0.0.1:6379/x", host: "10.0.0.1", port: 6379, pass: "pw"},
		{raw: "http://localhost:6379", wantErr: true},
		{raw: "redis://localhost:port", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseRedisURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, got.Host)
			assert.Equal(t, tt.port, got.Port)
			assert.Equal(t, tt.db, got.DB)
			assert.Equal(t, tt.pass, got.Password)
		})
	}
}

func TestNewWithoutBackends(t *testing.T) {
	deps, err := New(baseConfig(), nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Cache)
	assert.Nil(t, deps.DB)
	require.NotNil(t, deps.Repo)
	require.NotNil(t, deps.Gateway)

	// suggestions work with no cache configured
	_, err = deps.Service.CreateMatch("m1")
	require.NoError(t, err)
	sug, err := deps.Service.SuggestMove(context.Background(), "m1", "")
	require.NoError(t, err)
	assert.False(t, sug.Cached)
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	deps, err := New(cfg, nil)
	require.NoError(t, err)
	defer deps.Close()
	require.NotNil(t, deps.Cache)

	ctx := context.Background()
	_, err = deps.Service.CreateMatch("m1")
	require.NoError(t, err)
	_, err = deps.Service.SuggestMove(ctx, "m1", "hard")
	require.NoError(t, err)
	again, err := deps.Service.SuggestMove(ctx, "m1", "hard")
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
