package movecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/gungi"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "gungi:move:"
	statsKey   = "gungi:move:stats"
)

// Config mirrors the parsed REDIS_URL.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// CachedMove is a previously computed answer for a board and difficulty.
type CachedMove struct {
	From     gungi.Position  `json:"from"`
	To       gungi.Position  `json:"to"`
	Piece    gungi.PieceType `json:"piece"`
	Capture  bool            `json:"capture"`
	StoredAt time.Time       `json:"stored_at"`
}

// Stats are the hit/miss counters kept next to the entries.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache stores suggested moves in Redis keyed by board fingerprint.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New dials Redis and verifies the connection.
func New(cfg Config, logger *zap.Logger) (*Cache, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(rdb, cfg.TTL, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func key(fingerprint uint64, difficulty string) string {
	d := strings.ToLower(strings.TrimSpace(difficulty))
	if d == "" {
		d = "default"
	}
	return keyPrefix + strconv.FormatUint(fingerprint, 16) + ":" + d
}

// Lookup returns the cached move, or nil on a miss.
func (c *Cache) Lookup(ctx context.Context, fingerprint uint64, difficulty string) (*CachedMove, error) {
	raw, err := c.rdb.Get(ctx, key(fingerprint, difficulty)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.count(ctx, "misses")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("movecache lookup: %w", err)
	}
	var mv CachedMove
	if err := json.Unmarshal(raw, &mv); err != nil {
		return nil, fmt.Errorf("movecache decode: %w", err)
	}
	c.count(ctx, "hits")
	return &mv, nil
}

// Store writes mv for the board and difficulty with the configured TTL.
func (c *Cache) Store(ctx context.Context, fingerprint uint64, difficulty string, mv CachedMove) error {
	raw, err := json.Marshal(mv)
	if err != nil {
		return fmt.Errorf("movecache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key(fingerprint, difficulty), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("movecache store: %w", err)
	}
	return nil
}

// Stats reads the hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	vals, err := c.rdb.HMGet(ctx, statsKey, "hits", "misses").Result()
	if err != nil {
		return Stats{}, fmt.Errorf("movecache stats: %w", err)
	}
	var st Stats
	st.Hits = parseCounter(vals[0])
	st.Misses = parseCounter(vals[1])
	return st, nil
}

func (c *Cache) count(ctx context.Context, field string) {
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, statsKey, field, 1)
	pipe.Expire(ctx, statsKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug("movecache_stats_failed", zap.String("field", field), zap.Error(err))
	}
}

func parseCounter(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
