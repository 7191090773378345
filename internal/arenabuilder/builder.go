package arenabuilder

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/gungi-arena/internal/config"
	"github.com/park285/gungi-arena/internal/gateway"
	"github.com/park285/gungi-arena/internal/matchrepo"
	"github.com/park285/gungi-arena/internal/movecache"
	"github.com/park285/gungi-arena/internal/msgcat"
	"github.com/park285/gungi-arena/internal/service/arena"
	"github.com/park285/gungi-arena/internal/session"
)

type Deps struct {
	Service  *arena.Service
	Store    *session.Store
	Gateway  *gateway.Server
	Messages *msgcat.Catalog
	Cache    *movecache.Cache
	Repo     matchrepo.Repository
	DB       *sql.DB
}

// New wires the arena from cfg. Redis and Postgres are optional: without
// REDIS_URL suggestions are not cached, without DATABASE_URL finished games
// are kept in memory.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		cconf, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		cconf.TTL = cfg.MoveCacheTTL
		deps.Cache, err = movecache.New(*cconf, logger)
		if err != nil {
			return nil, fmt.Errorf("init move cache: %w", err)
		}
	} else {
		logger.Info("move_cache_disabled")
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := matchrepo.Open(cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.DB = db
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = matchrepo.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.Repo = matchrepo.NewRepository(db)
	} else {
		logger.Info("match_repo_in_memory")
		deps.Repo = matchrepo.NewMemoryRepository()
	}

	deps.Store = session.NewStore(session.StoreConfig{
		IdleTimeout:   cfg.SessionIdleTimeout,
		SweepInterval: cfg.SessionSweepInterval,
	}, logger)
	coord, err := session.NewCoordinator(deps.Store, session.CoordinatorConfig{
		Policy: session.ThinkTimePolicy{
			MinimumThinkingTime: cfg.MinThinkingTime,
			MaximumAccuracy:     cfg.MaxAccuracy,
		},
		DefaultRegion: cfg.DefaultRegion,
	}, session.NewLogTelemetry(logger), logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	// a nil *movecache.Cache must not become a non-nil MoveCache
	var cache arena.MoveCache
	if deps.Cache != nil {
		cache = deps.Cache
	}
	deps.Service, err = arena.NewService(coord, cache, deps.Repo, arena.Config{
		MatchTimeLimit:    cfg.MatchTimeLimit,
		MatchMoveLimit:    cfg.MatchMoveLimit,
		DefaultDifficulty: cfg.DefaultDifficulty,
	}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	deps.Messages, err = msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Gateway, err = gateway.NewServer(deps.Service, deps.Messages, gateway.Config{}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	return deps, nil
}

// Close stops the session sweeper and releases Redis and Postgres.
func (d *Deps) Close() error {
	if d.Store != nil {
		d.Store.Shutdown()
	}
	var g errgroup.Group
	if d.Cache != nil {
		g.Go(d.Cache.Close)
	}
	if d.DB != nil {
		g.Go(d.DB.Close)
	}
	return g.Wait()
}

func parseRedisURL(raw string) (*movecache.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &movecache.Config{Host: u.Hostname(), Port: port, Password: pass, DB: db}, nil
}
