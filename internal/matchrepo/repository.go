package matchrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/gungi-arena/internal/domain"
)

var ErrRecordNotFound = errors.New("match record not found")

// Repository stores finished matches and sessions.
type Repository interface {
	RecordMatch(ctx context.Context, rec *domain.MatchRecord) error
	GetMatch(ctx context.Context, matchID string) (*domain.MatchRecord, error)
	RecentMatches(ctx context.Context, limit int) ([]*domain.MatchRecord, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS gungi_matches (
	id          BIGSERIAL PRIMARY KEY,
	match_id    TEXT NOT NULL UNIQUE,
	kind        TEXT NOT NULL,
	player1     TEXT NOT NULL DEFAULT '',
	player2     TEXT NOT NULL DEFAULT '',
	region      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	result      TEXT NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	move_count  INTEGER NOT NULL,
	document    JSONB NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`

type repository struct {
	db *sql.DB
}

// Open connects to Postgres with the pool settings used across the service.
func Open(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the table when it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure gungi_matches: %w", err)
	}
	return nil
}

// RecordMatch upserts rec by match id and fills rec.ID.
func (r *repository) RecordMatch(ctx context.Context, rec *domain.MatchRecord) error {
	if rec == nil {
		return fmt.Errorf("nil match record")
	}
	doc := rec.Document
	if len(doc) == 0 {
		doc = []byte("null")
	}
	const query = `
		INSERT INTO gungi_matches (
			match_id, kind, player1, player2, region,
			status, result, winner, move_count, document,
			started_at, ended_at, duration_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (match_id) DO UPDATE SET
			kind=EXCLUDED.kind,
			player1=EXCLUDED.player1,
			player2=EXCLUDED.player2,
			region=EXCLUDED.region,
			status=EXCLUDED.status,
			result=EXCLUDED.result,
			winner=EXCLUDED.winner,
			move_count=EXCLUDED.move_count,
			document=EXCLUDED.document,
			started_at=EXCLUDED.started_at,
			ended_at=EXCLUDED.ended_at,
			duration_ms=EXCLUDED.duration_ms
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		rec.MatchID, rec.Kind, rec.Player1, rec.Player2, rec.Region,
		rec.Status, rec.Result, rec.Winner, rec.MoveCount, string(doc),
		rec.StartedAt, rec.EndedAt, rec.Duration.Milliseconds(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("record match %s: %w", rec.MatchID, err)
	}
	return nil
}

const selectColumns = `id, match_id, kind, player1, player2, region, status, result,
	winner, move_count, document, started_at, ended_at, duration_ms`

func (r *repository) GetMatch(ctx context.Context, matchID string) (*domain.MatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM gungi_matches WHERE match_id = $1`, matchID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (r *repository) RecentMatches(ctx context.Context, limit int) ([]*domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM gungi_matches ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent matches: %w", err)
	}
	defer rows.Close()

	var out []*domain.MatchRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.MatchRecord, error) {
	var (
		rec        domain.MatchRecord
		doc        []byte
		durationMs int64
	)
	if err := s.Scan(
		&rec.ID, &rec.MatchID, &rec.Kind, &rec.Player1, &rec.Player2, &rec.Region,
		&rec.Status, &rec.Result, &rec.Winner, &rec.MoveCount, &doc,
		&rec.StartedAt, &rec.EndedAt, &durationMs,
	); err != nil {
		return nil, err
	}
	rec.Document = doc
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}
