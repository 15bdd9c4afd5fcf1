package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game"
)

// DBTX is the subset of *pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	match_id    TEXT PRIMARY KEY,
	game_type   TEXT NOT NULL,
	player_one  TEXT NOT NULL,
	player_two  TEXT NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	turns       INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_results_player_one_idx ON match_results (lower(player_one));
CREATE INDEX IF NOT EXISTS match_results_player_two_idx ON match_results (lower(player_two));
`

// PlayerStats summarises a player's finished matches.
type PlayerStats struct {
	Username string
	Played   int
	Wins     int
	Losses   int
	Draws    int
}

// ResultsStore persists finished matches. It implements game.ResultRecorder.
type ResultsStore struct {
	db     DBTX
	logger *zap.Logger
}

// NewResultsStore wraps db.
func NewResultsStore(db DBTX, logger *zap.Logger) *ResultsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsStore{db: db, logger: logger}
}

// EnsureSchema creates the results table when missing.
func (s *ResultsStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create match_results: %w", err)
	}
	return nil
}

// RecordMatch stores a finished match. Recording the same match twice keeps the first row.
func (s *ResultsStore) RecordMatch(ctx context.Context, r game.MatchRecord) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO match_results (
			match_id, game_type, player_one, player_two, winner, turns, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING
	`,
		r.MatchID,
		string(r.GameType),
		r.PlayerOne,
		r.PlayerTwo,
		r.Winner,
		r.Turns,
		r.StartedAt,
		r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", r.MatchID, err)
	}
	s.logger.Info("match result stored",
		zap.String("match_id", r.MatchID),
		zap.String("winner", r.Winner),
		zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// ErrNoMatches is returned by Stats for players without finished matches.
var ErrNoMatches = errors.New("no finished matches")

// Stats counts the finished matches of username.
func (s *ResultsStore) Stats(ctx context.Context, username string) (PlayerStats, error) {
	stats := PlayerStats{Username: username}
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE lower(winner) = lower($1)),
			COUNT(*) FILTER (WHERE winner <> '' AND lower(winner) <> lower($1)),
			COUNT(*) FILTER (WHERE winner = '')
		FROM match_results
		WHERE lower(player_one) = lower($1) OR lower(player_two) = lower($1)
	`, username).Scan(&stats.Played, &stats.Wins, &stats.Losses, &stats.Draws)
	if err != nil {
		return PlayerStats{}, fmt.Errorf("stats for %s: %w", username, err)
	}
	if stats.Played == 0 {
		return stats, ErrNoMatches
	}
	return stats, nil
}

// Recent returns the latest finished matches, newest first.
func (s *ResultsStore) Recent(ctx context.Context, limit int) ([]game.MatchRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT match_id, game_type, player_one, player_two, winner, turns, started_at, finished_at
		FROM match_results
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent matches: %w", err)
	}
	defer rows.Close()

	var out []game.MatchRecord
	for rows.Next() {
		var (
			r        game.MatchRecord
			gameType string
		)
		if err := rows.Scan(&r.MatchID, &gameType, &r.PlayerOne, &r.PlayerTwo, &r.Winner, &r.Turns, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		r.GameType = game.GameType(gameType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match results: %w", err)
	}
	return out, nil
}
