package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/models"
)

// PostgresStore is the opt-in database-backed registry. The table can be
// dropped and rebuilt from the approved directory at any time, so the
// schema is created on startup rather than through migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS emoji_records (
			id            TEXT PRIMARY KEY,
			file_path     TEXT NOT NULL,
			format        TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL,
			emotions      TEXT[] NOT NULL DEFAULT '{}',
			embedding     vector,
			usage_count   INT NOT NULL DEFAULT 0,
			last_used_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			registered_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) List(ctx context.Context) ([]models.EmojiRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_path, format, description, emotions, embedding, usage_count, last_used_at, registered_at
		 FROM emoji_records ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []models.EmojiRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.EmojiRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, file_path, format, description, emotions, embedding, usage_count, last_used_at, registered_at
		 FROM emoji_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec *models.EmojiRecord) error {
	var embedding any
	if len(rec.Embedding) > 0 {
		embedding = pgvector.NewVector(rec.Embedding)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO emoji_records (id, file_path, format, description, emotions, embedding, usage_count, last_used_at, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			file_path = EXCLUDED.file_path,
			format = EXCLUDED.format,
			description = EXCLUDED.description,
			emotions = EXCLUDED.emotions,
			embedding = EXCLUDED.embedding`,
		rec.ID, rec.FilePath, rec.Format, rec.Description, rec.Emotions, embedding,
		rec.UsageCount, rec.LastUsedAt, rec.RegisteredAt)
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM emoji_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emoji_records SET usage_count = usage_count + 1, last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM emoji_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (*models.EmojiRecord, error) {
	rec := &models.EmojiRecord{}
	var embedding *pgvector.Vector
	err := row.Scan(&rec.ID, &rec.FilePath, &rec.Format, &rec.Description, &rec.Emotions,
		&embedding, &rec.UsageCount, &rec.LastUsedAt, &rec.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if embedding != nil {
		rec.Embedding = embedding.Slice()
	}
	return rec, nil
}
