// Package audit persists one moderation record per dispatched action. The
// Postgres store upserts by submission fingerprint, which is what makes the
// dispatcher's exactly-once guarantee hold under duplicate form posts.
package audit

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a queried record does not exist.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the audit sink consumed by the dispatcher and the dashboard API.
type Store interface {
	UpsertDecision(ctx context.Context, rec *Record) error
	GetDecision(ctx context.Context, fingerprint string) (*Record, error)
	ListDecisions(ctx context.Context, f Filter) ([]Record, error)
	Stats(ctx context.Context) (*Stats, error)
}

// DB is the Postgres-backed store.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Connect opens the pool, pings, and runs the embedded migration.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Migrate executes the embedded SQL migration files.
func (db *DB) Migrate(ctx context.Context) error {
	sqlBytes, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	db.logger.Info("audit store migrated")
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// UpsertDecision writes the record atomically, keyed by fingerprint. A
// replayed submission updates the existing row in place.
func (db *DB) UpsertDecision(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	// pgx encodes nil slices as SQL NULL; the array columns are NOT NULL.
	if rec.Reasons == nil {
		rec.Reasons = []string{}
	}
	if rec.Links == nil {
		rec.Links = []string{}
	}

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO moderation_decisions
		   (fingerprint, submission_id, action, category, is_spam, confidence,
		    risk_level, raw_score, threshold_used, sensitivity_used, source,
		    reasons, links, origin_ip, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		    action = EXCLUDED.action,
		    category = EXCLUDED.category,
		    is_spam = EXCLUDED.is_spam,
		    confidence = EXCLUDED.confidence,
		    risk_level = EXCLUDED.risk_level,
		    raw_score = EXCLUDED.raw_score,
		    threshold_used = EXCLUDED.threshold_used,
		    sensitivity_used = EXCLUDED.sensitivity_used,
		    source = EXCLUDED.source,
		    reasons = EXCLUDED.reasons,
		    links = EXCLUDED.links,
		    updated_at = EXCLUDED.updated_at`,
		rec.Fingerprint, rec.SubmissionID, rec.Action, rec.Category, rec.IsSpam,
		rec.Confidence, rec.RiskLevel, rec.RawScore, rec.ThresholdUsed,
		rec.SensitivityUsed, rec.Source, rec.Reasons, rec.Links, rec.OriginIP,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert decision: %w", err)
	}
	return nil
}

// GetDecision retrieves one record by fingerprint.
func (db *DB) GetDecision(ctx context.Context, fingerprint string) (*Record, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT fingerprint, submission_id, action, category, is_spam, confidence,
		        risk_level, raw_score, threshold_used, sensitivity_used, source,
		        reasons, links, origin_ip, created_at, updated_at
		 FROM moderation_decisions WHERE fingerprint = $1`, fingerprint)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return rec, nil
}

// ListDecisions returns records matching the filter, newest first.
func (db *DB) ListDecisions(ctx context.Context, f Filter) ([]Record, error) {
	q := psql.Select(
		"fingerprint", "submission_id", "action", "category", "is_spam",
		"confidence", "risk_level", "raw_score", "threshold_used",
		"sensitivity_used", "source", "reasons", "links", "origin_ip",
		"created_at", "updated_at").
		From("moderation_decisions").
		OrderBy("created_at DESC")

	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source": f.Source})
	}
	if f.Action != "" {
		q = q.Where(sq.Eq{"action": f.Action})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.Since})
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q = q.Limit(uint64(limit))

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Stats aggregates the dashboard counters.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_spam),
		        COUNT(*) FILTER (WHERE action = 'hard_block'),
		        COUNT(*) FILTER (WHERE source = 'local_fallback')
		 FROM moderation_decisions`).
		Scan(&s.TotalChecked, &s.SpamCount, &s.BlockedCount, &s.FallbackCount)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var originIP *string
	err := row.Scan(&rec.Fingerprint, &rec.SubmissionID, &rec.Action,
		&rec.Category, &rec.IsSpam, &rec.Confidence, &rec.RiskLevel,
		&rec.RawScore, &rec.ThresholdUsed, &rec.SensitivityUsed, &rec.Source,
		&rec.Reasons, &rec.Links, &originIP, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if originIP != nil {
		rec.OriginIP = *originIP
	}
	return &rec, nil
}
