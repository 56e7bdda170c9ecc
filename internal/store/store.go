// Package store persists the load history in PostgreSQL.
//
// Each committed load becomes one roster_loads row plus one roster_records
// row per record, written in a single transaction. Records are bulk-inserted
// with COPY.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/logging"
	"github.com/JonMunkholm/simroster/internal/roster"
)

// ErrLoadNotFound is returned when a load ID has no history row.
var ErrLoadNotFound = errors.New("load not found in history")

const schema = `
CREATE TABLE IF NOT EXISTS roster_loads (
	load_id         UUID PRIMARY KEY,
	generation      BIGINT NOT NULL,
	file_name       TEXT NOT NULL,
	current_year    INTEGER NOT NULL,
	persons         INTEGER NOT NULL,
	deceased        INTEGER NOT NULL,
	records         INTEGER NOT NULL,
	issues          INTEGER NOT NULL,
	catalog_entries INTEGER NOT NULL,
	client_ip       TEXT,
	user_agent      TEXT,
	loaded_at       TIMESTAMPTZ NOT NULL,
	duration_ms     BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS roster_loads_loaded_at_idx ON roster_loads (loaded_at DESC);

CREATE TABLE IF NOT EXISTS roster_records (
	load_id        UUID NOT NULL REFERENCES roster_loads (load_id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	person_id      BIGINT NOT NULL,
	first_name     TEXT,
	family_name    TEXT,
	gender         TEXT,
	birth_year     BIGINT,
	birth_season   BIGINT,
	birth_day      BIGINT,
	age            BIGINT,
	death_age      BIGINT,
	liked_items    TEXT NOT NULL,
	disliked_items TEXT NOT NULL,
	death_year     BIGINT,
	death_season   BIGINT,
	death_day      BIGINT,
	PRIMARY KEY (load_id, position)
);
`

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements core.HistoryStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.HistoryStore = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordLoad stores a load and its records in one transaction.
func (s *Store) RecordLoad(ctx context.Context, entry core.HistoryEntry, records []roster.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO roster_loads (
			load_id, generation, file_name, current_year, persons, deceased,
			records, issues, catalog_entries, client_ip, user_agent, loaded_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		toPgUUID(entry.LoadID),
		int64(entry.Generation),
		entry.FileName,
		toPgInt4(entry.CurrentYear),
		toPgInt4(entry.Persons),
		toPgInt4(entry.Deceased),
		toPgInt4(entry.Records),
		toPgInt4(entry.Issues),
		toPgInt4(entry.CatalogEntries),
		optionalText(entry.ClientIP),
		optionalText(entry.UserAgent),
		pgtype.Timestamptz{Time: entry.LoadedAt, Valid: true},
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert load: %w", err)
	}

	if len(records) > 0 {
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"roster_records"},
			recordColumns,
			pgx.CopyFromRows(recordRows(entry.LoadID, records)),
		)
		if err != nil {
			return fmt.Errorf("copy records: %w", err)
		}
		if int(n) != len(records) {
			return fmt.Errorf("copy records: wrote %d of %d", n, len(records))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}

	logging.WithFields(ctx, "load_id", entry.LoadID, "records", len(records)).Debug("load history recorded")
	return nil
}

// ListLoads returns up to limit loads, newest first.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT load_id, generation, file_name, current_year, persons, deceased,
		       records, issues, catalog_entries, client_ip, user_agent, loaded_at, duration_ms
		FROM roster_loads
		ORDER BY loaded_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	defer rows.Close()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var (
			id              pgtype.UUID
			generation      int64
			clientIP, agent pgtype.Text
			loadedAt        pgtype.Timestamptz
			e               core.HistoryEntry
		)
		if err := rows.Scan(
			&id, &generation, &e.FileName, &e.CurrentYear, &e.Persons, &e.Deceased,
			&e.Records, &e.Issues, &e.CatalogEntries, &clientIP, &agent, &loadedAt, &e.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		e.LoadID = uuid.UUID(id.Bytes)
		e.Generation = uint64(generation)
		e.ClientIP = textOrEmpty(clientIP)
		e.UserAgent = textOrEmpty(agent)
		e.LoadedAt = loadedAt.Time
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loads: %w", err)
	}
	return entries, nil
}

// LoadRecords returns the records stored for a load, in their original
// order.
func (s *Store) LoadRecords(ctx context.Context, loadID uuid.UUID) ([]roster.Record, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roster_loads WHERE load_id = $1)`,
		toPgUUID(loadID),
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check load: %w", err)
	}
	if !exists {
		return nil, ErrLoadNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT person_id, first_name, family_name, gender,
		       birth_year, birth_season, birth_day, age, death_age,
		       liked_items, disliked_items, death_year, death_season, death_day
		FROM roster_records
		WHERE load_id = $1
		ORDER BY position`, toPgUUID(loadID))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []roster.Record{}
	for rows.Next() {
		var (
			id                               int64
			first, family, gender            pgtype.Text
			birthYear, birthSeason, birthDay pgtype.Int8
			age, deathAge                    pgtype.Int8
			deathYear, deathSeason, deathDay pgtype.Int8
			r                                roster.Record
		)
		if err := rows.Scan(
			&id, &first, &family, &gender,
			&birthYear, &birthSeason, &birthDay, &age, &deathAge,
			&r.LikedItems, &r.DislikedItems, &deathYear, &deathSeason, &deathDay,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.ID = int(id)
		r.FirstName = fromPgText(first)
		r.FamilyName = fromPgText(family)
		r.Gender = fromPgText(gender)
		r.BirthYear = fromPgInt8(birthYear)
		r.BirthSeason = fromPgInt8(birthSeason)
		r.BirthDay = fromPgInt8(birthDay)
		r.Age = fromPgInt8(age)
		r.DeathAge = fromPgInt8(deathAge)
		r.DeathYear = fromPgInt8(deathYear)
		r.DeathSeason = fromPgInt8(deathSeason)
		r.DeathDay = fromPgInt8(deathDay)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// PruneBefore deletes loads older than cutoff. Their records go with them.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM roster_loads WHERE loaded_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true},
	)
	if err != nil {
		return 0, fmt.Errorf("prune loads: %w", err)
	}
	return tag.RowsAffected(), nil
}

// optionalText stores "" as NULL.
func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
