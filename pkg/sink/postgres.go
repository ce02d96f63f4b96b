package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/flowpanel/pkg/merge"
)

// PGSink persists merged panel rows to PostgreSQL
type PGSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGSink creates a new PostgreSQL-backed panel sink
func NewPGSink(ctx context.Context, databaseURL, table string) (*PGSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSink{pool: pool, table: table}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *PGSink) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id                    TEXT NOT NULL,
			year                      TEXT NOT NULL,
			day_type                  TEXT NOT NULL,
			time_band                 TEXT NOT NULL,
			borough                   TEXT NOT NULL,
			weighted_in_degree        DOUBLE PRECISION,
			weighted_out_degree       DOUBLE PRECISION,
			betweenness_centrality    DOUBLE PRECISION,
			closeness_centrality      DOUBLE PRECISION,
			eigenvector_centrality    DOUBLE PRECISION,
			community_id              INTEGER,
			participation_coefficient DOUBLE PRECISION,
			created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (run_id, year, day_type, time_band, borough)
		)
	`, pgx.Identifier{s.table}.Sanitize())

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Ping checks database connectivity
func (s *PGSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGSink) Close() error {
	s.pool.Close()
	return nil
}

var columns = []string{
	"run_id", "year", "day_type", "time_band", "borough",
	"weighted_in_degree", "weighted_out_degree",
	"betweenness_centrality", "closeness_centrality", "eigenvector_centrality",
	"community_id", "participation_coefficient",
}

// WriteMerged bulk-loads one run's merged rows. A missing join side is
// stored as NULL columns, matching the CSV convention of empty fields.
func (s *PGSink) WriteMerged(ctx context.Context, runID string, rows []merge.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copied, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{s.table},
		columns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rowValues(runID, rows[i]), nil
		}),
	)
	if err != nil {
		return copied, fmt.Errorf("failed to copy merged rows: %w", err)
	}
	return copied, nil
}

func rowValues(runID string, row merge.Row) []any {
	values := []any{
		runID,
		row.Key.Period.Year,
		row.Key.Period.DayType,
		row.Key.Period.TimeBand,
		row.Key.Borough,
	}

	if c := row.Centrality; c != nil {
		values = append(values, c.InDegree, c.OutDegree, c.Betweenness, c.Closeness, c.Eigenvector)
	} else {
		values = append(values, nil, nil, nil, nil, nil)
	}

	if c := row.Community; c != nil {
		values = append(values, c.CommunityID, c.Participation)
	} else {
		values = append(values, nil, nil)
	}

	return values
}
