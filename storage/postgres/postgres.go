// Package postgres provides a PostgreSQL implementation of the sheetsync.Table interface.
// Each row is stored as a text array; the row number is the row's serial index,
// so numbers stay stable even if an insert is rolled back and leaves a gap.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Storage implements sheetsync.Table using PostgreSQL
type Storage struct {
	pool   *pgxpool.Pool
	config Config
	table  string
}

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// TableName is the row table (default: "sheet_rows")
	TableName string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// SkipMigration disables CREATE TABLE IF NOT EXISTS on start
	SkipMigration bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		TableName:       "sheet_rows",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL table adapter and applies the schema
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.TableName == "" {
		config.TableName = DefaultConfig().TableName
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{
		pool:   pool,
		config: config,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
	}

	if !config.SkipMigration {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates the row table if it does not exist
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(schema, s.table)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL connection pool
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity to PostgreSQL
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Find implements sheetsync.Table
func (s *Storage) Find(ctx context.Context, column int, value string) (int, bool, error) {
	if column < 1 {
		return 0, false, fmt.Errorf("%w: column %d", sheetsync.ErrCellOutOfRange, column)
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT row_index, COALESCE(cells[$1], '') FROM %s ORDER BY row_index`, s.table),
		column)
	if err != nil {
		return 0, false, fmt.Errorf("failed to scan rows: %w", err)
	}
	defer rows.Close()

	// Matching stays in Go so every backend compares cells the same way
	for rows.Next() {
		var (
			index int64
			cell  string
		)
		if err := rows.Scan(&index, &cell); err != nil {
			return 0, false, fmt.Errorf("failed to scan row: %w", err)
		}
		if sheetsync.MatchesID(cell, value) {
			return int(index), true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("failed to scan rows: %w", err)
	}
	return 0, false, nil
}

// ReadCell implements sheetsync.Table
func (s *Storage) ReadCell(ctx context.Context, row, column int) (string, error) {
	if row < 1 || column < 1 {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	var cell string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COALESCE(cells[$2], '') FROM %s WHERE row_index = $1`, s.table),
		row, column).Scan(&cell)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read row %d column %d: %w", row, column, err)
	}
	return cell, nil
}

// WriteCell implements sheetsync.Table.
// Writing past the end of a row pads it with NULLs, which read back as empty cells.
func (s *Storage) WriteCell(ctx context.Context, row, column int, value string) error {
	if row < 1 || column < 1 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET cells[$2] = $3, updated_at = now() WHERE row_index = $1`, s.table),
		row, column, value)
	if err != nil {
		return fmt.Errorf("failed to write row %d column %d: %w", row, column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}
	return nil
}

// AppendRow implements sheetsync.Table
func (s *Storage) AppendRow(ctx context.Context, values []string) error {
	if values == nil {
		values = []string{}
	}
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (cells) VALUES ($1)`, s.table),
		values); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}
