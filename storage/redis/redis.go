// Package redis provides a Redis implementation of the sheetsync.Table interface.
// Rows are hashes keyed by column number; a list holds the row keys in order.
// Appends and in-place writes run as Lua scripts so each call is atomic.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Storage implements sheetsync.Table using Redis
type Storage struct {
	client  redis.UniversalClient
	config  Config
	scripts map[string]*redis.Script
}

// Config holds Redis storage configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "sheetsync:")
	KeyPrefix string

	// Table names the worksheet; every key of one table shares a hash slot (default: "customers")
	Table string

	// FindBatchSize is how many row cells Find fetches per pipeline (default: 500)
	FindBatchSize int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     "sheetsync:",
		Table:         "customers",
		FindBatchSize: 500,
	}
}

// New creates a new Redis table adapter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	defaults := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Table == "" {
		config.Table = defaults.Table
	}
	if config.FindBatchSize <= 0 {
		config.FindBatchSize = defaults.FindBatchSize
	}

	s := &Storage{
		client:  client,
		config:  config,
		scripts: make(map[string]*redis.Script),
	}
	s.loadScripts()
	return s, nil
}

func (s *Storage) loadScripts() {
	// KEYS[1] row list, KEYS[2] row id sequence
	// ARGV[1] row key prefix, ARGV[2..] cell values
	s.scripts["append"] = redis.NewScript(`
		local id = redis.call('INCR', KEYS[2])
		local rowKey = ARGV[1] .. id
		redis.call('DEL', rowKey)
		for i = 2, #ARGV do
			redis.call('HSET', rowKey, tostring(i - 1), ARGV[i])
		end
		return redis.call('RPUSH', KEYS[1], rowKey)
	`)

	// KEYS[1] row list; ARGV[1] row, ARGV[2] column, ARGV[3] value
	s.scripts["writeCell"] = redis.NewScript(`
		local rowKey = redis.call('LINDEX', KEYS[1], tonumber(ARGV[1]) - 1)
		if not rowKey then
			return 0
		end
		redis.call('HSET', rowKey, ARGV[2], ARGV[3])
		return 1
	`)
}

// Find implements sheetsync.Table
func (s *Storage) Find(ctx context.Context, column int, value string) (int, bool, error) {
	if column < 1 {
		return 0, false, fmt.Errorf("%w: column %d", sheetsync.ErrCellOutOfRange, column)
	}

	rowKeys, err := s.client.LRange(ctx, s.rowsKey(), 0, -1).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to list rows: %w", err)
	}

	field := strconv.Itoa(column)
	for start := 0; start < len(rowKeys); start += s.config.FindBatchSize {
		end := start + s.config.FindBatchSize
		if end > len(rowKeys) {
			end = len(rowKeys)
		}

		pipe := s.client.Pipeline()
		cmds := make([]*redis.StringCmd, 0, end-start)
		for _, key := range rowKeys[start:end] {
			cmds = append(cmds, pipe.HGet(ctx, key, field))
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return 0, false, fmt.Errorf("failed to read column %d: %w", column, err)
		}

		for i, cmd := range cmds {
			cell, err := cmd.Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return 0, false, fmt.Errorf("failed to read column %d: %w", column, err)
			}
			if sheetsync.MatchesID(cell, value) {
				return start + i + 1, true, nil
			}
		}
	}
	return 0, false, nil
}

// ReadCell implements sheetsync.Table
func (s *Storage) ReadCell(ctx context.Context, row, column int) (string, error) {
	if row < 1 || column < 1 {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	rowKey, err := s.client.LIndex(ctx, s.rowsKey(), int64(row-1)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}
	if err != nil {
		return "", fmt.Errorf("failed to locate row %d: %w", row, err)
	}

	cell, err := s.client.HGet(ctx, rowKey, strconv.Itoa(column)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read row %d column %d: %w", row, column, err)
	}
	return cell, nil
}

// WriteCell implements sheetsync.Table
func (s *Storage) WriteCell(ctx context.Context, row, column int, value string) error {
	if row < 1 || column < 1 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	written, err := s.scripts["writeCell"].Run(ctx, s.client,
		[]string{s.rowsKey()}, row, column, value).Int()
	if err != nil {
		return fmt.Errorf("failed to write row %d column %d: %w", row, column, err)
	}
	if written == 0 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}
	return nil
}

// AppendRow implements sheetsync.Table
func (s *Storage) AppendRow(ctx context.Context, values []string) error {
	args := make([]interface{}, 0, len(values)+1)
	args = append(args, s.rowKeyPrefix())
	for _, v := range values {
		args = append(args, v)
	}

	if err := s.scripts["append"].Run(ctx, s.client,
		[]string{s.rowsKey(), s.seqKey()}, args...).Err(); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// Ping checks connectivity to Redis
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Key helpers. The table name is a hash tag so cluster deployments keep one
// table's keys in a single slot, which the scripts require.

func (s *Storage) tableTag() string {
	return s.config.KeyPrefix + "{" + s.config.Table + "}"
}

func (s *Storage) rowsKey() string {
	return s.tableTag() + ":rows"
}

func (s *Storage) seqKey() string {
	return s.tableTag() + ":seq"
}

func (s *Storage) rowKeyPrefix() string {
	return s.tableTag() + ":row:"
}
