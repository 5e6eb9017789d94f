package main

import (
	"context"
	"fmt"

	gfirestore "cloud.google.com/go/firestore"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
	"github.com/mihaimyh/sheetsync/storage/firestore"
	"github.com/mihaimyh/sheetsync/storage/memory"
	"github.com/mihaimyh/sheetsync/storage/postgres"
	"github.com/mihaimyh/sheetsync/storage/redis"
	"github.com/mihaimyh/sheetsync/storage/sheets"
)

// openEngine opens backend and builds an engine over it, behind a circuit
// breaker when STORE_CIRCUIT_THRESHOLD is positive.
func openEngine(ctx context.Context, cfg *Config, backend string, metrics sheetsync.Metrics,
	logger sheetsync.Logger) (*sheetsync.Engine, func(), error) {
	table, closeTable, err := openTable(ctx, cfg, backend, logger)
	if err != nil {
		return nil, closeTable, fmt.Errorf("failed to open %s store: %w", backend, err)
	}

	if cfg.StoreCircuitThreshold > 0 {
		cb := sheetsync.NewDefaultCircuitBreaker(cfg.StoreCircuitThreshold, cfg.StoreCircuitReset,
			func(state sheetsync.CircuitBreakerState) {
				logger.Warn("store circuit breaker changed state",
					sheetsync.Field{Key: "state", Value: string(state)},
					sheetsync.Field{Key: "backend", Value: backend},
				)
			})
		table = sheetsync.NewCircuitBreakerTable(table, cb)
	}

	engine, err := sheetsync.NewEngine(table, sheetsync.Config{Metrics: metrics, Logger: logger})
	if err != nil {
		closeTable()
		return nil, func() {}, err
	}
	return engine, closeTable, nil
}

// openTable connects backend using the connection settings in cfg. The
// returned close func releases its client and is never nil.
func openTable(ctx context.Context, cfg *Config, backend string, logger sheetsync.Logger) (sheetsync.Table, func(), error) {
	noop := func() {}

	switch backend {
	case BackendSheets:
		table, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:    cfg.GoogleSheetID,
			SpreadsheetTitle: cfg.TargetSheetName,
			CredentialsFile:  cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Info("opened spreadsheet",
			sheetsync.Field{Key: "spreadsheet_id", Value: table.SpreadsheetID()},
			sheetsync.Field{Key: "sheet", Value: table.SheetTitle()},
		)
		return table, noop, nil

	case BackendMemory:
		logger.Warn("using in-memory table; rows are lost on restart")
		return memory.New(), noop, nil

	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		table, err := redis.New(client, redis.DefaultConfig())
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return table, func() { _ = client.Close() }, nil

	case BackendPostgres:
		config := postgres.DefaultConfig()
		config.ConnectionString = cfg.PostgresDSN
		table, err := postgres.New(ctx, config)
		if err != nil {
			return nil, noop, err
		}
		return table, table.Close, nil

	case BackendFirestore:
		client, err := gfirestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create firestore client: %w", err)
		}
		table, err := firestore.New(client, firestore.Config{})
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return table, func() { _ = client.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown store backend %q", backend)
}
