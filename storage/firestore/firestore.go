// Package firestore provides a Firestore implementation of the sheetsync.Table interface.
// Each row is a document holding its cells as an array; a counter document
// hands out row numbers inside the append transaction.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

const (
	fieldRowIndex  = "rowIndex"
	fieldCells     = "cells"
	fieldUpdatedAt = "updatedAt"
	fieldLastRow   = "lastRow"
)

// Storage implements sheetsync.Table using Google Cloud Firestore
type Storage struct {
	client         *firestore.Client
	rowsCollection string
	metaCollection string
}

// Config holds Firestore storage configuration
type Config struct {
	// RowsCollection holds one document per row
	// Default: "sheet_rows"
	RowsCollection string

	// MetaCollection holds the row counter document
	// Default: "sheet_meta"
	MetaCollection string
}

// New creates a new Firestore table adapter
func New(client *firestore.Client, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}

	if config.RowsCollection == "" {
		config.RowsCollection = "sheet_rows"
	}
	if config.MetaCollection == "" {
		config.MetaCollection = "sheet_meta"
	}

	return &Storage{
		client:         client,
		rowsCollection: config.RowsCollection,
		metaCollection: config.MetaCollection,
	}, nil
}

// Find implements sheetsync.Table
func (s *Storage) Find(ctx context.Context, column int, value string) (int, bool, error) {
	if column < 1 {
		return 0, false, fmt.Errorf("%w: column %d", sheetsync.ErrCellOutOfRange, column)
	}

	iter := s.client.Collection(s.rowsCollection).OrderBy(fieldRowIndex, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to scan rows: %w", err)
		}

		data := snap.Data()
		if sheetsync.MatchesID(cellAt(getCells(data), column), value) {
			return getInt(data, fieldRowIndex), true, nil
		}
	}
}

// ReadCell implements sheetsync.Table
func (s *Storage) ReadCell(ctx context.Context, row, column int) (string, error) {
	if row < 1 || column < 1 {
		return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	snap, err := s.rowDoc(row).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
		}
		return "", fmt.Errorf("failed to read row %d: %w", row, err)
	}
	return cellAt(getCells(snap.Data()), column), nil
}

// WriteCell implements sheetsync.Table
func (s *Storage) WriteCell(ctx context.Context, row, column int, value string) error {
	if row < 1 || column < 1 {
		return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
	}

	doc := s.rowDoc(row)
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: row %d column %d", sheetsync.ErrCellOutOfRange, row, column)
			}
			return err
		}

		cells := getCells(snap.Data())
		for len(cells) < column {
			cells = append(cells, "")
		}
		cells[column-1] = value

		return tx.Update(doc, []firestore.Update{
			{Path: fieldCells, Value: cells},
			{Path: fieldUpdatedAt, Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		if errors.Is(err, sheetsync.ErrCellOutOfRange) {
			return err
		}
		return fmt.Errorf("failed to write row %d column %d: %w", row, column, err)
	}
	return nil
}

// AppendRow implements sheetsync.Table
func (s *Storage) AppendRow(ctx context.Context, values []string) error {
	cells := append([]string{}, values...)
	counter := s.client.Collection(s.metaCollection).Doc(s.rowsCollection)

	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		lastRow := 0
		snap, err := tx.Get(counter)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			lastRow = getInt(snap.Data(), fieldLastRow)
		}

		next := lastRow + 1
		if err := tx.Set(counter, map[string]interface{}{fieldLastRow: next}); err != nil {
			return err
		}
		return tx.Create(s.rowDoc(next), map[string]interface{}{
			fieldRowIndex:  next,
			fieldCells:     cells,
			fieldUpdatedAt: firestore.ServerTimestamp,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// rowDoc zero-pads the id so documents also sort by row in the console
func (s *Storage) rowDoc(row int) *firestore.DocumentRef {
	return s.client.Collection(s.rowsCollection).Doc(fmt.Sprintf("row_%010d", row))
}

// Helper functions for type conversion

func getCells(data map[string]interface{}) []string {
	raw, ok := data[fieldCells].([]interface{})
	if !ok {
		return nil
	}
	cells := make([]string, len(raw))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			cells[i] = str
		}
	}
	return cells
}

func cellAt(cells []string, column int) string {
	if column > len(cells) {
		return ""
	}
	return cells[column-1]
}

func getInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
