package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

const testProjectID = "test-project"

func setupFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), testProjectID)
	if err != nil {
		t.Fatalf("Failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// setupStorage uses unique collection names per test run
func setupStorage(t *testing.T) *Storage {
	t.Helper()
	suffix := time.Now().UnixNano()

	storage, err := New(setupFirestoreClient(t), Config{
		RowsCollection: fmt.Sprintf("test_rows_%d", suffix),
		MetaCollection: fmt.Sprintf("test_meta_%d", suffix),
	})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return storage
}

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("Expected error for nil client")
	}
}

func TestGetCells(t *testing.T) {
	cells := getCells(map[string]interface{}{"cells": []interface{}{"cus_1", nil, "Active"}})
	if len(cells) != 3 || cells[0] != "cus_1" || cells[1] != "" || cells[2] != "Active" {
		t.Errorf("Unexpected cells: %q", cells)
	}
	if cellAt(cells, 7) != "" {
		t.Error("Expected empty cell past the end of the row")
	}
	if getInt(map[string]interface{}{"rowIndex": int64(4)}, "rowIndex") != 4 {
		t.Error("Expected rowIndex 4")
	}
}

func TestStorage_AppendFindReadWrite(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	for _, r := range [][]string{
		{"Stripe Customer ID", "Company Name"},
		{"cus_A", "Alpha"},
		{" cus_B ", "Bravo"},
	} {
		if err := storage.AppendRow(ctx, r); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}

	row, ok, err := storage.Find(ctx, 1, "CUS_b")
	if err != nil || !ok || row != 3 {
		t.Fatalf("Expected row 3, got row=%d ok=%v err=%v", row, ok, err)
	}

	if err := storage.WriteCell(ctx, row, 5, "Cancelled"); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	cell, err := storage.ReadCell(ctx, row, 5)
	if err != nil || cell != "Cancelled" {
		t.Errorf("Expected Cancelled, got %q (err=%v)", cell, err)
	}
	cell, err = storage.ReadCell(ctx, row, 2)
	if err != nil || cell != "Bravo" {
		t.Errorf("Expected Bravo, got %q (err=%v)", cell, err)
	}
}

func TestStorage_OutOfRange(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	if err := storage.WriteCell(ctx, 9, 1, "x"); !errors.Is(err, sheetsync.ErrCellOutOfRange) {
		t.Errorf("Expected ErrCellOutOfRange, got %v", err)
	}
	if _, err := storage.ReadCell(ctx, 9, 1); !errors.Is(err, sheetsync.ErrCellOutOfRange) {
		t.Errorf("Expected ErrCellOutOfRange, got %v", err)
	}
}

func TestStorage_ConcurrentAppendsGetDistinctRows(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := storage.AppendRow(ctx, []string{fmt.Sprintf("cus_%d", i)}); err != nil {
				t.Errorf("AppendRow failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		if _, ok, err := storage.Find(ctx, 1, fmt.Sprintf("cus_%d", i)); err != nil || !ok {
			t.Errorf("Expected cus_%d to be stored (err=%v)", i, err)
		}
	}
	if _, err := storage.ReadCell(ctx, 10, 1); err != nil {
		t.Errorf("Expected row 10 to exist: %v", err)
	}
}
