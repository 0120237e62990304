package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTempDB creates a temporary SQLite backend for testing.
func createTempDB(t *testing.T, driver string) (*SQLiteBackend, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	backend, err := NewSQLiteBackend(&SQLiteConfig{
		Path:         dbPath,
		Driver:       driver,
		MaxOpenConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	return backend, dbPath
}

func TestSQLiteBackend_Drivers(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			backend, dbPath := createTempDB(t, driver)
			ctx := context.Background()

			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				t.Error("Database file was not created")
			}

			if _, ok, err := backend.Get(ctx, "missing"); err != nil || ok {
				t.Errorf("expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := backend.Set(ctx, "k", []byte("one")); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			if err := backend.Set(ctx, "k", []byte("two")); err != nil {
				t.Fatalf("Set() upsert failed: %v", err)
			}

			got, ok, err := backend.Get(ctx, "k")
			if err != nil || !ok {
				t.Fatalf("Get() failed: ok=%v err=%v", ok, err)
			}
			if string(got) != "two" {
				t.Errorf("expected %q, got %q", "two", got)
			}
		})
	}
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wiretap.db")
	ctx := context.Background()

	cfg := DefaultSQLiteConfig()
	cfg.Path = dbPath

	first, err := NewSQLiteBackend(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteBackend() failed: %v", err)
	}
	log := NewLog(first, 0)
	if _, err := log.Save(ctx, newRecord("1", "https://api.x/1")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := log.SetRecording(ctx, true); err != nil {
		t.Fatalf("SetRecording() failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteBackend(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	log = NewLog(second, 0)
	records, err := log.Records(ctx)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "1" {
		t.Errorf("expected persisted record, got %v", records)
	}
	if on, _ := log.Recording(ctx); !on {
		t.Error("expected recording flag to persist")
	}
}

func TestSQLiteBackend_UnsupportedDriver(t *testing.T) {
	_, err := NewSQLiteBackend(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSQLiteBackend_ClosedErrors(t *testing.T) {
	backend, _ := createTempDB(t, DriverPureGo)
	if err := backend.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Errorf("second Close() should be a no-op, got %v", err)
	}
	if err := backend.Set(context.Background(), "k", nil); err == nil {
		t.Error("expected error after Close")
	}
}
