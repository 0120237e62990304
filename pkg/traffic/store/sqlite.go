package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/wiretap/pkg/traffic"
)

// SQLite driver names. DriverCGO is github.com/mattn/go-sqlite3 and
// DriverPureGo is modernc.org/sqlite.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/wiretap.db",
		Driver:       DriverCGO,
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteBackend implements Backend on a single SQLite table.
type SQLiteBackend struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteBackend opens the database and initializes the schema.
func NewSQLiteBackend(config *SQLiteConfig) (*SQLiteBackend, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, traffic.NewStorageError("sqlite", "open", fmt.Errorf("unsupported driver %q", config.Driver))
	}

	logger := slog.Default().With("component", "traffic.store.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, traffic.NewStorageError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	b := &SQLiteBackend{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite backend initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return b, nil
}

// initialize sets pragmas, creates the schema and checks its version.
func (b *SQLiteBackend) initialize() error {
	if b.config.WALMode {
		if _, err := b.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return traffic.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := b.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", b.config.BusyTimeout.Milliseconds())); err != nil {
		return traffic.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := b.db.Exec(Schema); err != nil {
		return traffic.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := b.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return traffic.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := b.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return traffic.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return traffic.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	b.logger.Debug("schema version verified", "version", version)
	return nil
}

// Name implements Backend.
func (b *SQLiteBackend) Name() string {
	return "sqlite"
}

// Get implements Backend.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, traffic.NewStorageError("sqlite", "get", errBackendClosed)
	}

	var value []byte
	err := b.db.QueryRowContext(ctx, selectValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, traffic.NewStorageError("sqlite", "get", err)
	}
	return value, true, nil
}

// Set implements Backend.
func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return traffic.NewStorageError("sqlite", "set", errBackendClosed)
	}

	if _, err := b.db.ExecContext(ctx, upsertValue, key, value, time.Now().UTC()); err != nil {
		return traffic.NewStorageError("sqlite", "set", err)
	}
	return nil
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.db.Close(); err != nil {
		return traffic.NewStorageError("sqlite", "close", err)
	}
	b.logger.Info("SQLite backend closed", "path", b.config.Path)
	return nil
}
