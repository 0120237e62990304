// Package store provides the bounded record log and the durable key-value
// backends it is persisted in.
//
// # Persisted State
//
// Two keys are kept in the backend:
//
//   - "logs": JSON array of traffic.RequestRecord, newest first, at most
//     Capacity entries
//   - "isRecording": "true" or "false"; absent means false
//
// # Backends
//
//   - MemoryBackend: in-memory map for tests and ephemeral runs
//   - SQLiteBackend: single kv table, WAL mode, either the cgo driver
//     (github.com/mattn/go-sqlite3, "sqlite3") or the pure Go driver
//     (modernc.org/sqlite, "sqlite")
//
// # Basic Usage
//
//	backend, err := store.NewSQLiteBackend(&store.SQLiteConfig{
//	    Path:        "data/wiretap.db",
//	    Driver:      store.DriverPureGo,
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	log := store.NewLog(backend, store.DefaultCapacity)
//	records, err := log.Records(ctx)
//
// Log.Save is a read-merge-write. Concurrent Saves can lose updates, so all
// writes go through a serializer.Serializer.
package store
