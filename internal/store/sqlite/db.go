package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/store"
)

// Open opens (creating if needed) the database file at path with WAL,
// foreign keys, and a busy timeout. The pool is capped at a single
// connection: SQLite serializes writers anyway, and one connection
// avoids SQLITE_BUSY churn between pooled handles.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

// OpenStores opens both company databases, applies pending migrations,
// and returns the assembled store container. Mutations broadcast their
// events on events, which may be nil to disable emission.
func OpenStores(channelsPath, tasksPath string, events bus.EventPublisher) (*store.Stores, error) {
	channelsDB, err := Open(channelsPath)
	if err != nil {
		return nil, err
	}
	if err := Migrate(channelsDB, SetChannels); err != nil {
		channelsDB.Close()
		return nil, err
	}

	tasksDB, err := Open(tasksPath)
	if err != nil {
		channelsDB.Close()
		return nil, err
	}
	if err := Migrate(tasksDB, SetTasks); err != nil {
		channelsDB.Close()
		tasksDB.Close()
		return nil, err
	}

	return &store.Stores{
		Channels: NewSQLiteChannelStore(channelsDB, events),
		Tasks:    NewSQLiteTaskStore(tasksDB, events),
	}, nil
}
