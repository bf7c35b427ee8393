package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migration sets, one per database file.
const (
	SetChannels = "channels"
	SetTasks    = "tasks"
)

//go:embed migrations/channels/*.sql migrations/tasks/*.sql
var migrationsFS embed.FS

func newMigrator(db *sql.DB, set string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+set)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", set, err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Migrate applies all pending migrations from the named embedded set.
// Already up to date is not an error.
func Migrate(db *sql.DB, set string) error {
	m, err := newMigrator(db, set)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", set, err)
	}
	return nil
}

// Version reports the current schema version of the named set.
func Version(db *sql.DB, set string) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, set)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
