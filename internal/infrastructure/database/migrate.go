package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationFS embed.FS

type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// MigrationStatus reports the schema version after a migration step
type MigrationStatus struct {
	Version  uint
	Dirty    bool
	Changed  bool
	NoSchema bool
}

// Migrate applies the embedded migrations for the configured driver
func (db *DB) Migrate(direction MigrateDirection) (*MigrationStatus, error) {
	m, release, err := db.migrator()
	if err != nil {
		return nil, err
	}
	defer release()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("migration %s failed: %w", direction, err)
	}

	status, err := versionOf(m)
	if err != nil {
		return nil, err
	}
	status.Changed = changed
	return status, nil
}

// MigrationVersion returns the current schema version
func (db *DB) MigrationVersion() (*MigrationStatus, error) {
	m, release, err := db.migrator()
	if err != nil {
		return nil, err
	}
	defer release()
	return versionOf(m)
}

// migrationDB returns the pool migrations run on. Postgres gets its own
// single-connection pool, since the migrate driver holds a *sql.Conn until
// closed; owned reports whether the caller must close it. SQLite reuses the
// shared pool, which must stay open.
func (db *DB) migrationDB() (conn *sql.DB, owned bool, err error) {
	if db.config.Driver == DriverSQLite {
		return db.DB.DB, false, nil
	}
	conn, err = sql.Open(DriverPostgres, db.config.GetDSN())
	if err != nil {
		return nil, false, fmt.Errorf("failed to open migration connection: %w", err)
	}
	conn.SetMaxOpenConns(1)
	return conn, true, nil
}

func (db *DB) migrator() (*migrate.Migrate, func(), error) {
	sub, err := fs.Sub(migrationFS, "migrations/"+db.config.Driver)
	if err != nil {
		return nil, nil, fmt.Errorf("migrations for %s: %w", db.config.Driver, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	conn, owned, err := db.migrationDB()
	if err != nil {
		return nil, nil, err
	}

	var driver migratedb.Driver
	if owned {
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	} else {
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	}
	if err != nil {
		if owned {
			conn.Close()
		}
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, db.config.Driver, driver)
	if err != nil {
		if owned {
			driver.Close()
		}
		return nil, nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	release := func() {}
	if owned {
		// Closes the dedicated connection and its pool.
		release = func() { m.Close() }
	}
	return m, release, nil
}

func versionOf(m *migrate.Migrate) (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &MigrationStatus{NoSchema: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}
