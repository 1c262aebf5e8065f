package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store holds the catalog's durable state: admin accounts and products.
// It is backed by SQLite (the default), PostgreSQL, or MySQL and is the
// only place the rest of the application touches the database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Config selects the database engine. Driver is one of "sqlite", "postgres",
// or "mysql". For sqlite an empty DSN means in-memory; otherwise DSN is the
// database file path (a DataDir default is applied by the caller). The
// postgres DSN is passed to the driver unchanged; the mysql DSN is
// normalized by mysqlDSN before use.
type Config struct {
	Driver string
	DSN    string
}

// Open connects to the configured database and runs migrations. Pass a zero
// Config for an in-memory SQLite store (used by tests).
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}

	case "postgres":
		db, err = sqlx.Connect("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}

	case "mysql":
		db, err = sqlx.Connect("mysql", mysqlDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// mysqlDSN appends the connection parameters the store depends on.
// parseTime=true makes DATETIME columns scan into time.Time, and
// clientFoundRows=true makes RowsAffected report matched rows rather
// than changed rows, so an UPDATE that writes identical values is not
// mistaken for a missing row.
func mysqlDSN(dsn string) string {
	for _, param := range []string{"parseTime=true", "clientFoundRows=true"} {
		key := param[:strings.IndexByte(param, '=')]
		if strings.Contains(dsn, key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + param
	}
	return dsn
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive. Used by the readiness probe.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// isDuplicate reports whether err is a unique-constraint violation. Each
// engine phrases it differently; matching on the message is what the drivers
// leave us.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
