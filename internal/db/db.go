package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coregx/relica"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Supported driver names. "sqlite3" is mattn/go-sqlite3 (cgo), "sqlite" is
// the pure-Go modernc.org/sqlite.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is the storage layer. Every query goes through the embedded relica
// query builder; the raw *sql.DB is kept for pinging and schema setup.
type DB struct {
	*relica.DB

	sqlDB  *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) { db.logger = logger }
}

// WithClock replaces time.Now for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// Init opens the database, verifies the connection and creates any missing
// tables.
func Init(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	if !SupportedDriver(driver) {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, withDriverParams(driver, dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isSQLite(driver) && strings.Contains(dsn, ":memory:") {
		// Every pooled connection would get its own private in-memory database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{
		DB:     relica.WrapDB(sqlDB, driver),
		sqlDB:  sqlDB,
		driver: driver,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.createTables(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// SupportedDriver reports whether driver is one Init accepts.
func SupportedDriver(driver string) bool {
	switch driver {
	case DriverSQLite3, DriverSQLite, DriverPostgres:
		return true
	}
	return false
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sqlDB.PingContext(ctx)
}

// Driver returns the driver name the database was opened with.
func (db *DB) Driver() string {
	return db.driver
}

func isSQLite(driver string) bool {
	return driver == DriverSQLite3 || driver == DriverSQLite
}

// withDriverParams enables foreign keys and a busy timeout for SQLite DSNs
// that do not already carry parameters.
func withDriverParams(driver, dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	switch driver {
	case DriverSQLite3:
		return dsn + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	case DriverSQLite:
		return dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return dsn
}

func (db *DB) createTables(ctx context.Context) error {
	queries := sqliteSchema
	if db.driver == DriverPostgres {
		queries = postgresSchema
	}

	for _, query := range queries {
		if _, err := db.sqlDB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// builder returns a query builder bound to ctx.
func (db *DB) builder(ctx context.Context) *relica.QueryBuilder {
	return db.Builder().WithContext(ctx)
}

// withTx runs fn inside a transaction, rolling back if fn returns an error.
func (db *DB) withTx(ctx context.Context, fn func(qb *relica.QueryBuilder) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.Builder().WithContext(ctx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation checks the driver-specific error types for a unique
// constraint failure.
func isUniqueViolation(err error) bool {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			mattnErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		return modernErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			modernErr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// escapeLike escapes LIKE wildcards so user input matches literally.
// Pair with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// inChunks calls fn for successive slices of ids, keeping IN lists under
// SQLite's bound-parameter limit.
func inChunks(ids []interface{}, fn func(chunk []interface{}) error) error {
	const chunkSize = 500
	for i := 0; i < len(ids); i += chunkSize {
		end := i + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[i:end]); err != nil {
			return err
		}
	}
	return nil
}
