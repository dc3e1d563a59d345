package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/timekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/filex"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
)

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

type sqliteBackend struct {
	db *sql.DB
}

func openSQLite(ctx context.Context, dsn string) (*sqliteBackend, error) {
	if path := filePath(dsn); path != "" {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if err := dbx.ExecAll(ctx, db,
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteBackend{db: db}, nil
}

// RunMigrations brings db up to the latest embedded schema version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// filePath extracts the filesystem path from a sqlite DSN, or "" for
// in-memory databases.
func filePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

func bind(db dbx.DBTX) Repositories {
	return Repositories{
		Entities: entities.NewSQLiteRepository(db),
		Actions:  actions.NewSQLiteRepository(db),
		Cache:    cache.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}
}

func (b *sqliteBackend) repos() Repositories { return bind(b.db) }

func (b *sqliteBackend) withTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := fn(ctx, bind(tx))
		if err != nil && !driverFailure(err) {
			return &callerError{err: err}
		}
		return err
	})
}

// driverFailure reports whether err came from the database itself, as
// opposed to a decision made by the transaction callback.
func driverFailure(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		errors.Is(err, driver.ErrBadConn)
}

func (b *sqliteBackend) close() error { return b.db.Close() }

func (b *sqliteBackend) durable() bool { return true }
