// Package sqlbackend resolves identity records with the SQL queries of the configuration.
package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register the database/sql drivers selectable in the configuration.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/config"
	"github.com/ubuntu/nss-sql/log"
)

// ErrNotConfigured is returned when opening a category without connection string.
var ErrNotConfigured = errors.New("no connection configured")

// Backend is a [backend.Backend] over database/sql.
type Backend struct {
	cfg   config.Config
	conns map[backend.Category]*conn
}

// conn is the open connection of a category.
type conn struct {
	db *sql.DB

	// rows is the cursor of the prepared enumeration, if any.
	rows  *sql.Rows
	query backend.Query
}

// queryable is implemented by *sql.DB and *sql.Conn.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New returns a backend running the queries of cfg.
func New(cfg config.Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Backend{
		cfg:   cfg,
		conns: make(map[backend.Category]*conn),
	}, nil
}

// Open implements [backend.Backend].
func (b *Backend) Open(ctx context.Context, c backend.Category) (err error) {
	defer decorate.OnError(&err, "could not open %v connection", c)

	if b.IsOpen(c) {
		return nil
	}

	dsn := b.cfg.ConnectionString
	if c == backend.CategoryShadow {
		dsn = b.cfg.Shadow.ConnectionString
	}
	if dsn == "" {
		return ErrNotConfigured
	}

	db, err := sql.Open(b.cfg.Driver, dsn)
	if err != nil {
		return err
	}
	// Group members are read while the groups cursor holds the first connection.
	maxConns := 1
	if c == backend.CategoryUserGroup {
		maxConns = 2
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if b.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(b.cfg.ConnectTimeout)*time.Second)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Warningf(ctx, "Failed to release %v connection: %v", c, closeErr)
		}
		return err
	}

	b.conns[c] = &conn{db: db}
	return nil
}

// IsOpen implements [backend.Backend].
func (b *Backend) IsOpen(c backend.Category) bool {
	_, ok := b.conns[c]
	return ok
}

// Close implements [backend.Backend].
func (b *Backend) Close(c backend.Category) (err error) {
	defer decorate.OnError(&err, "could not close %v connection", c)

	cn, ok := b.conns[c]
	if !ok {
		return nil
	}
	delete(b.conns, c)

	cn.endEnumeration()
	return cn.db.Close()
}

// Prepare implements [backend.Backend].
func (b *Backend) Prepare(ctx context.Context, c backend.Category, q backend.Query) (err error) {
	defer decorate.OnError(&err, "could not prepare %v enumeration", q)

	cn, ok := b.conns[c]
	if !ok {
		return backend.ErrNotOpen
	}
	if q.Category() != c {
		return fmt.Errorf("query %v can't run on %v connection", q, c)
	}
	cn.endEnumeration()

	var query string
	switch q {
	case backend.QueryAllUsers:
		query = b.cfg.AllUsers
	case backend.QueryAllGroups:
		query = b.cfg.AllGroups
	case backend.QueryAllShadow:
		query = b.cfg.Shadow.All
	default:
		return fmt.Errorf("unknown query %q", q)
	}

	rows, err := cn.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query error: %w", err)
	}
	cn.rows, cn.query = rows, q
	return nil
}

// EndEnumeration implements [backend.Backend].
func (b *Backend) EndEnumeration(c backend.Category) {
	if cn, ok := b.conns[c]; ok {
		cn.endEnumeration()
	}
}

func (cn *conn) endEnumeration() {
	if cn.rows == nil {
		return
	}
	closeRows(cn.rows)
	cn.rows, cn.query = nil, ""
}

// cursor returns the open cursor of the query.
func (b *Backend) cursor(q backend.Query) (*conn, error) {
	cn, ok := b.conns[q.Category()]
	if !ok {
		return nil, backend.ErrNotOpen
	}
	if cn.rows == nil || cn.query != q {
		return nil, backend.ErrNotPrepared
	}
	return cn, nil
}

// advance moves the cursor of the query to its next row.
func (b *Backend) advance(q backend.Query) (*conn, error) {
	cn, err := b.cursor(q)
	if err != nil {
		return nil, err
	}
	if cn.rows.Next() {
		return cn, nil
	}
	if err := cn.rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return nil, backend.NewNoDataFoundError(string(q), "")
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Warningf(context.Background(), "failed to close rows: %v", err)
	}
}

// db returns the connection of the category to run a single query on.
func (b *Backend) db(c backend.Category) (queryable, error) {
	cn, ok := b.conns[c]
	if !ok {
		return nil, backend.ErrNotOpen
	}
	return cn.db, nil
}
