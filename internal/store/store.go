// Package store is the narrow database surface the migration engine runs on.
// A Store executes statements, opens transactions and hands out dedicated
// sessions for session-scoped locks. SQL adapts any *sql.DB.
package store

import (
	"context"
	"database/sql"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/dialect"
)

// Rows is the result cursor of a query. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Execer runs statements and queries.
type Execer interface {
	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Tx is an open transaction.
type Tx interface {
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	Commit() error
	Rollback() error
}

// Conn is a dedicated session. Session-scoped state such as advisory
// locks lives exactly as long as the Conn.
type Conn interface {
	Execer
	Close() error
}

// Store is the database the engine migrates.
type Store interface {
	Execer

	// Dialect renders SQL for this store.
	Dialect() dialect.Dialect

	Begin(ctx context.Context) (Tx, error)
	Conn(ctx context.Context) (Conn, error)
}

// -----------------------------------------------------------------------------
// SQL - database/sql adapter
// -----------------------------------------------------------------------------

// SQL adapts a *sql.DB to the Store interface.
type SQL struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// New wraps db. The dialect decides how SQL is rendered for it.
func New(db *sql.DB, d dialect.Dialect) *SQL {
	return &SQL{db: db, dialect: d}
}

// DB returns the underlying database handle.
func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) Dialect() dialect.Dialect {
	return s.dialect
}

// Close closes the underlying database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execResult(s.db.ExecContext(ctx, query, args...))
}

func (s *SQL) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLTransaction, err, "failed to begin transaction")
	}
	return &sqlTx{tx: tx}, nil
}

func (s *SQL) Conn(ctx context.Context) (Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrSQLConnection, err, "failed to open dedicated connection")
	}
	return &sqlConn{conn: conn}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	return execResult(t.tx.ExecContext(ctx, stmt, args...))
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execResult(c.conn.ExecContext(ctx, query, args...))
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *sqlConn) Close() error {
	return c.conn.Close()
}

// execResult converts a sql.Result into a rows-affected count.
// Drivers that cannot report it yield 0.
func execResult(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// QueryValue runs a query expected to return a single value and scans it
// into dest. It reports false when the query returned no rows.
func QueryValue(ctx context.Context, e Execer, dest any, query string, args ...any) (bool, error) {
	rows, err := e.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(dest); err != nil {
		return false, err
	}
	return true, rows.Err()
}
