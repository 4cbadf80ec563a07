package engine

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/store"
)

const (
	// DefaultLockTable is the lock-row table used by stores without session locks.
	DefaultLockTable = "__migration_lock"

	// DefaultLockTimeout bounds the wait for the migration lock.
	DefaultLockTimeout = 30 * time.Second

	lockPollInterval = 100 * time.Millisecond
)

// LockInfo describes the current holder of the migration lock.
type LockInfo struct {
	Locked   bool
	LockedBy string
	LockedAt *time.Time
}

// Locker serializes migration runs across processes.
type Locker interface {
	// Acquire waits up to timeout for the lock. It fails with ErrLockTimeout
	// when the wait runs out and ErrCancelled when ctx is done first.
	Acquire(ctx context.Context, timeout time.Duration) error

	// Release gives up a lock this Locker holds.
	Release(ctx context.Context) error

	// ForceRelease clears the lock whoever holds it.
	ForceRelease(ctx context.Context) error

	Info(ctx context.Context) (*LockInfo, error)
}

// NewLocker picks the lock mechanism for the store's dialect: advisory locks
// on PostgreSQL, named locks on MySQL and a lock-row table elsewhere.
func NewLocker(s store.Store, historyTable, lockTable string) Locker {
	owner := lockOwner()
	switch s.Dialect().Name() {
	case "postgres":
		return &advisoryLocker{store: s, key: lockKey(historyTable), owner: owner}
	case "mysql":
		name := "hisdb." + historyTable
		if len(name) > 64 {
			name = name[:64]
		}
		return &namedLocker{store: s, name: name, owner: owner}
	default:
		return &tableLocker{store: s, table: lockTable, owner: owner}
	}
}

// lockOwner identifies this process as host:pid:uuid.
func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString())
}

// lockKey derives a stable non-negative advisory lock key with FNV-1a.
func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("hisdb:" + name))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

// pollLock calls try until it succeeds, fails, or the wait runs out.
func pollLock(ctx context.Context, timeout time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return alerr.New(alerr.ErrLockTimeout, "timed out waiting for migration lock").
				With("timeout", timeout.String()).
				WithHelp("another migration may be running; if it crashed, run 'hisdb migrate unlock'")
		}

		timer := time.NewTimer(min(lockPollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return alerr.Wrap(alerr.ErrCancelled, ctx.Err(), "cancelled while waiting for migration lock")
		case <-timer.C:
		}
	}
}

// -----------------------------------------------------------------------------
// advisoryLocker - PostgreSQL session advisory lock
// -----------------------------------------------------------------------------

type advisoryLocker struct {
	store store.Store
	key   int64
	owner string
	conn  store.Conn
}

func (l *advisoryLocker) Acquire(ctx context.Context, timeout time.Duration) error {
	conn, err := l.store.Conn(ctx)
	if err != nil {
		return err
	}

	const query = "SELECT pg_try_advisory_lock($1)"
	err = pollLock(ctx, timeout, func() (bool, error) {
		var got bool
		if _, err := store.QueryValue(ctx, conn, &got, query, l.key); err != nil {
			return false, store.WrapError(err, query)
		}
		return got, nil
	})
	if err != nil {
		conn.Close()
		return err
	}

	l.conn = conn
	return nil
}

func (l *advisoryLocker) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()

	const query = "SELECT pg_advisory_unlock($1)"
	var released bool
	if _, err := store.QueryValue(ctx, l.conn, &released, query, l.key); err != nil {
		return store.WrapError(err, query)
	}
	return nil
}

// ForceRelease terminates the session holding the lock.
func (l *advisoryLocker) ForceRelease(ctx context.Context) error {
	const query = `SELECT pg_terminate_backend(pid) FROM pg_locks
WHERE locktype = 'advisory' AND classid = $1 AND objid = $2 AND objsubid = 1 AND granted`
	classID, objID := l.key>>32, l.key&0xFFFFFFFF
	if _, err := l.store.Exec(ctx, query, classID, objID); err != nil {
		return store.WrapError(err, query)
	}
	return nil
}

func (l *advisoryLocker) Info(ctx context.Context) (*LockInfo, error) {
	const query = `SELECT pid FROM pg_locks
WHERE locktype = 'advisory' AND classid = $1 AND objid = $2 AND objsubid = 1 AND granted`
	var pid int64
	found, err := store.QueryValue(ctx, l.store, &pid, query, l.key>>32, l.key&0xFFFFFFFF)
	if err != nil {
		return nil, store.WrapError(err, query)
	}
	if !found {
		return &LockInfo{}, nil
	}
	return &LockInfo{Locked: true, LockedBy: fmt.Sprintf("backend pid %d", pid)}, nil
}

// -----------------------------------------------------------------------------
// namedLocker - MySQL GET_LOCK
// -----------------------------------------------------------------------------

type namedLocker struct {
	store store.Store
	name  string
	owner string
	conn  store.Conn
}

func (l *namedLocker) Acquire(ctx context.Context, timeout time.Duration) error {
	conn, err := l.store.Conn(ctx)
	if err != nil {
		return err
	}

	const query = "SELECT GET_LOCK(?, 0)"
	err = pollLock(ctx, timeout, func() (bool, error) {
		var got sql.NullInt64
		if _, err := store.QueryValue(ctx, conn, &got, query, l.name); err != nil {
			return false, store.WrapError(err, query)
		}
		return got.Valid && got.Int64 == 1, nil
	})
	if err != nil {
		conn.Close()
		return err
	}

	l.conn = conn
	return nil
}

func (l *namedLocker) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()

	const query = "SELECT RELEASE_LOCK(?)"
	var released sql.NullInt64
	if _, err := store.QueryValue(ctx, l.conn, &released, query, l.name); err != nil {
		return store.WrapError(err, query)
	}
	return nil
}

// ForceRelease kills the connection holding the lock.
func (l *namedLocker) ForceRelease(ctx context.Context) error {
	info, holder, err := l.holder(ctx)
	if err != nil || !info.Locked {
		return err
	}
	stmt := fmt.Sprintf("KILL %d", holder)
	if _, err := l.store.Exec(ctx, stmt); err != nil {
		return store.WrapError(err, stmt)
	}
	return nil
}

func (l *namedLocker) Info(ctx context.Context) (*LockInfo, error) {
	info, _, err := l.holder(ctx)
	return info, err
}

func (l *namedLocker) holder(ctx context.Context) (*LockInfo, int64, error) {
	const query = "SELECT IS_USED_LOCK(?)"
	var id sql.NullInt64
	if _, err := store.QueryValue(ctx, l.store, &id, query, l.name); err != nil {
		return nil, 0, store.WrapError(err, query)
	}
	if !id.Valid {
		return &LockInfo{}, 0, nil
	}
	return &LockInfo{Locked: true, LockedBy: fmt.Sprintf("connection %d", id.Int64)}, id.Int64, nil
}

// -----------------------------------------------------------------------------
// tableLocker - lock row in a dedicated table
// -----------------------------------------------------------------------------

// tableLocker holds the lock by owning the single row of the lock table.
// A primary-key conflict on insert means someone else holds it.
type tableLocker struct {
	store store.Store
	table string
	owner string
	held  bool
}

func (l *tableLocker) tableDef() *ast.CreateTable {
	return &ast.CreateTable{TableDef: ast.TableDef{
		Name: l.table,
		Columns: []*ast.ColumnDef{
			{Name: "Id", Type: ast.TypeInt},
			{Name: "LockedBy", Type: ast.TypeString, MaxLength: 255},
			{Name: "LockedAt", Type: ast.TypeDateTime},
		},
		PrimaryKey: []string{"Id"},
	}}
}

// EnsureTable creates the lock table if it doesn't exist.
func (l *tableLocker) EnsureTable(ctx context.Context) error {
	stmt, err := l.store.Dialect().CreateTableIfNotExistsSQL(l.tableDef())
	if err != nil {
		return err
	}
	if _, err := l.store.Exec(ctx, stmt); err != nil {
		return store.WrapError(err, stmt).WithTable(l.table)
	}
	return nil
}

func (l *tableLocker) Acquire(ctx context.Context, timeout time.Duration) error {
	if err := l.EnsureTable(ctx); err != nil {
		return err
	}

	d := l.store.Dialect()
	q := d.QuoteIdent
	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (1, %s, %s)",
		q(l.table), q("Id"), q("LockedBy"), q("LockedAt"), d.Placeholder(1), d.Placeholder(2))

	sawFree := false
	err := pollLock(ctx, timeout, func() (bool, error) {
		now := time.Now().UTC().Format(sqliteTimeFormat)
		_, insertErr := l.store.Exec(ctx, query, l.owner, now)
		if insertErr == nil {
			return true, nil
		}
		// A free row after a failed insert means the holder released it in
		// between. Retry once; a second failure on a free row is real.
		info, err := l.Info(ctx)
		if err != nil {
			return false, err
		}
		if !info.Locked && !sawFree {
			sawFree = true
			return false, nil
		}
		if !info.Locked {
			return false, store.WrapError(insertErr, query)
		}
		sawFree = false
		return false, nil
	})
	if err != nil {
		return err
	}

	l.held = true
	return nil
}

func (l *tableLocker) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	d := l.store.Dialect()
	q := d.QuoteIdent
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = 1 AND %s = %s",
		q(l.table), q("Id"), q("LockedBy"), d.Placeholder(1))
	if _, err := l.store.Exec(ctx, query, l.owner); err != nil {
		return store.WrapError(err, query)
	}
	l.held = false
	return nil
}

func (l *tableLocker) ForceRelease(ctx context.Context) error {
	if err := l.EnsureTable(ctx); err != nil {
		return err
	}
	query := "DELETE FROM " + l.store.Dialect().QuoteIdent(l.table)
	if _, err := l.store.Exec(ctx, query); err != nil {
		return store.WrapError(err, query)
	}
	l.held = false
	return nil
}

func (l *tableLocker) Info(ctx context.Context) (*LockInfo, error) {
	exists, err := tableExists(ctx, l.store, l.table)
	if err != nil || !exists {
		return &LockInfo{}, err
	}

	q := l.store.Dialect().QuoteIdent
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = 1",
		q("LockedBy"), q("LockedAt"), q(l.table), q("Id"))

	rows, err := l.store.Query(ctx, query)
	if err != nil {
		return nil, store.WrapError(err, query)
	}
	defer rows.Close()

	if !rows.Next() {
		return &LockInfo{}, rows.Err()
	}
	var by string
	var at any
	if err := rows.Scan(&by, &at); err != nil {
		return nil, alerr.Wrap(alerr.ErrStore, err, "failed to scan lock row")
	}
	lockedAt := parseAppliedAt(at)
	return &LockInfo{Locked: true, LockedBy: by, LockedAt: &lockedAt}, rows.Err()
}
