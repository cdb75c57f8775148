/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * SQLite backend for the generic database layer
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/sqlgen"
)

const BackendName = "sqlite"

const (
	DefaultTimeout = 5 * time.Second
	DefaultUsleep  = 10 * time.Millisecond
)

// Register makes the backend available in rt under BackendName.
func Register(rt *db.Runtime) {
	rt.Register(BackendName, New)
}

func New(rt *db.Runtime) db.Backend {
	return &Backend{rt: rt}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type Backend struct {
	rt *db.Runtime

	mu           sync.Mutex
	DB           *sql.DB
	conn         *sql.Conn // the one sqlite3 handle every statement runs on
	tx           *sql.Tx
	cursors      map[*cursor]struct{}
	file         string
	timeout      time.Duration
	usleep       time.Duration
	lastInsertID int64
}

// DSN opens the file read-write (never creating it) with the serialized
// threading mode. The driver's own busy timeout is disabled; waiting for
// locks is done on the runtime's busy coordinator instead.
func DSN(file string) string {
	return fmt.Sprintf("file:%s?mode=rw&_mutex=full&_busy_timeout=0", file)
}

func (b *Backend) Connect(ctx context.Context, cfg *db.ConfigurationList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DB != nil {
		return db.Errorf("sqlite: already connected to %s", b.file)
	}

	file, _ := cfg.Value("file")
	if file == "" {
		return db.Errorf("sqlite: no database file configured")
	}
	if _, err := os.Stat(file); err != nil {
		return db.Errorf("sqlite: database file %s: %v", file, err)
	}
	timeout, err := cfg.Seconds("timeout", DefaultTimeout)
	if err != nil {
		return err
	}
	usleep, err := cfg.Int("usleep", int(DefaultUsleep/time.Microsecond))
	if err != nil {
		return err
	}

	sdb, err := sql.Open("sqlite3", DSN(file))
	if err != nil {
		return db.Errorf("sqlite: error from sql.Open(%s): %v", file, err)
	}
	b.file = file
	b.timeout = timeout
	b.usleep = time.Duration(usleep) * time.Microsecond
	b.DB = sdb

	if err := b.retry(ctx, "ping", func() error { return sdb.PingContext(ctx) }); err != nil {
		sdb.Close()
		b.DB = nil
		return db.Errorf("sqlite: cannot open %s: %v", file, err)
	}

	// Open cursors and later writes must share one handle, or the cursor's
	// SHARED lock blocks the write on a second handle until the busy timeout.
	conn, err := sdb.Conn(ctx)
	if err != nil {
		sdb.Close()
		b.DB = nil
		return db.Errorf("sqlite: cannot get connection to %s: %v", file, err)
	}
	b.conn = conn
	return nil
}

func (b *Backend) Disconnect() error {
	// closing the pinned connection waits for its open rows
	b.mu.Lock()
	open := b.cursors
	b.cursors = nil
	b.mu.Unlock()
	for c := range open {
		log.Printf("sqlite: disconnecting with open cursor on %q, closing it", c.stmt.SQL())
		c.close()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DB == nil {
		return nil
	}
	if b.tx != nil {
		log.Printf("sqlite: disconnecting with open transaction, rolling back")
		b.tx.Rollback()
		b.tx = nil
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			log.Printf("sqlite: error releasing connection to %s: %v", b.file, err)
		}
		b.conn = nil
	}
	err := b.DB.Close()
	b.DB = nil
	b.rt.BusyBroadcast()
	if err != nil {
		return db.Errorf("sqlite: error closing %s: %v", b.file, err)
	}
	return nil
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// retry runs op until it stops reporting SQLITE_BUSY/SQLITE_LOCKED or the
// configured timeout has passed, parking on the busy coordinator between
// attempts.
func (b *Backend) retry(ctx context.Context, what string, op func() error) error {
	deadline := time.Now().Add(b.timeout)
	for {
		err := op()
		if err == nil || !isBusy(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if !b.rt.BusyWait(deadline, b.usleep) {
			log.Printf("sqlite: %s: database busy for more than %v, giving up", what, b.timeout)
			return err
		}
	}
}

func (b *Backend) querier() (querier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil, db.Errorf("sqlite: not connected")
	}
	if b.tx != nil {
		return b.tx, nil
	}
	return b.conn, nil
}

func (b *Backend) exec(ctx context.Context, query string, args []interface{}) (sql.Result, error) {
	q, err := b.querier()
	if err != nil {
		return nil, err
	}
	var res sql.Result
	err = b.retry(ctx, query, func() error {
		var err error
		res, err = q.ExecContext(ctx, query, args...)
		return err
	})
	b.rt.BusyBroadcast()
	if err != nil {
		return nil, db.Errorf("sqlite: error executing %q: %v", query, err)
	}
	return res, nil
}

func (b *Backend) query(ctx context.Context, s *sqlgen.Statement) (*sql.Rows, error) {
	q, err := b.querier()
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	err = b.retry(ctx, s.SQL(), func() error {
		var err error
		rows, err = q.QueryContext(ctx, s.SQL(), s.Args()...)
		return err
	})
	if err != nil {
		return nil, db.Errorf("sqlite: error preparing %q: %v", s.SQL(), err)
	}
	return rows, nil
}

func (b *Backend) Create(ctx context.Context, obj *db.Object, fields *db.ObjectFieldList, values *db.ValueSet) error {
	s, err := sqlgen.Insert(sqlgen.QuestionMark, obj, fields, values)
	if err != nil {
		return err
	}
	res, err := b.exec(ctx, s.SQL(), s.Args())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		b.mu.Lock()
		b.lastInsertID = id
		b.mu.Unlock()
	}
	return nil
}

func (b *Backend) Read(ctx context.Context, obj *db.Object, fields *db.ObjectFieldList, joins *db.JoinList, clauses *db.ClauseList) (*db.ResultList, error) {
	s, fields, err := sqlgen.Select(sqlgen.QuestionMark, obj, fields, joins, clauses)
	if err != nil {
		return nil, err
	}
	c, err := b.openCursor(ctx, s, fields)
	if err != nil {
		return nil, err
	}
	return db.NewResultList(c.next), nil
}

// changes is the sqlite3_changes() check for revisioned statements.
func changes(res sql.Result, obj *db.Object, rev *sqlgen.Revision) error {
	if rev == nil {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.Errorf("sqlite: %s: cannot get affected rows: %v", obj.Table(), err)
	}
	if n < 1 {
		log.Printf("sqlite: %s: no row with %s=%d, stale revision", obj.Table(), rev.Field.Name, rev.Old)
		return db.ErrStaleRevision
	}
	return nil
}

func (b *Backend) Update(ctx context.Context, obj *db.Object, fields *db.ObjectFieldList, values *db.ValueSet, clauses *db.ClauseList) error {
	s, rev, err := sqlgen.Update(sqlgen.QuestionMark, obj, fields, values, clauses)
	if err != nil {
		return err
	}
	res, err := b.exec(ctx, s.SQL(), s.Args())
	if err != nil {
		return err
	}
	return changes(res, obj, rev)
}

func (b *Backend) Delete(ctx context.Context, obj *db.Object, clauses *db.ClauseList) error {
	s, rev, err := sqlgen.Delete(sqlgen.QuestionMark, obj, clauses)
	if err != nil {
		return err
	}
	res, err := b.exec(ctx, s.SQL(), s.Args())
	if err != nil {
		return err
	}
	return changes(res, obj, rev)
}

func (b *Backend) Count(ctx context.Context, obj *db.Object, joins *db.JoinList, clauses *db.ClauseList) (uint32, error) {
	s, err := sqlgen.Count(sqlgen.QuestionMark, obj, joins, clauses)
	if err != nil {
		return 0, err
	}
	c, err := b.openCursor(ctx, s, sqlgen.CountFields())
	if err != nil {
		return 0, err
	}
	defer c.next(true)
	vs, err := c.next(false)
	if err != nil {
		return 0, err
	}
	if vs == nil {
		return 0, db.Errorf("sqlite: %q returned no row", s.SQL())
	}
	return sqlgen.CountFromRow(vs)
}

func (b *Backend) TransactionBegin(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return db.Errorf("sqlite: not connected")
	}
	if b.tx != nil {
		return db.Errorf("sqlite: transaction already in progress")
	}
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return db.Errorf("sqlite: error beginning transaction: %v", err)
	}
	b.tx = tx
	return nil
}

func (b *Backend) endTransaction(what string, end func(*sql.Tx) error) error {
	b.mu.Lock()
	tx := b.tx
	b.tx = nil
	b.mu.Unlock()
	if tx == nil {
		return db.Errorf("sqlite: %s without transaction", what)
	}
	err := end(tx)
	b.rt.BusyBroadcast()
	if err != nil {
		return db.Errorf("sqlite: error from transaction %s: %v", what, err)
	}
	return nil
}

func (b *Backend) TransactionCommit() error {
	return b.endTransaction("commit", (*sql.Tx).Commit)
}

func (b *Backend) TransactionRollback() error {
	return b.endTransaction("rollback", (*sql.Tx).Rollback)
}

func (b *Backend) LastInsertID() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastInsertID == 0 {
		return 0, db.Errorf("sqlite: no insert id available")
	}
	return b.lastInsertID, nil
}

func (b *Backend) Exec(ctx context.Context, stmt string) error {
	_, err := b.exec(ctx, stmt, nil)
	return err
}
