/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * MySQL/MariaDB backend for the generic database layer
 */

package mysql

import (
	"context"
	"database/sql"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/sqlgen"
)

const BackendName = "mysql"

const (
	DefaultHost           = "localhost"
	DefaultPort           = 3306
	DefaultConnectTimeout = 30 * time.Second
)

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
	tx           *sql.Tx
	conf         *mysql.Config
	lastInsertID int64
}

// Config translates the backend configuration (host, user, pass, db, port,
// timeout) into a driver configuration. A host starting with "/" is taken
// as a unix socket path.
func Config(cfg *db.ConfigurationList) (*mysql.Config, error) {
	dbname, _ := cfg.Value("db")
	if dbname == "" {
		return nil, db.Errorf("mysql: no database name configured")
	}
	host, _ := cfg.Value("host")
	if host == "" {
		host = DefaultHost
	}
	port, err := cfg.Int("port", DefaultPort)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Seconds("timeout", DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}

	c := mysql.NewConfig()
	c.User, _ = cfg.Value("user")
	c.Passwd, _ = cfg.Value("pass")
	c.DBName = dbname
	c.Timeout = timeout
	if strings.HasPrefix(host, "/") {
		c.Net = "unix"
		c.Addr = host
	} else {
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return c, nil
}

func (b *Backend) Connect(ctx context.Context, cfg *db.ConfigurationList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DB != nil {
		return db.Errorf("mysql: already connected")
	}
	conf, err := Config(cfg)
	if err != nil {
		return err
	}
	b.conf = conf
	return b.open(ctx)
}

// open must be called with b.mu held.
func (b *Backend) open(ctx context.Context) error {
	connector, err := mysql.NewConnector(b.conf)
	if err != nil {
		return db.Errorf("mysql: bad configuration: %v", err)
	}
	mdb := sql.OpenDB(connector)
	if err := mdb.PingContext(ctx); err != nil {
		mdb.Close()
		return db.Errorf("mysql: cannot connect to %s/%s: %v", b.conf.Addr, b.conf.DBName, err)
	}
	b.DB = mdb
	return nil
}

func (b *Backend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DB == nil {
		return nil
	}
	if b.tx != nil {
		log.Printf("mysql: disconnecting with open transaction, rolling back")
		b.tx.Rollback()
		b.tx = nil
	}
	err := b.DB.Close()
	b.DB = nil
	if err != nil {
		return db.Errorf("mysql: error closing connection: %v", err)
	}
	return nil
}

// checkConnection probes the server before a statement is prepared and
// reconnects once if the probe fails. Inside a transaction there is nothing
// to reconnect to, so the probe failure is returned.
func (b *Backend) checkConnection(ctx context.Context) (querier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DB == nil {
		return nil, db.Errorf("mysql: not connected")
	}
	if b.tx != nil {
		return b.tx, nil
	}
	if err := b.DB.PingContext(ctx); err == nil {
		return b.DB, nil
	} else {
		log.Printf("mysql: connection check failed (%v), reconnecting", err)
	}
	b.DB.Close()
	b.DB = nil
	if err := b.open(ctx); err != nil {
		return nil, err
	}
	return b.DB, nil
}

func (b *Backend) exec(ctx context.Context, query string, args []interface{}) (sql.Result, error) {
	q, err := b.checkConnection(ctx)
	if err != nil {
		return nil, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, db.Errorf("mysql: error executing %q: %v", query, err)
	}
	return res, nil
}

func (b *Backend) affected(res sql.Result, query string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, db.Errorf("mysql: %q: cannot get affected rows: %v", query, err)
	}
	return n, nil
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
	n, err := b.affected(res, s.SQL())
	if err != nil {
		return err
	}
	if n != 1 {
		return db.Errorf("mysql: insert into %s affected %d rows", obj.Table(), n)
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

func (b *Backend) revisioned(res sql.Result, s *sqlgen.Statement, obj *db.Object, rev *sqlgen.Revision) error {
	if rev == nil {
		return nil
	}
	n, err := b.affected(res, s.SQL())
	if err != nil {
		return err
	}
	if n < 1 {
		log.Printf("mysql: %s: no row with %s=%d, stale revision", obj.Table(), rev.Field.Name, rev.Old)
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
	return b.revisioned(res, s, obj, rev)
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
	return b.revisioned(res, s, obj, rev)
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
		return 0, db.Errorf("mysql: %q returned no row", s.SQL())
	}
	return sqlgen.CountFromRow(vs)
}

func (b *Backend) TransactionBegin(ctx context.Context) error {
	if _, err := b.checkConnection(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx != nil {
		return db.Errorf("mysql: transaction already in progress")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return db.Errorf("mysql: error beginning transaction: %v", err)
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
		return db.Errorf("mysql: %s without transaction", what)
	}
	if err := end(tx); err != nil {
		return db.Errorf("mysql: error from transaction %s: %v", what, err)
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
		return 0, db.Errorf("mysql: no insert id available")
	}
	return b.lastInsertID, nil
}

func (b *Backend) Exec(ctx context.Context, stmt string) error {
	_, err := b.exec(ctx, stmt, nil)
	return err
}
