/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package mysql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanix/odsdb/db"
)

func confList(t *testing.T, kv ...string) *db.ConfigurationList {
	cfg := db.NewConfigurationList()
	require.NoError(t, cfg.Add("backend", BackendName))
	for i := 0; i+1 < len(kv); i += 2 {
		require.NoError(t, cfg.Add(kv[i], kv[i+1]))
	}
	return cfg
}

func TestConfig(t *testing.T) {
	c, err := Config(confList(t, "db", "kasp", "user", "ods", "pass", "secret"))
	require.NoError(t, err)
	assert.Equal(t, "tcp", c.Net)
	assert.Equal(t, "localhost:3306", c.Addr)
	assert.Equal(t, "ods", c.User)
	assert.Equal(t, "secret", c.Passwd)
	assert.Equal(t, "kasp", c.DBName)
	assert.Equal(t, DefaultConnectTimeout, c.Timeout)

	c, err = Config(confList(t, "db", "kasp", "host", "db.example.net", "port", "3307", "timeout", "5"))
	require.NoError(t, err)
	assert.Equal(t, "db.example.net:3307", c.Addr)
	assert.Equal(t, 5*time.Second, c.Timeout)

	c, err = Config(confList(t, "db", "kasp", "host", "/run/mysqld/mysqld.sock"))
	require.NoError(t, err)
	assert.Equal(t, "unix", c.Net)
	assert.Equal(t, "/run/mysqld/mysqld.sock", c.Addr)

	_, err = Config(confList(t, "host", "localhost"))
	assert.ErrorIs(t, err, db.ErrUnknown)

	_, err = Config(confList(t, "db", "kasp", "port", "many"))
	assert.ErrorIs(t, err, db.ErrUnknown)
}

func TestNotConnected(t *testing.T) {
	b := New(db.NewRuntime())
	assert.ErrorIs(t, b.TransactionBegin(context.Background()), db.ErrUnknown)
	assert.ErrorIs(t, b.TransactionCommit(), db.ErrUnknown)
	require.NoError(t, b.Disconnect())
}

func TestAnyDecoderTextProtocol(t *testing.T) {
	decode := anyDecoder(nil)

	v, err := decode(0, nil)
	require.NoError(t, err)
	assert.False(t, v.NotEmpty())

	v, err = decode(0, int64(-5))
	require.NoError(t, err)
	n, _ := v.Int64()
	assert.Equal(t, int64(-5), n)

	v, err = decode(0, uint64(1<<63))
	require.NoError(t, err)
	u, _ := v.Uint64()
	assert.Equal(t, uint64(1<<63), u)

	// without column metadata bytes stay text
	v, err = decode(0, []byte("42"))
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "42", s)

	_, err = decode(0, 3.14)
	assert.ErrorIs(t, err, db.ErrUnknown)
}

func TestAnyDecoderColumnTypes(t *testing.T) {
	decode := anyDecoder([]string{"UNSIGNED BIGINT", "INT", "VARCHAR"})

	// binary protocol: small unsigned as int64, large unsigned as text
	v, err := decode(0, int64(7))
	require.NoError(t, err)
	u, err := v.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u)

	v, err = decode(0, []byte("18446744073709551615"))
	require.NoError(t, err)
	u, err = v.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<64-1), u)

	v, err = decode(1, []byte("-12"))
	require.NoError(t, err)
	n, err := v.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-12), n)

	_, err = decode(1, []byte("twelve"))
	assert.ErrorIs(t, err, db.ErrUnknown)

	v, err = decode(2, []byte("12"))
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "12", s)
}

// Integration tests need a scratch database; they are skipped unless
// ODSDB_MYSQL_DB and ODSDB_MYSQL_USER are set.
func integrationConfig(t *testing.T) *db.ConfigurationList {
	dbname := os.Getenv("ODSDB_MYSQL_DB")
	user := os.Getenv("ODSDB_MYSQL_USER")
	if dbname == "" || user == "" {
		t.Skip("ODSDB_MYSQL_DB/ODSDB_MYSQL_USER not set")
	}
	kv := []string{"db", dbname, "user", user, "pass", os.Getenv("ODSDB_MYSQL_PASS")}
	if host := os.Getenv("ODSDB_MYSQL_HOST"); host != "" {
		kv = append(kv, "host", host)
	}
	return confList(t, kv...)
}

func TestIntegrationRoundTrip(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()
	rt := db.NewRuntime()
	Register(rt)

	conn := db.NewConnection(rt, cfg)
	require.NoError(t, conn.Connect(ctx))
	defer conn.Disconnect()

	require.NoError(t, conn.Exec(ctx, "DROP TABLE IF EXISTS odsdbTest"))
	require.NoError(t, conn.Exec(ctx, `CREATE TABLE odsdbTest (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		rev INT UNSIGNED NOT NULL DEFAULT 1,
		name VARCHAR(255),
		ref BIGINT UNSIGNED,
		note TEXT
	) ENGINE=InnoDB`))
	defer conn.Exec(ctx, "DROP TABLE IF EXISTS odsdbTest")

	all := db.NewObjectFieldList().
		MustAdd("id", db.TypePrimaryKey).
		MustAdd("rev", db.TypeRevision).
		MustAdd("name", db.TypeText).
		MustAdd("ref", db.TypeAny).
		MustAdd("note", db.TypeAny)
	obj, err := db.NewObject(conn, "odsdbTest", "id", all)
	require.NoError(t, err)

	write := db.NewObjectFieldList().
		MustAdd("name", db.TypeText).
		MustAdd("ref", db.TypeAny).
		MustAdd("note", db.TypeAny)
	vs := db.NewValueSet(3)
	vs.At(0).SetText("example.com")
	vs.At(1).SetUint64(1<<63 + 5)
	vs.At(2).SetText("hello")
	require.NoError(t, obj.Create(ctx, write, vs))
	id, err := conn.LastInsertID()
	require.NoError(t, err)

	rl, err := obj.Read(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, rl.FetchAll())
	require.Equal(t, 1, rl.Size())
	r, err := rl.Begin()
	require.NoError(t, err)
	got := r.ValueSet()
	pk, _ := got.At(0).PrimaryKey()
	assert.Equal(t, id, pk)
	ref, err := got.At(3).Uint64()
	require.NoError(t, err, "unsigned integer ANY column decodes to Uint64")
	assert.Equal(t, uint64(1<<63+5), ref)
	note, _ := got.At(4).Text()
	assert.Equal(t, "hello", note)

	var idv, rev db.Value
	idv.SetPrimaryKey(id)
	rev.SetRevision(1)
	upd := db.NewObjectFieldList().MustAdd("name", db.TypeText)
	uv := db.NewValueSet(1)
	uv.At(0).SetText("example.org")
	require.NoError(t, obj.CompareAndSwapUpdate(ctx, idv, rev, upd, uv))
	assert.ErrorIs(t, obj.CompareAndSwapUpdate(ctx, idv, rev, upd, uv), db.ErrStaleRevision)

	require.NoError(t, conn.TransactionBegin(ctx))
	rev.SetRevision(2)
	require.NoError(t, obj.CompareAndSwapDelete(ctx, idv, rev))
	require.NoError(t, conn.TransactionRollback())

	n, err := obj.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
}
