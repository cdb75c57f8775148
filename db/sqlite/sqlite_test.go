/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanix/odsdb/db"
)

var kinds = []db.Enum{
	{Text: "DS", Value: 0},
	{Text: "RRSIG", Value: 1},
	{Text: "DNSKEY", Value: 2},
	{Text: "RRSIGDNSKEY", Value: 3},
}

const itemTable = `CREATE TABLE item (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rev INTEGER NOT NULL DEFAULT 1,
	name TEXT,
	count INTEGER,
	big INTEGER,
	ref INTEGER,
	kind INTEGER
)`

func itemFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().
		MustAdd("id", db.TypePrimaryKey).
		MustAdd("rev", db.TypeRevision).
		MustAdd("name", db.TypeText).
		MustAdd("count", db.TypeInt32).
		MustAdd("big", db.TypeUint64).
		MustAdd("ref", db.TypeAny).
		MustAdd("kind", db.TypeEnum, kinds...)
}

func writeFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().
		MustAdd("name", db.TypeText).
		MustAdd("count", db.TypeInt32).
		MustAdd("big", db.TypeUint64).
		MustAdd("ref", db.TypeAny).
		MustAdd("kind", db.TypeEnum, kinds...)
}

// newDBFile creates an empty database file; the backend never creates one.
func newDBFile(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "enforcer.db")
	f, err := os.Create(file)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return file
}

func connect(t *testing.T, rt *db.Runtime, file string, timeout string) *db.Connection {
	cfg := db.NewConfigurationList()
	require.NoError(t, cfg.Add("backend", BackendName))
	require.NoError(t, cfg.Add("file", file))
	require.NoError(t, cfg.Add("timeout", timeout))
	require.NoError(t, cfg.Add("usleep", "2000"))
	conn := db.NewConnection(rt, cfg)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { conn.Disconnect() })
	return conn
}

func setup(t *testing.T) (*db.Runtime, string, *db.Object) {
	rt := db.NewRuntime()
	Register(rt)
	file := newDBFile(t)
	conn := connect(t, rt, file, "5")
	require.NoError(t, conn.Exec(context.Background(), itemTable))
	obj, err := db.NewObject(conn, "item", "id", itemFields())
	require.NoError(t, err)
	return rt, file, obj
}

func itemValues(t *testing.T, name string, count int32, kind string) *db.ValueSet {
	vs := db.NewValueSet(5)
	vs.At(0).SetText(name)
	vs.At(1).SetInt32(count)
	vs.At(2).SetUint64(1 << 40)
	vs.At(3).SetInt64(77)
	require.NoError(t, vs.At(4).SetEnumText(kind, kinds))
	return vs
}

func create(t *testing.T, obj *db.Object, name string, count int32) int64 {
	require.NoError(t, obj.Create(context.Background(), writeFields(), itemValues(t, name, count, "DS")))
	id, err := obj.Connection().LastInsertID()
	require.NoError(t, err)
	return id
}

func readAll(t *testing.T, obj *db.Object, clauses *db.ClauseList) []*db.ValueSet {
	rl, err := obj.Read(context.Background(), nil, clauses)
	require.NoError(t, err)
	defer rl.Close()
	var rows []*db.ValueSet
	for {
		r, err := rl.Next()
		require.NoError(t, err)
		if r == nil {
			return rows
		}
		rows = append(rows, r.ValueSet())
	}
}

func byID(t *testing.T, id int64) *db.ClauseList {
	var v db.Value
	v.SetPrimaryKey(id)
	cl := db.NewClauseList()
	require.NoError(t, cl.Add(db.NewClause("id", db.ClauseEqual, v)))
	return cl
}

func TestConnectRequiresExistingFile(t *testing.T) {
	rt := db.NewRuntime()
	Register(rt)
	cfg := db.NewConfigurationList()
	require.NoError(t, cfg.Add("backend", BackendName))
	require.NoError(t, cfg.Add("file", filepath.Join(t.TempDir(), "missing.db")))
	conn := db.NewConnection(rt, cfg)
	assert.ErrorIs(t, conn.Connect(context.Background()), db.ErrUnknown)
	require.NoError(t, rt.Shutdown(), "a failed connect must not hold a runtime reference")
}

func TestCreateReadRoundTrip(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()

	require.NoError(t, obj.Create(ctx, writeFields(), itemValues(t, "name 1", 1, "RRSIGDNSKEY")))
	id, err := obj.Connection().LastInsertID()
	require.NoError(t, err)

	rows := readAll(t, obj, byID(t, id))
	require.Len(t, rows, 1)
	vs := rows[0]

	gotID, err := vs.At(0).PrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	rev, err := vs.At(1).Revision()
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
	name, _ := vs.At(2).Text()
	assert.Equal(t, "name 1", name)
	count, _ := vs.At(3).Int32()
	assert.Equal(t, int32(1), count)
	big, _ := vs.At(4).Uint64()
	assert.Equal(t, uint64(1<<40), big)
	ref, err := vs.At(5).Int64()
	require.NoError(t, err, "integer ANY column decodes to Int64")
	assert.Equal(t, int64(77), ref)
	kind, _ := vs.At(6).EnumText()
	assert.Equal(t, "RRSIGDNSKEY", kind)
	code, _ := vs.At(6).EnumValue()
	assert.Equal(t, 3, code)
}

func TestNullColumnsDecodeEmpty(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()

	fields := db.NewObjectFieldList().MustAdd("name", db.TypeText)
	vs := db.NewValueSet(1)
	vs.At(0).SetText("sparse")
	require.NoError(t, obj.Create(ctx, fields, vs))

	rows := readAll(t, obj, nil)
	require.Len(t, rows, 1)
	for i := 3; i < 7; i++ {
		assert.False(t, rows[0].At(i).NotEmpty(), "field %d", i)
	}
}

func TestRevisionCompareAndSwap(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()
	id := create(t, obj, "zone", 1)

	var idv, rev1, rev2 db.Value
	idv.SetPrimaryKey(id)
	rev1.SetRevision(1)
	rev2.SetRevision(2)

	fields := db.NewObjectFieldList().MustAdd("count", db.TypeInt32)
	vs := db.NewValueSet(1)
	vs.At(0).SetInt32(2)
	require.NoError(t, obj.CompareAndSwapUpdate(ctx, idv, rev1, fields, vs))

	rows := readAll(t, obj, byID(t, id))
	require.Len(t, rows, 1)
	r, _ := rows[0].At(1).Revision()
	assert.Equal(t, int64(2), r)
	c, _ := rows[0].At(3).Int32()
	assert.Equal(t, int32(2), c)

	// a second writer still holding revision 1 loses
	vs.At(0).SetInt32(3)
	err := obj.CompareAndSwapUpdate(ctx, idv, rev1, fields, vs)
	assert.ErrorIs(t, err, db.ErrStaleRevision)
	rows = readAll(t, obj, byID(t, id))
	c, _ = rows[0].At(3).Int32()
	assert.Equal(t, int32(2), c, "stale update must not change the row")

	assert.ErrorIs(t, obj.CompareAndSwapDelete(ctx, idv, rev1), db.ErrStaleRevision)
	require.NoError(t, obj.CompareAndSwapDelete(ctx, idv, rev2))
	assert.Empty(t, readAll(t, obj, nil))
}

func TestCountMatchesRows(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()
	for i := int32(0); i < 5; i++ {
		create(t, obj, "zone", i)
	}

	var v db.Value
	v.SetInt32(2)
	cl := db.NewClauseList()
	require.NoError(t, cl.Add(db.NewClause("count", db.ClauseGreaterOrEqual, v)))

	n, err := obj.Count(ctx, cl)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), n)
	assert.Len(t, readAll(t, obj, cl), int(n))

	n, err = obj.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), n)
}

func TestTransactionRollback(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()
	conn := obj.Connection()

	require.NoError(t, conn.TransactionBegin(ctx))
	assert.ErrorIs(t, conn.TransactionBegin(ctx), db.ErrUnknown)
	create(t, obj, "doomed", 1)
	assert.Len(t, readAll(t, obj, nil), 1, "reads inside the transaction see its writes")
	require.NoError(t, conn.TransactionRollback())
	assert.Empty(t, readAll(t, obj, nil))

	require.NoError(t, conn.TransactionBegin(ctx))
	create(t, obj, "kept", 1)
	require.NoError(t, conn.TransactionCommit())
	assert.Len(t, readAll(t, obj, nil), 1)

	assert.ErrorIs(t, conn.TransactionCommit(), db.ErrUnknown)
}

func TestBusyWriterWaitsForLockHolder(t *testing.T) {
	rt, file, obj := setup(t)
	ctx := context.Background()

	other := connect(t, rt, file, "5")
	otherObj, err := db.NewObject(other, "item", "id", itemFields())
	require.NoError(t, err)

	conn := obj.Connection()
	require.NoError(t, conn.TransactionBegin(ctx))
	create(t, obj, "holder", 1)

	waiter := itemValues(t, "waiter", 2, "DNSKEY")
	done := make(chan error, 1)
	go func() {
		done <- otherObj.Create(ctx, writeFields(), waiter)
	}()

	select {
	case err := <-done:
		t.Fatalf("writer did not wait for the lock holder: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, conn.TransactionCommit())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("writer was not released after commit")
	}
	assert.Len(t, readAll(t, obj, nil), 2)
}

func TestBusyTimeout(t *testing.T) {
	rt, file, obj := setup(t)
	ctx := context.Background()

	other := connect(t, rt, file, "1")
	otherObj, err := db.NewObject(other, "item", "id", itemFields())
	require.NoError(t, err)

	conn := obj.Connection()
	require.NoError(t, conn.TransactionBegin(ctx))
	defer conn.TransactionRollback()
	create(t, obj, "holder", 1)

	start := time.Now()
	err = otherObj.Create(ctx, writeFields(), itemValues(t, "waiter", 2, "DS"))
	assert.ErrorIs(t, err, db.ErrUnknown)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/var/opendnssec/kasp.db?mode=rw&_mutex=full&_busy_timeout=0", DSN("/var/opendnssec/kasp.db"))
}

func TestWriteWhileCursorOpen(t *testing.T) {
	_, _, obj := setup(t)
	ctx := context.Background()
	first := create(t, obj, "one", 1)
	create(t, obj, "two", 2)

	rl, err := obj.Read(ctx, nil, nil)
	require.NoError(t, err)
	defer rl.Close()
	r, err := rl.Next()
	require.NoError(t, err)
	require.NotNil(t, r)

	var idv, rev db.Value
	idv.SetPrimaryKey(first)
	rev.SetRevision(1)
	fields := db.NewObjectFieldList().MustAdd("count", db.TypeInt32)
	vs := db.NewValueSet(1)
	vs.At(0).SetInt32(10)

	start := time.Now()
	require.NoError(t, obj.CompareAndSwapUpdate(ctx, idv, rev, fields, vs))
	assert.Less(t, time.Since(start), time.Second, "update must not wait for the open cursor")
	create(t, obj, "three", 3)

	r, err = rl.Next()
	require.NoError(t, err)
	assert.NotNil(t, r, "cursor keeps stepping after the writes")
}

func TestDisconnectClosesOpenCursor(t *testing.T) {
	rt := db.NewRuntime()
	Register(rt)
	file := newDBFile(t)
	cfg := db.NewConfigurationList()
	require.NoError(t, cfg.Add("backend", BackendName))
	require.NoError(t, cfg.Add("file", file))
	conn := db.NewConnection(rt, cfg)
	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Exec(context.Background(), itemTable))
	obj, err := db.NewObject(conn, "item", "id", itemFields())
	require.NoError(t, err)
	create(t, obj, "one", 1)
	create(t, obj, "two", 2)

	rl, err := obj.Read(context.Background(), nil, nil)
	require.NoError(t, err)
	_, err = rl.Next()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- conn.Disconnect() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect blocked on the open cursor")
	}
	require.NoError(t, rl.Close())
	require.NoError(t, rt.Shutdown())
}
