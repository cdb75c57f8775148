/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend remembers the last operation it was asked to perform.
type recordingBackend struct {
	connected bool
	op        string
	fields    *ObjectFieldList
	values    *ValueSet
	clauses   *ClauseList
	joins     *JoinList
	updateErr error
	inTx      bool
}

func (b *recordingBackend) Connect(ctx context.Context, cfg *ConfigurationList) error {
	b.connected = true
	return nil
}

func (b *recordingBackend) Disconnect() error {
	b.connected = false
	return nil
}

func (b *recordingBackend) Create(ctx context.Context, obj *Object, fields *ObjectFieldList, values *ValueSet) error {
	b.op, b.fields, b.values = "create", fields, values
	return nil
}

func (b *recordingBackend) Read(ctx context.Context, obj *Object, fields *ObjectFieldList, joins *JoinList, clauses *ClauseList) (*ResultList, error) {
	b.op, b.fields, b.joins, b.clauses = "read", fields, joins, clauses
	return NewCachedResultList(), nil
}

func (b *recordingBackend) Update(ctx context.Context, obj *Object, fields *ObjectFieldList, values *ValueSet, clauses *ClauseList) error {
	b.op, b.fields, b.values, b.clauses = "update", fields, values, clauses
	return b.updateErr
}

func (b *recordingBackend) Delete(ctx context.Context, obj *Object, clauses *ClauseList) error {
	b.op, b.clauses = "delete", clauses
	return nil
}

func (b *recordingBackend) Count(ctx context.Context, obj *Object, joins *JoinList, clauses *ClauseList) (uint32, error) {
	b.op, b.joins, b.clauses = "count", joins, clauses
	return 7, nil
}

func (b *recordingBackend) TransactionBegin(ctx context.Context) error {
	if b.inTx {
		return Errorf("nested transaction")
	}
	b.inTx = true
	return nil
}

func (b *recordingBackend) TransactionCommit() error {
	b.inTx = false
	return nil
}

func (b *recordingBackend) TransactionRollback() error {
	b.inTx = false
	return nil
}

func newRecordingConnection(t *testing.T) (*Connection, *recordingBackend) {
	rb := &recordingBackend{}
	rt := NewRuntime()
	rt.Register("rec", func(*Runtime) Backend { return rb })
	cfg := NewConfigurationList()
	require.NoError(t, cfg.Add("backend", "rec"))
	conn := NewConnection(rt, cfg)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { conn.Disconnect() })
	return conn, rb
}

func testFields() *ObjectFieldList {
	return NewObjectFieldList().
		MustAdd("id", TypePrimaryKey).
		MustAdd("rev", TypeRevision).
		MustAdd("name", TypeText)
}

func TestNewObjectValidation(t *testing.T) {
	conn, _ := newRecordingConnection(t)

	_, err := NewObject(conn, "zone", "id", testFields())
	require.NoError(t, err)

	_, err = NewObject(conn, "zone", "zoneId", testFields())
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = NewObject(nil, "zone", "id", testFields())
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = NewObject(conn, "", "id", testFields())
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestObjectDispatch(t *testing.T) {
	ctx := context.Background()
	conn, rb := newRecordingConnection(t)
	obj, err := NewObject(conn, "zone", "id", testFields())
	require.NoError(t, err)
	assert.Equal(t, "rev", obj.RevisionField().Name)

	fields := NewObjectFieldList().MustAdd("name", TypeText)
	vs := NewValueSet(1)
	vs.At(0).SetText("example.com")
	require.NoError(t, obj.Create(ctx, fields, vs))
	assert.Equal(t, "create", rb.op)

	assert.ErrorIs(t, obj.Create(ctx, fields, NewValueSet(2)), ErrUnknown)

	rl, err := obj.Read(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, rl.Close())
	assert.Equal(t, "read", rb.op)

	n, err := obj.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), n)
}

func TestCompareAndSwapBuildsRevisionClauses(t *testing.T) {
	ctx := context.Background()
	conn, rb := newRecordingConnection(t)
	obj, err := NewObject(conn, "zone", "id", testFields())
	require.NoError(t, err)

	var id, rev Value
	id.SetPrimaryKey(12)
	rev.SetRevision(3)
	fields := NewObjectFieldList().MustAdd("name", TypeText)
	vs := NewValueSet(1)
	vs.At(0).SetText("example.org")

	require.NoError(t, obj.CompareAndSwapUpdate(ctx, id, rev, fields, vs))
	assert.Equal(t, "update", rb.op)
	clauses := rb.clauses.Clauses()
	require.Len(t, clauses, 2)
	assert.Equal(t, "id", clauses[0].Field)
	assert.Equal(t, "rev", clauses[1].Field)
	assert.Equal(t, ClauseEqual, clauses[1].Type)
	r, _ := clauses[1].Value.Revision()
	assert.Equal(t, int64(3), r)

	rb.updateErr = ErrStaleRevision
	err = obj.CompareAndSwapUpdate(ctx, id, rev, fields, vs)
	assert.ErrorIs(t, err, ErrStaleRevision)
	assert.ErrorIs(t, err, ErrUnknown)

	require.NoError(t, obj.CompareAndSwapDelete(ctx, id, rev))
	assert.Equal(t, "delete", rb.op)

	assert.ErrorIs(t, obj.CompareAndSwapDelete(ctx, id, Value{}), ErrUnknown)

	plain, err := NewObject(conn, "plain", "id", NewObjectFieldList().MustAdd("id", TypePrimaryKey))
	require.NoError(t, err)
	assert.ErrorIs(t, plain.CompareAndSwapDelete(ctx, id, rev), ErrUnknown)
}

func TestConnectionLifecycle(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	rb := &recordingBackend{}
	rt.Register("rec", func(*Runtime) Backend { return rb })

	cfg := NewConfigurationList()
	conn := NewConnection(rt, cfg)
	assert.ErrorIs(t, conn.Connect(ctx), ErrUnknown, "no backend configured")

	require.NoError(t, cfg.Add("backend", "rec"))
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, rb.connected)
	assert.Equal(t, "rec", conn.BackendName())
	assert.ErrorIs(t, rt.Shutdown(), ErrUnknown)

	require.NoError(t, conn.TransactionBegin(ctx))
	assert.ErrorIs(t, conn.TransactionBegin(ctx), ErrUnknown)
	require.NoError(t, conn.TransactionCommit())

	_, err := conn.LastInsertID()
	assert.ErrorIs(t, err, ErrUnknown, "recordingBackend reports no insert ids")
	assert.ErrorIs(t, conn.Exec(ctx, "SELECT 1"), ErrUnknown)

	require.NoError(t, conn.Disconnect())
	assert.False(t, rb.connected)
	assert.ErrorIs(t, conn.TransactionBegin(ctx), ErrUnknown)
	require.NoError(t, rt.Shutdown())
}
