/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectFieldList(t *testing.T) {
	ofl := NewObjectFieldList()
	require.NoError(t, ofl.Add(&ObjectField{Name: "id", Type: TypePrimaryKey}))
	require.NoError(t, ofl.Add(&ObjectField{Name: "rev", Type: TypeRevision}))
	require.NoError(t, ofl.Add(&ObjectField{Name: "type", Type: TypeEnum, EnumSet: testEnums}))

	assert.ErrorIs(t, ofl.Add(&ObjectField{Name: "", Type: TypeText}), ErrUnknown)
	assert.ErrorIs(t, ofl.Add(&ObjectField{Name: "name"}), ErrUnknown)
	assert.ErrorIs(t, ofl.Add(&ObjectField{Name: "id", Type: TypeText}), ErrUnknown)
	assert.ErrorIs(t, ofl.Add(&ObjectField{Name: "state", Type: TypeEnum}), ErrUnknown)

	assert.Equal(t, 3, ofl.Size())
	f, i := ofl.Find("type")
	require.NotNil(t, f)
	assert.Equal(t, 2, i)
	_, i = ofl.Find("nope")
	assert.Equal(t, -1, i)

	cp := ofl.Copy()
	cp.MustAdd("name", TypeText)
	assert.Equal(t, 3, ofl.Size())
	assert.Equal(t, 4, cp.Size())

	assert.Panics(t, func() { ofl.MustAdd("id", TypeInt64) })
}

func TestClauseListValidation(t *testing.T) {
	var v Value
	v.SetInt32(1)

	cl := NewClauseList()
	require.NoError(t, cl.Add(NewClause("a", ClauseEqual, v)))
	require.NoError(t, cl.Add(NewNullClause("b", true)))
	assert.ErrorIs(t, cl.Add(NewClause("", ClauseEqual, v)), ErrUnknown)
	assert.ErrorIs(t, cl.Add(NewClause("c", ClauseLessThan, Value{})), ErrUnknown)
	assert.ErrorIs(t, cl.Add(NewNestedClause(NewClauseList())), ErrUnknown)
	assert.ErrorIs(t, cl.Add(nil), ErrUnknown)
	assert.ErrorIs(t, cl.Add(&Clause{Field: "d", Type: ClauseType(99), Value: v}), ErrUnknown)

	inner := NewClauseList()
	require.NoError(t, inner.Add(NewClause("e", ClauseNotEqual, v)))
	require.NoError(t, cl.Add(NewNestedClause(inner)))
	assert.Equal(t, 3, cl.Size())

	op, ok := ClauseGreaterOrEqual.SQL()
	assert.True(t, ok)
	assert.Equal(t, ">=", op)
	_, ok = ClauseNested.SQL()
	assert.False(t, ok)
	assert.Equal(t, "OR", OperatorOr.SQL())
}

func TestJoinList(t *testing.T) {
	jl := NewJoinList()
	require.NoError(t, jl.Add(&Join{FromTable: "keyDependency", FromField: "zoneId", ToTable: "zone", ToField: "id"}))
	assert.ErrorIs(t, jl.Add(&Join{FromTable: "keyDependency"}), ErrUnknown)
	assert.Equal(t, 1, jl.Size())
}

func TestConfigurationList(t *testing.T) {
	cl := NewConfigurationList()
	require.NoError(t, cl.Add("backend", "sqlite"))
	require.NoError(t, cl.Add("timeout", "7"))
	require.NoError(t, cl.Add("usleep", "x"))
	assert.ErrorIs(t, cl.Add("backend", "mysql"), ErrUnknown)
	assert.ErrorIs(t, cl.Add("", "1"), ErrUnknown)

	v, ok := cl.Value("backend")
	assert.True(t, ok)
	assert.Equal(t, "sqlite", v)

	d, err := cl.Seconds("timeout", 0)
	require.NoError(t, err)
	assert.Equal(t, "7s", d.String())

	n, err := cl.Int("port", 3306)
	require.NoError(t, err)
	assert.Equal(t, 3306, n)

	_, err = cl.Int("usleep", 0)
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Len(t, cl.Items(), 3)
}
