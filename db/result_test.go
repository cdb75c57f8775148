/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceCursor serves rows and records how it was finished.
type sliceCursor struct {
	rows     []*ValueSet
	pos      int
	finished int
}

func (c *sliceCursor) next(finish bool) (*ValueSet, error) {
	if finish {
		c.finished++
		return nil, nil
	}
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	vs := c.rows[c.pos]
	c.pos++
	return vs, nil
}

func intRow(n int64) *ValueSet {
	vs := NewValueSet(1)
	vs.At(0).SetInt64(n)
	return vs
}

func TestResultListStreaming(t *testing.T) {
	c := &sliceCursor{rows: []*ValueSet{intRow(1), intRow(2)}}
	rl := NewResultList(c.next)

	r, err := rl.Begin()
	require.NoError(t, err)
	n, _ := r.ValueSet().At(0).Int64()
	assert.Equal(t, int64(1), n)

	_, err = rl.Begin()
	assert.ErrorIs(t, err, ErrUnknown)

	r, err = rl.Next()
	require.NoError(t, err)
	n, _ = r.ValueSet().At(0).Int64()
	assert.Equal(t, int64(2), n)

	r, err = rl.Next()
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 0, c.finished, "exhaustion must not release the statement")

	require.NoError(t, rl.Close())
	require.NoError(t, rl.Close())
	assert.Equal(t, 1, c.finished)

	r, err = rl.Next()
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestResultListFetchAll(t *testing.T) {
	c := &sliceCursor{rows: []*ValueSet{intRow(1), intRow(2), intRow(3)}}
	rl := NewResultList(c.next)
	defer rl.Close()

	require.NoError(t, rl.FetchAll())
	assert.Equal(t, 3, rl.Size())

	count := 0
	for r, err := rl.Begin(); r != nil; r, err = rl.Next() {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 3, count)

	r, err := rl.Begin()
	require.NoError(t, err)
	n, _ := r.ValueSet().At(0).Int64()
	assert.Equal(t, int64(1), n)
}

func TestCachedResultList(t *testing.T) {
	rl := NewCachedResultList(intRow(5))
	assert.Equal(t, 1, rl.Size())
	r, err := rl.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	r, err = rl.Next()
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, rl.Close())
}
