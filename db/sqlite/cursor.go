/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/sqlgen"
)

// cursor steps one prepared SELECT. A statement that hits a busy database
// before it produced any row is re-issued after waiting on the busy
// coordinator.
type cursor struct {
	b        *Backend
	ctx      context.Context
	stmt     *sqlgen.Statement
	fields   *db.ObjectFieldList
	rows     *sql.Rows
	seen     int
	deadline time.Time
}

func (b *Backend) openCursor(ctx context.Context, s *sqlgen.Statement, fields *db.ObjectFieldList) (*cursor, error) {
	rows, err := b.query(ctx, s)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil || len(cols) != fields.Size() {
		rows.Close()
		b.rt.BusyBroadcast()
		return nil, db.Errorf("sqlite: %q returns %d columns, expected %d (%v)", s.SQL(), len(cols), fields.Size(), err)
	}
	c := &cursor{
		b:        b,
		ctx:      ctx,
		stmt:     s,
		fields:   fields,
		rows:     rows,
		deadline: time.Now().Add(b.timeout),
	}
	b.mu.Lock()
	if b.cursors == nil {
		b.cursors = make(map[*cursor]struct{})
	}
	b.cursors[c] = struct{}{}
	b.mu.Unlock()
	return c, nil
}

func (c *cursor) next(finish bool) (*db.ValueSet, error) {
	if finish {
		return nil, c.close()
	}
	for c.rows != nil {
		if c.rows.Next() {
			targets := sqlgen.ScanTargets(c.fields)
			if err := c.rows.Scan(targets...); err != nil {
				return nil, db.Errorf("sqlite: error reading row of %q: %v", c.stmt.SQL(), err)
			}
			c.seen++
			return sqlgen.DecodeRow(c.fields, targets, decodeAny)
		}

		err := c.rows.Err()
		if err == nil {
			return nil, nil
		}
		if !isBusy(err) || c.seen > 0 || !c.b.rt.BusyWait(c.deadline, c.b.usleep) {
			return nil, db.Errorf("sqlite: error stepping %q: %v", c.stmt.SQL(), err)
		}
		c.rows.Close()
		c.rows = nil
		rows, err := c.b.query(c.ctx, c.stmt)
		if err != nil {
			return nil, err
		}
		c.rows = rows
	}
	return nil, nil
}

func (c *cursor) close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	c.b.mu.Lock()
	delete(c.b.cursors, c)
	c.b.mu.Unlock()
	c.b.rt.BusyBroadcast()
	if err != nil {
		return db.Errorf("sqlite: error finalizing %q: %v", c.stmt.SQL(), err)
	}
	return nil
}

// decodeAny maps the dynamic SQLite storage class of a value to a Value.
func decodeAny(_ int, raw interface{}) (db.Value, error) {
	var v db.Value
	switch t := raw.(type) {
	case nil:
	case int64:
		v.SetInt64(t)
	case string:
		v.SetText(t)
	case []byte:
		v.SetText(string(t))
	default:
		return v, db.Errorf("sqlite: unsupported column value %T", raw)
	}
	return v, nil
}
