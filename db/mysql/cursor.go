/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/sqlgen"
)

type cursor struct {
	stmt      *sqlgen.Statement
	fields    *db.ObjectFieldList
	rows      *sql.Rows
	decodeAny sqlgen.AnyDecoder
}

func (b *Backend) openCursor(ctx context.Context, s *sqlgen.Statement, fields *db.ObjectFieldList) (*cursor, error) {
	q, err := b.checkConnection(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, s.SQL(), s.Args()...)
	if err != nil {
		return nil, db.Errorf("mysql: error preparing %q: %v", s.SQL(), err)
	}
	types, err := rows.ColumnTypes()
	if err != nil || len(types) != fields.Size() {
		rows.Close()
		return nil, db.Errorf("mysql: %q returns %d columns, expected %d (%v)", s.SQL(), len(types), fields.Size(), err)
	}
	return &cursor{
		stmt:      s,
		fields:    fields,
		rows:      rows,
		decodeAny: anyDecoder(typeNames(types)),
	}, nil
}

func (c *cursor) next(finish bool) (*db.ValueSet, error) {
	if finish {
		if c.rows == nil {
			return nil, nil
		}
		err := c.rows.Close()
		c.rows = nil
		if err != nil {
			return nil, db.Errorf("mysql: error closing %q: %v", c.stmt.SQL(), err)
		}
		return nil, nil
	}
	if c.rows == nil {
		return nil, nil
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, db.Errorf("mysql: error fetching %q: %v", c.stmt.SQL(), err)
		}
		return nil, nil
	}
	targets := sqlgen.ScanTargets(c.fields)
	if err := c.rows.Scan(targets...); err != nil {
		return nil, db.Errorf("mysql: error reading row of %q: %v", c.stmt.SQL(), err)
	}
	return sqlgen.DecodeRow(c.fields, targets, c.decodeAny)
}

var integerTypes = map[string]bool{
	"TINYINT":   true,
	"SMALLINT":  true,
	"MEDIUMINT": true,
	"INT":       true,
	"BIGINT":    true,
	"YEAR":      true,
}

func typeNames(types []*sql.ColumnType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.DatabaseTypeName()
	}
	return names
}

// anyDecoder decodes Any columns from the result set metadata: integer
// columns become Int64 (Uint64 when unsigned), everything else Text. The
// text protocol delivers numbers as bytes and the binary protocol delivers
// unsigned values above MaxInt64 as text, so those are parsed here.
func anyDecoder(types []string) sqlgen.AnyDecoder {
	return func(i int, raw interface{}) (db.Value, error) {
		var v db.Value
		if raw == nil {
			return v, nil
		}
		name := ""
		if i < len(types) {
			name = types[i]
		}
		unsigned := strings.HasPrefix(name, "UNSIGNED ")
		integer := integerTypes[strings.TrimPrefix(name, "UNSIGNED ")]

		var text string
		switch t := raw.(type) {
		case int64:
			if unsigned && t >= 0 {
				v.SetUint64(uint64(t))
			} else {
				v.SetInt64(t)
			}
			return v, nil
		case uint64:
			v.SetUint64(t)
			return v, nil
		case []byte:
			text = string(t)
		case string:
			text = t
		default:
			return v, db.Errorf("mysql: unsupported column value %T (%s)", raw, name)
		}

		if !integer {
			v.SetText(text)
			return v, nil
		}
		if unsigned {
			n, err := strconv.ParseUint(text, 10, 64)
			if err != nil {
				return v, db.Errorf("mysql: bad unsigned integer %q: %v", text, err)
			}
			v.SetUint64(n)
			return v, nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return v, db.Errorf("mysql: bad integer %q: %v", text, err)
		}
		v.SetInt64(n)
		return v, nil
	}
}
