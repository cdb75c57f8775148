/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package sqlgen

import (
	"database/sql"
	"math"

	"github.com/johanix/odsdb/db"
)

// ScanTargets returns one database/sql scan destination per field, typed
// after the schema. Fields of type Any get a *interface{} so the backend
// can inspect the raw driver value.
func ScanTargets(fields *db.ObjectFieldList) []interface{} {
	targets := make([]interface{}, fields.Size())
	for i, f := range fields.Fields() {
		switch f.Type {
		case db.TypeText:
			targets[i] = new(sql.NullString)
		case db.TypeUint64:
			targets[i] = new(sql.Null[uint64])
		case db.TypeAny:
			targets[i] = new(interface{})
		default:
			targets[i] = new(sql.NullInt64)
		}
	}
	return targets
}

// AnyDecoder turns the raw driver value of an Any column into a Value.
type AnyDecoder func(i int, raw interface{}) (db.Value, error)

// DecodeRow converts scanned targets into a ValueSet. NULL columns decode to
// Empty values.
func DecodeRow(fields *db.ObjectFieldList, targets []interface{}, decodeAny AnyDecoder) (*db.ValueSet, error) {
	if len(targets) != fields.Size() {
		return nil, db.Errorf("row has %d columns, schema has %d fields", len(targets), fields.Size())
	}
	vs := db.NewValueSet(fields.Size())
	for i, f := range fields.Fields() {
		v := vs.At(i)
		switch t := targets[i].(type) {
		case *sql.NullString:
			if t.Valid {
				v.SetText(t.String)
			}
		case *sql.Null[uint64]:
			if t.Valid {
				v.SetUint64(t.V)
			}
		case *interface{}:
			if decodeAny == nil {
				return nil, db.Errorf("field %s: no decoder for ANY columns", f.Name)
			}
			dv, err := decodeAny(i, *t)
			if err != nil {
				return nil, db.Errorf("field %s: %v", f.Name, err)
			}
			*v = dv
		case *sql.NullInt64:
			if !t.Valid {
				continue
			}
			if err := setInteger(v, f, t.Int64); err != nil {
				return nil, err
			}
		default:
			return nil, db.Errorf("field %s: unexpected scan target %T", f.Name, targets[i])
		}
	}
	return vs, nil
}

func setInteger(v *db.Value, f *db.ObjectField, n int64) error {
	switch f.Type {
	case db.TypePrimaryKey:
		v.SetPrimaryKey(n)
	case db.TypeInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return db.Errorf("field %s: %d overflows int32", f.Name, n)
		}
		v.SetInt32(int32(n))
	case db.TypeUint32:
		if n < 0 || n > math.MaxUint32 {
			return db.Errorf("field %s: %d overflows uint32", f.Name, n)
		}
		v.SetUint32(uint32(n))
	case db.TypeInt64:
		v.SetInt64(n)
	case db.TypeRevision:
		v.SetRevision(n)
	case db.TypeEnum:
		if err := v.SetEnumValue(int(n), f.EnumSet); err != nil {
			return db.Errorf("field %s: %v", f.Name, err)
		}
	default:
		return db.Errorf("field %s: cannot decode integer into %s", f.Name, f.Type)
	}
	return nil
}

// CountFields is the single column schema of a COUNT(*) result.
func CountFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().MustAdd("count", db.TypeUint32)
}

// CountFromRow extracts the count from a decoded COUNT(*) row.
func CountFromRow(vs *db.ValueSet) (uint32, error) {
	v := vs.At(0)
	if v == nil {
		return 0, db.Errorf("empty count row")
	}
	return v.Uint32()
}
