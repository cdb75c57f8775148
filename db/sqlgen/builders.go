/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package sqlgen

import (
	"strings"

	"github.com/johanix/odsdb/db"
)

// Revision describes the optimistic concurrency step of an update or
// delete: the revision field, the revision the caller read and the one
// that will be written.
type Revision struct {
	Field *db.ObjectField
	Old   int64
	New   int64
}

// Select builds "SELECT t.f1, ... FROM t [joins] [WHERE ...]". A nil fields
// list selects the object's schema. The resolved field list is returned so
// the caller decodes rows with the same order.
func Select(ph Placeholder, obj *db.Object, fields *db.ObjectFieldList, joins *db.JoinList, clauses *db.ClauseList) (*Statement, *db.ObjectFieldList, error) {
	if fields == nil {
		fields = obj.ObjectFieldList()
	}
	if fields.Size() == 0 {
		return nil, nil, db.Errorf("select from %s without fields", obj.Table())
	}

	s := NewStatement(ph)
	s.WriteString("SELECT ")
	for i, f := range fields.Fields() {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(obj.Table() + "." + f.Name)
	}
	s.WriteString(" FROM " + obj.Table())
	s.joins(joins)
	if err := s.Where(obj.Table(), clauses); err != nil {
		return nil, nil, err
	}
	return s, fields, nil
}

// Count builds "SELECT COUNT(*) FROM t [joins] [WHERE ...]".
func Count(ph Placeholder, obj *db.Object, joins *db.JoinList, clauses *db.ClauseList) (*Statement, error) {
	s := NewStatement(ph)
	s.WriteString("SELECT COUNT(*) FROM " + obj.Table())
	s.joins(joins)
	if err := s.Where(obj.Table(), clauses); err != nil {
		return nil, err
	}
	return s, nil
}

// Insert builds "INSERT INTO t (f1, ...) VALUES (?, ...)". Revision fields
// are owned by the backend: any passed in are dropped and, when the object
// has one, it is appended with the value 1.
func Insert(ph Placeholder, obj *db.Object, fields *db.ObjectFieldList, values *db.ValueSet) (*Statement, error) {
	if fields.Size() == 0 || fields.Size() != values.Size() {
		return nil, db.Errorf("insert into %s: %d fields but %d values", obj.Table(), fields.Size(), values.Size())
	}

	var cols []string
	var vals []db.Value
	for i, f := range fields.Fields() {
		if _, pos := obj.ObjectFieldList().Find(f.Name); pos < 0 {
			return nil, db.Errorf("insert into %s: unknown field %q", obj.Table(), f.Name)
		}
		if f.Type == db.TypeRevision {
			continue
		}
		cols = append(cols, f.Name)
		vals = append(vals, *values.At(i))
	}
	if rf := obj.RevisionField(); rf != nil {
		var rev db.Value
		rev.SetRevision(1)
		cols = append(cols, rf.Name)
		vals = append(vals, rev)
	}
	if len(cols) == 0 {
		return nil, db.Errorf("insert into %s: nothing to insert", obj.Table())
	}

	s := NewStatement(ph)
	s.WriteString("INSERT INTO " + obj.Table() + " (" + strings.Join(cols, ", ") + ") VALUES (")
	for i, v := range vals {
		if i > 0 {
			s.WriteString(", ")
		}
		if err := s.Bind(v); err != nil {
			return nil, err
		}
	}
	s.WriteString(")")
	return s, nil
}

// revisionFromClauses finds the equality clause on the revision field among
// the top level clauses and plans the increment. It returns nil when the
// object is not revisioned.
func revisionFromClauses(obj *db.Object, clauses *db.ClauseList) (*Revision, error) {
	rf := obj.RevisionField()
	if rf == nil {
		return nil, nil
	}
	for _, c := range clauses.Clauses() {
		if c.Type != db.ClauseEqual || c.Field != rf.Name {
			continue
		}
		if c.Table != "" && c.Table != obj.Table() {
			continue
		}
		old, err := c.Value.Integer()
		if err != nil {
			return nil, db.Errorf("%s: revision clause holds no number: %v", obj.Table(), err)
		}
		return &Revision{Field: rf, Old: old, New: old + 1}, nil
	}
	return nil, db.Errorf("%s: no equality clause on revision field %q", obj.Table(), rf.Name)
}

// Update builds "UPDATE t SET f1 = ?, ..., rev = ? WHERE ...". For a
// revisioned object the clause list must hold "rev = <current>"; the
// returned Revision tells the backend to require a non-zero row count.
func Update(ph Placeholder, obj *db.Object, fields *db.ObjectFieldList, values *db.ValueSet, clauses *db.ClauseList) (*Statement, *Revision, error) {
	if fields.Size() == 0 || fields.Size() != values.Size() {
		return nil, nil, db.Errorf("update %s: %d fields but %d values", obj.Table(), fields.Size(), values.Size())
	}
	rev, err := revisionFromClauses(obj, clauses)
	if err != nil {
		return nil, nil, err
	}

	s := NewStatement(ph)
	s.WriteString("UPDATE " + obj.Table() + " SET ")
	n := 0
	for i, f := range fields.Fields() {
		if _, pos := obj.ObjectFieldList().Find(f.Name); pos < 0 {
			return nil, nil, db.Errorf("update %s: unknown field %q", obj.Table(), f.Name)
		}
		if f.Type == db.TypeRevision {
			continue
		}
		if n > 0 {
			s.WriteString(", ")
		}
		s.WriteString(f.Name + " = ")
		if err := s.Bind(*values.At(i)); err != nil {
			return nil, nil, err
		}
		n++
	}
	if rev != nil {
		var v db.Value
		v.SetRevision(rev.New)
		if n > 0 {
			s.WriteString(", ")
		}
		s.WriteString(rev.Field.Name + " = ")
		if err := s.Bind(v); err != nil {
			return nil, nil, err
		}
		n++
	}
	if n == 0 {
		return nil, nil, db.Errorf("update %s: nothing to set", obj.Table())
	}
	if err := s.Where(obj.Table(), clauses); err != nil {
		return nil, nil, err
	}
	return s, rev, nil
}

// Delete builds "DELETE FROM t WHERE ...", with the same revision rule as
// Update.
func Delete(ph Placeholder, obj *db.Object, clauses *db.ClauseList) (*Statement, *Revision, error) {
	rev, err := revisionFromClauses(obj, clauses)
	if err != nil {
		return nil, nil, err
	}
	s := NewStatement(ph)
	s.WriteString("DELETE FROM " + obj.Table())
	if err := s.Where(obj.Table(), clauses); err != nil {
		return nil, nil, err
	}
	return s, rev, nil
}
