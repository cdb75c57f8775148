/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"context"
)

// Object is a schema bound query handle: a table, its primary key column
// and its ordered field list, issuing operations over a Connection.
type Object struct {
	conn           *Connection
	table          string
	primaryKeyName string
	fields         *ObjectFieldList
}

func NewObject(conn *Connection, table, primaryKeyName string, fields *ObjectFieldList) (*Object, error) {
	if conn == nil {
		return nil, Errorf("object %q without connection", table)
	}
	if table == "" || primaryKeyName == "" {
		return nil, Errorf("object needs a table and a primary key name")
	}
	if fields == nil || fields.Size() == 0 {
		return nil, Errorf("object %q without fields", table)
	}
	if _, i := fields.Find(primaryKeyName); i < 0 {
		return nil, Errorf("object %q: primary key %q is not a field", table, primaryKeyName)
	}
	return &Object{
		conn:           conn,
		table:          table,
		primaryKeyName: primaryKeyName,
		fields:         fields,
	}, nil
}

func (o *Object) Connection() *Connection {
	return o.conn
}

func (o *Object) Table() string {
	return o.table
}

func (o *Object) PrimaryKeyName() string {
	return o.primaryKeyName
}

func (o *Object) ObjectFieldList() *ObjectFieldList {
	return o.fields
}

// RevisionField returns the schema's revision field, or nil.
func (o *Object) RevisionField() *ObjectField {
	for _, f := range o.fields.fields {
		if f.Type == TypeRevision {
			return f
		}
	}
	return nil
}

func (o *Object) backend() (Backend, error) {
	if o == nil {
		return nil, Errorf("nil object")
	}
	return o.conn.live()
}

func (o *Object) Create(ctx context.Context, fields *ObjectFieldList, values *ValueSet) error {
	b, err := o.backend()
	if err != nil {
		return err
	}
	if fields.Size() == 0 || fields.Size() != values.Size() {
		return Errorf("create %s: %d fields but %d values", o.table, fields.Size(), values.Size())
	}
	return b.Create(ctx, o, fields, values)
}

// Read selects fields (nil for all schema fields) of the rows matching
// clauses (nil for all rows).
func (o *Object) Read(ctx context.Context, fields *ObjectFieldList, clauses *ClauseList) (*ResultList, error) {
	return o.ReadJoined(ctx, fields, nil, clauses)
}

func (o *Object) ReadJoined(ctx context.Context, fields *ObjectFieldList, joins *JoinList, clauses *ClauseList) (*ResultList, error) {
	b, err := o.backend()
	if err != nil {
		return nil, err
	}
	return b.Read(ctx, o, fields, joins, clauses)
}

func (o *Object) Update(ctx context.Context, fields *ObjectFieldList, values *ValueSet, clauses *ClauseList) error {
	b, err := o.backend()
	if err != nil {
		return err
	}
	if fields.Size() == 0 || fields.Size() != values.Size() {
		return Errorf("update %s: %d fields but %d values", o.table, fields.Size(), values.Size())
	}
	return b.Update(ctx, o, fields, values, clauses)
}

func (o *Object) Delete(ctx context.Context, clauses *ClauseList) error {
	b, err := o.backend()
	if err != nil {
		return err
	}
	return b.Delete(ctx, o, clauses)
}

func (o *Object) Count(ctx context.Context, clauses *ClauseList) (uint32, error) {
	return o.CountJoined(ctx, nil, clauses)
}

func (o *Object) CountJoined(ctx context.Context, joins *JoinList, clauses *ClauseList) (uint32, error) {
	b, err := o.backend()
	if err != nil {
		return 0, err
	}
	return b.Count(ctx, o, joins, clauses)
}

// revisionClauses builds "pk = id AND rev = expectedRev".
func (o *Object) revisionClauses(id, expectedRev Value) (*ClauseList, error) {
	rf := o.RevisionField()
	if rf == nil {
		return nil, Errorf("%s has no revision field", o.table)
	}
	if !id.NotEmpty() || !expectedRev.NotEmpty() {
		return nil, Errorf("%s: compare-and-swap needs both id and revision", o.table)
	}
	cl := NewClauseList()
	if err := cl.Add(NewClause(o.primaryKeyName, ClauseEqual, id)); err != nil {
		return nil, err
	}
	if err := cl.Add(NewClause(rf.Name, ClauseEqual, expectedRev)); err != nil {
		return nil, err
	}
	return cl, nil
}

// CompareAndSwapUpdate updates the row with primary key id, but only if its
// revision still is expectedRev. On success the stored revision is
// expectedRev+1; a changed or removed row yields ErrStaleRevision.
func (o *Object) CompareAndSwapUpdate(ctx context.Context, id, expectedRev Value, fields *ObjectFieldList, values *ValueSet) error {
	cl, err := o.revisionClauses(id, expectedRev)
	if err != nil {
		return err
	}
	return o.Update(ctx, fields, values, cl)
}

// CompareAndSwapDelete deletes the row with primary key id if its revision
// still is expectedRev.
func (o *Object) CompareAndSwapDelete(ctx context.Context, id, expectedRev Value) error {
	cl, err := o.revisionClauses(id, expectedRev)
	if err != nil {
		return err
	}
	return o.Delete(ctx, cl)
}
