/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * Plumbing shared by the enforcer entities
 */

package enforcer

import (
	"context"
	"fmt"

	"github.com/johanix/odsdb/db"
)

var ErrNotFound = fmt.Errorf("%w: not found", db.ErrUnknown)

const primaryKeyName = "id"

// writable is fields without the primary key and revision, i.e. the
// columns a caller supplies on create and update.
func writable(fields *db.ObjectFieldList) *db.ObjectFieldList {
	out := db.NewObjectFieldList()
	for _, f := range fields.Fields() {
		if f.Type == db.TypePrimaryKey || f.Type == db.TypeRevision {
			continue
		}
		out.MustAdd(f.Name, f.Type, f.EnumSet...)
	}
	return out
}

func idValue(id int64) db.Value {
	var v db.Value
	v.SetPrimaryKey(id)
	return v
}

func revValue(rev int64) db.Value {
	var v db.Value
	v.SetRevision(rev)
	return v
}

// createRow inserts values (ordered as writable(obj fields)) and returns
// the primary key the backend assigned.
func createRow(ctx context.Context, obj *db.Object, values *db.ValueSet) (int64, error) {
	if err := obj.Create(ctx, writable(obj.ObjectFieldList()), values); err != nil {
		return 0, err
	}
	return obj.Connection().LastInsertID()
}

// readOne returns the single row matching clauses, or ErrNotFound.
func readOne(ctx context.Context, obj *db.Object, clauses *db.ClauseList) (*db.Result, error) {
	rl, err := obj.Read(ctx, nil, clauses)
	if err != nil {
		return nil, err
	}
	defer rl.Close()
	r, err := rl.Next()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func readByID(ctx context.Context, obj *db.Object, id int64) (*db.Result, error) {
	cl := db.NewClauseList()
	if err := cl.Add(db.NewClause(primaryKeyName, db.ClauseEqual, idValue(id))); err != nil {
		return nil, err
	}
	r, err := readOne(ctx, obj, cl)
	if err != nil {
		return nil, fmt.Errorf("%s id %d: %w", obj.Table(), id, err)
	}
	return r, nil
}

func updateRow(ctx context.Context, obj *db.Object, id, rev int64, values *db.ValueSet) error {
	if id == 0 || rev == 0 {
		return db.Errorf("%s: update of an object that was never read or created", obj.Table())
	}
	return obj.CompareAndSwapUpdate(ctx, idValue(id), revValue(rev), writable(obj.ObjectFieldList()), values)
}

func deleteRow(ctx context.Context, obj *db.Object, id, rev int64) error {
	if id == 0 || rev == 0 {
		return db.Errorf("%s: delete of an object that was never read or created", obj.Table())
	}
	return obj.CompareAndSwapDelete(ctx, idValue(id), revValue(rev))
}

// rowScanner decodes a result row positionally. The first failure sticks;
// Empty (NULL) columns leave the destination untouched.
type rowScanner struct {
	vs  *db.ValueSet
	i   int
	err error
}

func newRowScanner(r *db.Result, fields *db.ObjectFieldList) *rowScanner {
	s := &rowScanner{}
	if r == nil || r.ValueSet() == nil {
		s.err = db.Errorf("no result to decode")
		return s
	}
	s.vs = r.ValueSet()
	if s.vs.Size() != fields.Size() {
		s.err = db.Errorf("result has %d values, expected %d", s.vs.Size(), fields.Size())
	}
	return s
}

func (s *rowScanner) next() (db.Value, bool) {
	if s.err != nil {
		return db.Value{}, false
	}
	v := s.vs.At(s.i)
	s.i++
	if v == nil || !v.NotEmpty() {
		return db.Value{}, false
	}
	return *v, true
}

func (s *rowScanner) primaryKey(p *int64) {
	if v, ok := s.next(); ok {
		*p, s.err = v.PrimaryKey()
	}
}

func (s *rowScanner) revision(p *int64) {
	if v, ok := s.next(); ok {
		*p, s.err = v.Revision()
	}
}

func (s *rowScanner) text(p *string) {
	if v, ok := s.next(); ok {
		*p, s.err = v.Text()
	}
}

func (s *rowScanner) int32(p *int32) {
	if v, ok := s.next(); ok {
		*p, s.err = v.Int32()
	}
}

func (s *rowScanner) uint32(p *uint32) {
	if v, ok := s.next(); ok {
		*p, s.err = v.Uint32()
	}
}

func (s *rowScanner) enum(p *int) {
	if v, ok := s.next(); ok {
		*p, s.err = v.EnumValue()
	}
}

// integer reads an Any column holding an integer.
func (s *rowScanner) integer(p *int64) {
	if v, ok := s.next(); ok {
		*p, s.err = v.Integer()
	}
}

// valueSetter fills a ValueSet positionally.
type valueSetter struct {
	vs *db.ValueSet
	i  int
}

func newValueSetter(n int) *valueSetter {
	return &valueSetter{vs: db.NewValueSet(n)}
}

func (vs *valueSetter) next() *db.Value {
	v := vs.vs.At(vs.i)
	vs.i++
	return v
}

// list is the result list plumbing of the entity lists.
type list struct {
	obj *db.Object
	rl  *db.ResultList
}

func (l *list) read(ctx context.Context, joins *db.JoinList, clauses *db.ClauseList) error {
	if err := l.Close(); err != nil {
		return err
	}
	rl, err := l.obj.ReadJoined(ctx, nil, joins, clauses)
	if err != nil {
		return err
	}
	l.rl = rl
	return nil
}

func (l *list) next() (*db.Result, error) {
	if l.rl == nil {
		return nil, db.Errorf("%s list: nothing read", l.obj.Table())
	}
	return l.rl.Next()
}

// Close releases the underlying statement. It is safe to call more than
// once and must be called even when the list was drained.
func (l *list) Close() error {
	if l.rl == nil {
		return nil
	}
	err := l.rl.Close()
	l.rl = nil
	return err
}

// FetchAll reads the remaining rows into memory and closes the statement.
func (l *list) FetchAll() error {
	if l.rl == nil {
		return db.Errorf("%s list: nothing read", l.obj.Table())
	}
	return l.rl.FetchAll()
}

// Size is the number of rows, valid after FetchAll.
func (l *list) Size() int {
	if l.rl == nil {
		return 0
	}
	return l.rl.Size()
}
