/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

// Package sqlgen builds SQL text and its bound arguments for the SQL
// backends. Text and arguments are produced in one pass: the only way to
// write a placeholder is Statement.Bind, which appends the argument in the
// same step.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/johanix/odsdb/db"
)

// Placeholder renders the n:th (1-based) parameter marker.
type Placeholder func(n int) string

// QuestionMark is used by SQLite and MySQL.
func QuestionMark(int) string { return "?" }

// Dollar renders PostgreSQL style $1, $2, ...
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

type Statement struct {
	sb     strings.Builder
	ph     Placeholder
	args   []interface{}
	values []db.Value
}

func NewStatement(ph Placeholder) *Statement {
	if ph == nil {
		ph = QuestionMark
	}
	return &Statement{ph: ph}
}

func (s *Statement) WriteString(str string) {
	s.sb.WriteString(str)
}

// Bind writes the next placeholder and records v as its argument.
func (s *Statement) Bind(v db.Value) error {
	arg, err := Arg(v)
	if err != nil {
		return err
	}
	s.args = append(s.args, arg)
	s.values = append(s.values, v)
	s.sb.WriteString(s.ph(len(s.args)))
	return nil
}

func (s *Statement) SQL() string {
	return s.sb.String()
}

// Args are the driver arguments, in placeholder order.
func (s *Statement) Args() []interface{} {
	return s.args
}

// Values are the bound values, in placeholder order.
func (s *Statement) Values() []db.Value {
	return s.values
}

func (s *Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL(), s.values)
}

// Arg converts a value to a database/sql argument. Empty binds NULL and
// enums bind their integer code. Uint64 values above MaxInt64 are passed
// as uint64, which only drivers with unsigned support accept.
func Arg(v db.Value) (interface{}, error) {
	switch v.Type() {
	case db.TypeEmpty:
		return nil, nil
	case db.TypePrimaryKey:
		return v.PrimaryKey()
	case db.TypeInt32:
		n, err := v.Int32()
		return int64(n), err
	case db.TypeUint32:
		n, err := v.Uint32()
		return int64(n), err
	case db.TypeInt64:
		return v.Int64()
	case db.TypeUint64:
		n, err := v.Uint64()
		if err != nil {
			return nil, err
		}
		if n > 1<<63-1 {
			// mysql binds it as BIGINT UNSIGNED; sqlite rejects it at exec
			return n, nil
		}
		return int64(n), nil
	case db.TypeText:
		return v.Text()
	case db.TypeEnum:
		n, err := v.EnumValue()
		return int64(n), err
	case db.TypeRevision:
		return v.Revision()
	}
	return nil, db.Errorf("cannot bind value of type %s", v.Type())
}

// Where writes " WHERE <clauses>" when cl is non-empty. Unqualified clauses
// refer to table.
func (s *Statement) Where(table string, cl *db.ClauseList) error {
	if cl.Size() == 0 {
		return nil
	}
	s.WriteString(" WHERE ")
	return s.clauses(table, cl)
}

func (s *Statement) clauses(table string, cl *db.ClauseList) error {
	for i, c := range cl.Clauses() {
		if i > 0 {
			s.WriteString(" " + c.Operator.SQL() + " ")
		}
		if c.Type == db.ClauseNested {
			if c.List.Size() == 0 {
				return db.Errorf("empty nested clause")
			}
			s.WriteString("(")
			if err := s.clauses(table, c.List); err != nil {
				return err
			}
			s.WriteString(")")
			continue
		}

		op, ok := c.Type.SQL()
		if !ok {
			return db.Errorf("unknown clause type %d", c.Type)
		}
		t := c.Table
		if t == "" {
			t = table
		}
		s.WriteString(t + "." + c.Field + " " + op)
		if c.Type == db.ClauseIsNull || c.Type == db.ClauseIsNotNull {
			continue
		}
		s.WriteString(" ")
		if err := s.Bind(c.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Statement) joins(jl *db.JoinList) {
	for _, j := range jl.Joins() {
		s.WriteString(" INNER JOIN " + j.ToTable + " ON " + j.ToTable + "." + j.ToField +
			" = " + j.FromTable + "." + j.FromField)
	}
}
