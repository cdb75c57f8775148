/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import "fmt"

type ClauseType int

const (
	ClauseEqual ClauseType = iota
	ClauseNotEqual
	ClauseLessThan
	ClauseLessOrEqual
	ClauseGreaterOrEqual
	ClauseGreaterThan
	ClauseIsNull
	ClauseIsNotNull
	ClauseNested
)

var clauseTypeSQL = map[ClauseType]string{
	ClauseEqual:          "=",
	ClauseNotEqual:       "!=",
	ClauseLessThan:       "<",
	ClauseLessOrEqual:    "<=",
	ClauseGreaterOrEqual: ">=",
	ClauseGreaterThan:    ">",
	ClauseIsNull:         "IS NULL",
	ClauseIsNotNull:      "IS NOT NULL",
}

// SQL returns the SQL operator text of a comparison or null test.
func (ct ClauseType) SQL() (string, bool) {
	s, ok := clauseTypeSQL[ct]
	return s, ok
}

// ClauseOperator joins a clause to its previous sibling. The operator of the
// first clause in a list is ignored.
type ClauseOperator int

const (
	OperatorAnd ClauseOperator = iota
	OperatorOr
)

func (op ClauseOperator) SQL() string {
	if op == OperatorOr {
		return "OR"
	}
	return "AND"
}

// Clause is one node of a filter tree. Table may be left empty, in which case
// the table of the object being queried is used.
type Clause struct {
	Table    string
	Field    string
	Type     ClauseType
	Operator ClauseOperator
	Value    Value
	List     *ClauseList
}

// NewClause returns a comparison clause joined with AND.
func NewClause(field string, typ ClauseType, value Value) *Clause {
	return &Clause{Field: field, Type: typ, Value: value}
}

// NewNullClause returns an IS NULL (or IS NOT NULL) test on field.
func NewNullClause(field string, isNull bool) *Clause {
	typ := ClauseIsNull
	if !isNull {
		typ = ClauseIsNotNull
	}
	return &Clause{Field: field, Type: typ}
}

// NewNestedClause wraps list as a parenthesized sub-expression.
func NewNestedClause(list *ClauseList) *Clause {
	return &Clause{Type: ClauseNested, List: list}
}

func (c *Clause) validate() error {
	switch c.Type {
	case ClauseNested:
		if c.List == nil || c.List.Size() == 0 {
			return fmt.Errorf("%w: nested clause without clauses", ErrUnknown)
		}
		return nil
	case ClauseIsNull, ClauseIsNotNull:
		if c.Field == "" {
			return fmt.Errorf("%w: null clause without field", ErrUnknown)
		}
		return nil
	}
	if _, ok := c.Type.SQL(); !ok {
		return fmt.Errorf("%w: unknown clause type %d", ErrUnknown, c.Type)
	}
	if c.Field == "" {
		return fmt.Errorf("%w: clause without field", ErrUnknown)
	}
	if !c.Value.NotEmpty() {
		return fmt.Errorf("%w: clause on %q without value", ErrUnknown, c.Field)
	}
	return nil
}

// ClauseList is an ordered list of clauses. The order is the order in which
// the WHERE text is written and the parameters are bound.
type ClauseList struct {
	clauses []*Clause
}

func NewClauseList() *ClauseList {
	return &ClauseList{}
}

// Add appends a clause after checking that it is complete.
func (cl *ClauseList) Add(c *Clause) error {
	if c == nil {
		return fmt.Errorf("%w: nil clause", ErrUnknown)
	}
	if err := c.validate(); err != nil {
		return err
	}
	cl.clauses = append(cl.clauses, c)
	return nil
}

func (cl *ClauseList) Size() int {
	if cl == nil {
		return 0
	}
	return len(cl.clauses)
}

// Clauses returns the clauses in order. The slice is a copy.
func (cl *ClauseList) Clauses() []*Clause {
	if cl == nil {
		return nil
	}
	return append([]*Clause(nil), cl.clauses...)
}

// Join describes "INNER JOIN ToTable ON ToTable.ToField = FromTable.FromField".
type Join struct {
	FromTable string
	FromField string
	ToTable   string
	ToField   string
}

type JoinList struct {
	joins []*Join
}

func NewJoinList() *JoinList {
	return &JoinList{}
}

func (jl *JoinList) Add(j *Join) error {
	if j == nil || j.FromTable == "" || j.FromField == "" || j.ToTable == "" || j.ToField == "" {
		return fmt.Errorf("%w: incomplete join", ErrUnknown)
	}
	jl.joins = append(jl.joins, j)
	return nil
}

func (jl *JoinList) Size() int {
	if jl == nil {
		return 0
	}
	return len(jl.joins)
}

func (jl *JoinList) Joins() []*Join {
	if jl == nil {
		return nil
	}
	return append([]*Join(nil), jl.joins...)
}
