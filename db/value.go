/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"fmt"
	"strings"
)

// Type is the database representable type of a Value or of an ObjectField.
type Type int

const (
	TypeEmpty Type = iota
	TypePrimaryKey
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeText
	TypeEnum
	TypeRevision
	TypeAny
)

var typeNames = map[Type]string{
	TypeEmpty:      "EMPTY",
	TypePrimaryKey: "PRIMARY_KEY",
	TypeInt32:      "INT32",
	TypeUint32:     "UINT32",
	TypeInt64:      "INT64",
	TypeUint64:     "UINT64",
	TypeText:       "TEXT",
	TypeEnum:       "ENUM",
	TypeRevision:   "REVISION",
	TypeAny:        "ANY",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TYPE(%d)", int(t))
}

// Enum is one entry of an enum set: the symbolic name and the integer code
// that is stored in the database.
type Enum struct {
	Text  string
	Value int
}

// EnumText looks up the symbolic name for value in set.
func EnumText(set []Enum, value int) (string, bool) {
	for _, e := range set {
		if e.Value == value {
			return e.Text, true
		}
	}
	return "", false
}

// EnumValue looks up the integer code for text in set.
func EnumValue(set []Enum, text string) (int, bool) {
	for _, e := range set {
		if e.Text == text {
			return e.Value, true
		}
	}
	return 0, false
}

// Value is a tagged scalar. The zero Value is Empty. Values are plain Go
// values: assigning or calling Copy yields an independent value.
type Value struct {
	typ      Type
	i64      int64
	u64      uint64
	text     string
	enumText string
}

// Type returns the variant currently held.
func (v Value) Type() Type {
	return v.typ
}

// NotEmpty reports whether the value has been assigned.
func (v Value) NotEmpty() bool {
	return v.typ != TypeEmpty
}

// Reset makes the value Empty again.
func (v *Value) Reset() {
	*v = Value{}
}

// Copy returns an independent copy of v.
func (v Value) Copy() Value {
	return v
}

func (v *Value) SetPrimaryKey(id int64) {
	*v = Value{typ: TypePrimaryKey, i64: id}
}

func (v *Value) SetInt32(n int32) {
	*v = Value{typ: TypeInt32, i64: int64(n)}
}

func (v *Value) SetUint32(n uint32) {
	*v = Value{typ: TypeUint32, u64: uint64(n)}
}

func (v *Value) SetInt64(n int64) {
	*v = Value{typ: TypeInt64, i64: n}
}

func (v *Value) SetUint64(n uint64) {
	*v = Value{typ: TypeUint64, u64: n}
}

func (v *Value) SetText(s string) {
	*v = Value{typ: TypeText, text: s}
}

func (v *Value) SetRevision(rev int64) {
	*v = Value{typ: TypeRevision, i64: rev}
}

// SetEnumValue stores the enum code n, which must be present in set.
func (v *Value) SetEnumValue(n int, set []Enum) error {
	text, ok := EnumText(set, n)
	if !ok {
		return fmt.Errorf("%w: enum value %d not in set", ErrUnknown, n)
	}
	*v = Value{typ: TypeEnum, i64: int64(n), enumText: text}
	return nil
}

// SetEnumText stores the enum code matching text, which must be present in set.
func (v *Value) SetEnumText(text string, set []Enum) error {
	n, ok := EnumValue(set, text)
	if !ok {
		return fmt.Errorf("%w: enum text %q not in set", ErrUnknown, text)
	}
	*v = Value{typ: TypeEnum, i64: int64(n), enumText: text}
	return nil
}

func (v Value) mismatch(want Type) error {
	return fmt.Errorf("%w: value is %s, not %s", ErrUnknown, v.typ, want)
}

func (v Value) PrimaryKey() (int64, error) {
	if v.typ != TypePrimaryKey {
		return 0, v.mismatch(TypePrimaryKey)
	}
	return v.i64, nil
}

func (v Value) Int32() (int32, error) {
	if v.typ != TypeInt32 {
		return 0, v.mismatch(TypeInt32)
	}
	return int32(v.i64), nil
}

func (v Value) Uint32() (uint32, error) {
	if v.typ != TypeUint32 {
		return 0, v.mismatch(TypeUint32)
	}
	return uint32(v.u64), nil
}

func (v Value) Int64() (int64, error) {
	if v.typ != TypeInt64 {
		return 0, v.mismatch(TypeInt64)
	}
	return v.i64, nil
}

func (v Value) Uint64() (uint64, error) {
	if v.typ != TypeUint64 {
		return 0, v.mismatch(TypeUint64)
	}
	return v.u64, nil
}

func (v Value) Text() (string, error) {
	if v.typ != TypeText {
		return "", v.mismatch(TypeText)
	}
	return v.text, nil
}

func (v Value) Revision() (int64, error) {
	if v.typ != TypeRevision {
		return 0, v.mismatch(TypeRevision)
	}
	return v.i64, nil
}

func (v Value) EnumValue() (int, error) {
	if v.typ != TypeEnum {
		return 0, v.mismatch(TypeEnum)
	}
	return int(v.i64), nil
}

func (v Value) EnumText() (string, error) {
	if v.typ != TypeEnum {
		return "", v.mismatch(TypeEnum)
	}
	return v.enumText, nil
}

// Integer returns the payload of any integer-like variant (primary key,
// signed, unsigned, revision, enum code) as an int64. Used where the schema
// only cares about the number, e.g. revision clauses and foreign keys.
func (v Value) Integer() (int64, error) {
	switch v.typ {
	case TypePrimaryKey, TypeInt32, TypeInt64, TypeRevision, TypeEnum:
		return v.i64, nil
	case TypeUint32, TypeUint64:
		if v.u64 > 1<<63-1 {
			return 0, fmt.Errorf("%w: %d does not fit int64", ErrUnknown, v.u64)
		}
		return int64(v.u64), nil
	}
	return 0, fmt.Errorf("%w: value is %s, not an integer", ErrUnknown, v.typ)
}

// Compare orders a and b. Empty sorts before everything, numeric variants
// compare numerically, text lexically and enums by code. Comparing two set
// values of different variants is an error.
func Compare(a, b Value) (int, error) {
	switch {
	case a.typ == TypeEmpty && b.typ == TypeEmpty:
		return 0, nil
	case a.typ == TypeEmpty:
		return -1, nil
	case b.typ == TypeEmpty:
		return 1, nil
	}
	if a.typ != b.typ {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrUnknown, a.typ, b.typ)
	}

	switch a.typ {
	case TypePrimaryKey, TypeInt32, TypeInt64, TypeRevision, TypeEnum:
		return cmpOrdered(a.i64, b.i64), nil
	case TypeUint32, TypeUint64:
		return cmpOrdered(a.u64, b.u64), nil
	case TypeText:
		return strings.Compare(a.text, b.text), nil
	}
	return 0, fmt.Errorf("%w: cannot compare values of type %s", ErrUnknown, a.typ)
}

func cmpOrdered[T int64 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Value) String() string {
	switch v.typ {
	case TypeEmpty:
		return "<empty>"
	case TypePrimaryKey, TypeInt32, TypeInt64, TypeRevision:
		return fmt.Sprintf("%d", v.i64)
	case TypeUint32, TypeUint64:
		return fmt.Sprintf("%d", v.u64)
	case TypeText:
		return v.text
	case TypeEnum:
		return fmt.Sprintf("%s(%d)", v.enumText, v.i64)
	}
	return fmt.Sprintf("<%s>", v.typ)
}

// ValueSet is a fixed length, positional row of values.
type ValueSet struct {
	values []Value
}

func NewValueSet(size int) *ValueSet {
	if size < 0 {
		size = 0
	}
	return &ValueSet{values: make([]Value, size)}
}

func (vs *ValueSet) Size() int {
	if vs == nil {
		return 0
	}
	return len(vs.values)
}

// At returns the value at position i, or nil when i is out of range.
func (vs *ValueSet) At(i int) *Value {
	if vs == nil || i < 0 || i >= len(vs.values) {
		return nil
	}
	return &vs.values[i]
}
