/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import "fmt"

// ObjectField describes one column of a table.
type ObjectField struct {
	Name    string
	Type    Type
	EnumSet []Enum
}

// ObjectFieldList is the ordered column list of a table. Its order is the
// order of SQL columns, of bind parameters and of ValueSet positions.
type ObjectFieldList struct {
	fields []*ObjectField
}

func NewObjectFieldList() *ObjectFieldList {
	return &ObjectFieldList{}
}

// Add appends a field. Names must be unique within the list.
func (ofl *ObjectFieldList) Add(f *ObjectField) error {
	if f == nil {
		return fmt.Errorf("%w: nil object field", ErrUnknown)
	}
	if f.Name == "" {
		return fmt.Errorf("%w: object field without name", ErrUnknown)
	}
	if f.Type == TypeEmpty {
		return fmt.Errorf("%w: object field %q has no type", ErrUnknown, f.Name)
	}
	if f.Type == TypeEnum && len(f.EnumSet) == 0 {
		return fmt.Errorf("%w: enum field %q has no enum set", ErrUnknown, f.Name)
	}
	if _, i := ofl.Find(f.Name); i >= 0 {
		return fmt.Errorf("%w: duplicate object field %q", ErrUnknown, f.Name)
	}
	ofl.fields = append(ofl.fields, f)
	return nil
}

// MustAdd is Add for static schema definitions; it panics on error.
func (ofl *ObjectFieldList) MustAdd(name string, typ Type, enums ...Enum) *ObjectFieldList {
	if err := ofl.Add(&ObjectField{Name: name, Type: typ, EnumSet: enums}); err != nil {
		panic(err)
	}
	return ofl
}

func (ofl *ObjectFieldList) Size() int {
	if ofl == nil {
		return 0
	}
	return len(ofl.fields)
}

func (ofl *ObjectFieldList) At(i int) *ObjectField {
	if ofl == nil || i < 0 || i >= len(ofl.fields) {
		return nil
	}
	return ofl.fields[i]
}

// Fields returns the fields in order. The slice is a copy.
func (ofl *ObjectFieldList) Fields() []*ObjectField {
	if ofl == nil {
		return nil
	}
	return append([]*ObjectField(nil), ofl.fields...)
}

// Find returns the named field and its position, or nil and -1.
func (ofl *ObjectFieldList) Find(name string) (*ObjectField, int) {
	if ofl == nil {
		return nil, -1
	}
	for i, f := range ofl.fields {
		if f.Name == name {
			return f, i
		}
	}
	return nil, -1
}

// Copy returns a deep copy of the list.
func (ofl *ObjectFieldList) Copy() *ObjectFieldList {
	n := &ObjectFieldList{}
	if ofl == nil {
		return n
	}
	for _, f := range ofl.fields {
		c := *f
		c.EnumSet = append([]Enum(nil), f.EnumSet...)
		n.fields = append(n.fields, &c)
	}
	return n
}
