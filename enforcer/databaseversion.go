/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"context"

	"github.com/johanix/odsdb/db"
)

const databaseVersionTable = "databaseVersion"

func databaseVersionFields() *db.ObjectFieldList {
	return db.NewObjectFieldList().
		MustAdd("id", db.TypePrimaryKey).
		MustAdd("rev", db.TypeRevision).
		MustAdd("version", db.TypeUint32)
}

// DatabaseVersion is the single row recording the schema version.
type DatabaseVersion struct {
	obj     *db.Object
	ID      int64  `json:"id"`
	Rev     int64  `json:"rev"`
	Version uint32 `json:"version"`
}

func NewDatabaseVersion(conn *db.Connection) (*DatabaseVersion, error) {
	obj, err := db.NewObject(conn, databaseVersionTable, primaryKeyName, databaseVersionFields())
	if err != nil {
		return nil, err
	}
	return &DatabaseVersion{obj: obj}, nil
}

func (dv *DatabaseVersion) FromResult(r *db.Result) error {
	s := newRowScanner(r, dv.obj.ObjectFieldList())
	s.primaryKey(&dv.ID)
	s.revision(&dv.Rev)
	s.uint32(&dv.Version)
	return s.err
}

func (dv *DatabaseVersion) values() *db.ValueSet {
	vs := newValueSetter(1)
	vs.next().SetUint32(dv.Version)
	return vs.vs
}

func (dv *DatabaseVersion) Create(ctx context.Context) error {
	if dv.ID != 0 {
		return db.Errorf("databaseVersion %d already exists", dv.ID)
	}
	id, err := createRow(ctx, dv.obj, dv.values())
	if err != nil {
		return err
	}
	dv.ID, dv.Rev = id, 1
	return nil
}

func (dv *DatabaseVersion) GetByID(ctx context.Context, id int64) error {
	r, err := readByID(ctx, dv.obj, id)
	if err != nil {
		return err
	}
	return dv.FromResult(r)
}

func (dv *DatabaseVersion) Update(ctx context.Context) error {
	if err := updateRow(ctx, dv.obj, dv.ID, dv.Rev, dv.values()); err != nil {
		return err
	}
	dv.Rev++
	return nil
}

func (dv *DatabaseVersion) Delete(ctx context.Context) error {
	return deleteRow(ctx, dv.obj, dv.ID, dv.Rev)
}

type DatabaseVersionList struct {
	list
}

func NewDatabaseVersionList(conn *db.Connection) (*DatabaseVersionList, error) {
	obj, err := db.NewObject(conn, databaseVersionTable, primaryKeyName, databaseVersionFields())
	if err != nil {
		return nil, err
	}
	return &DatabaseVersionList{list{obj: obj}}, nil
}

func (dvl *DatabaseVersionList) GetAll(ctx context.Context) error {
	return dvl.read(ctx, nil, nil)
}

func (dvl *DatabaseVersionList) GetByClauses(ctx context.Context, clauses *db.ClauseList) error {
	return dvl.read(ctx, nil, clauses)
}

// Next returns the next version row, or nil at the end of the list.
func (dvl *DatabaseVersionList) Next() (*DatabaseVersion, error) {
	r, err := dvl.next()
	if err != nil || r == nil {
		return nil, err
	}
	dv := &DatabaseVersion{obj: dvl.obj}
	if err := dv.FromResult(r); err != nil {
		return nil, err
	}
	return dv, nil
}

func CountDatabaseVersions(ctx context.Context, conn *db.Connection, clauses *db.ClauseList) (uint32, error) {
	obj, err := db.NewObject(conn, databaseVersionTable, primaryKeyName, databaseVersionFields())
	if err != nil {
		return 0, err
	}
	return obj.Count(ctx, clauses)
}
