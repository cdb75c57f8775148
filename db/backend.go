/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import "context"

// Backend is implemented by every concrete database engine. A Connection
// forwards all Object operations to exactly one Backend.
//
// A Backend is not safe for concurrent use by several goroutines unless the
// implementation says otherwise; callers serialise access per connection.
type Backend interface {
	Connect(ctx context.Context, cfg *ConfigurationList) error
	Disconnect() error

	// Create inserts one row. If the object has a revision field it is
	// set to 1 by the backend.
	Create(ctx context.Context, obj *Object, fields *ObjectFieldList, values *ValueSet) error

	// Read returns a lazy cursor. A nil fields list selects all fields of
	// the object, in schema order.
	Read(ctx context.Context, obj *Object, fields *ObjectFieldList, joins *JoinList, clauses *ClauseList) (*ResultList, error)

	// Update and Delete require an equality clause on the revision field
	// when the object has one, and fail with ErrStaleRevision when no row
	// matched.
	Update(ctx context.Context, obj *Object, fields *ObjectFieldList, values *ValueSet, clauses *ClauseList) error
	Delete(ctx context.Context, obj *Object, clauses *ClauseList) error

	Count(ctx context.Context, obj *Object, joins *JoinList, clauses *ClauseList) (uint32, error)

	TransactionBegin(ctx context.Context) error
	TransactionCommit() error
	TransactionRollback() error
}

// LastInsertIDer is implemented by backends that can report the primary key
// assigned by the most recent Create.
type LastInsertIDer interface {
	LastInsertID() (int64, error)
}

// SchemaExecer is implemented by backends that can run raw statements,
// typically schema DDL.
type SchemaExecer interface {
	Exec(ctx context.Context, stmt string) error
}

// BackendFactory creates an unconnected backend bound to a runtime.
type BackendFactory func(rt *Runtime) Backend
