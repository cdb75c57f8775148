/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"context"
	"log"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/mysql"
	"github.com/johanix/odsdb/db/sqlite"
)

// NewRuntime returns a database runtime with the sqlite and mysql backends
// registered.
func NewRuntime() *db.Runtime {
	rt := db.NewRuntime()
	sqlite.Register(rt)
	mysql.Register(rt)
	return rt
}

// Connect opens a connection to the database described by dc.
func Connect(ctx context.Context, rt *db.Runtime, dc *DatabaseConf) (*db.Connection, error) {
	cl, err := dc.ConfigurationList()
	if err != nil {
		return nil, err
	}
	conn := db.NewConnection(rt, cl)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	if Globals.Verbose {
		log.Printf("Connected to %s database", conn.BackendName())
	}
	return conn, nil
}
