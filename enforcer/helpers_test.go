/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package enforcer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/sqlite"
)

func newDatabaseFile(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "kasp.db")
	f, err := os.Create(file)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return file
}

// newTestConnection returns a connection to a fresh sqlite database with
// the enforcer schema in place.
func newTestConnection(t *testing.T) *db.Connection {
	dc := &DatabaseConf{
		Backend: sqlite.BackendName,
		Sqlite:  SqliteConf{File: newDatabaseFile(t)},
	}
	conn, err := Connect(context.Background(), NewRuntime(), dc)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Disconnect() })
	require.NoError(t, SetupSchema(context.Background(), conn))
	return conn
}

func addZone(t *testing.T, conn *db.Connection, name string) *Zone {
	z, err := NewZone(conn)
	require.NoError(t, err)
	z.Name = name
	z.Policy = "default"
	z.SignconfPath = "/var/opendnssec/signconf/" + name + ".xml"
	z.InputAdapterType = "File"
	z.InputAdapterURI = "/var/opendnssec/unsigned/" + name
	z.OutputAdapterType = "File"
	z.OutputAdapterURI = "/var/opendnssec/signed/" + name
	require.NoError(t, z.Create(context.Background()))
	return z
}

func addKeyDependency(t *testing.T, conn *db.Connection, zoneID, from, to int64, typ KeyDependencyType) *KeyDependency {
	kd, err := NewKeyDependency(conn)
	require.NoError(t, err)
	kd.ZoneID, kd.FromKeyDataID, kd.ToKeyDataID, kd.Type = zoneID, from, to, typ
	require.NoError(t, kd.Create(context.Background()))
	return kd
}
