/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * Database schema for the enforcer tables, per SQL dialect
 */

package enforcer

import (
	"context"
	"fmt"
	"log"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/db/mysql"
	"github.com/johanix/odsdb/db/sqlite"
)

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS databaseVersion (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rev INTEGER NOT NULL DEFAULT 1,
		version INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS zone (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rev INTEGER NOT NULL DEFAULT 1,
		name TEXT NOT NULL,
		policy TEXT NOT NULL DEFAULT '',
		signconfNeedsWriting INTEGER NOT NULL DEFAULT 0,
		signconfPath TEXT NOT NULL DEFAULT '',
		nextChange INTEGER NOT NULL DEFAULT -1,
		ttlEndDs INTEGER NOT NULL DEFAULT 0,
		ttlEndDk INTEGER NOT NULL DEFAULT 0,
		ttlEndRs INTEGER NOT NULL DEFAULT 0,
		rollKskNow INTEGER NOT NULL DEFAULT 0,
		rollZskNow INTEGER NOT NULL DEFAULT 0,
		rollCskNow INTEGER NOT NULL DEFAULT 0,
		inputAdapterType TEXT NOT NULL DEFAULT '',
		inputAdapterUri TEXT NOT NULL DEFAULT '',
		outputAdapterType TEXT NOT NULL DEFAULT '',
		outputAdapterUri TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS zoneName ON zone (name)`,

	`CREATE TABLE IF NOT EXISTS keyDependency (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rev INTEGER NOT NULL DEFAULT 1,
		zoneId INTEGER NOT NULL,
		fromKeyDataId INTEGER NOT NULL,
		toKeyDataId INTEGER NOT NULL,
		type INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS keyDependencyZoneId ON keyDependency (zoneId)`,
}

var schemaMySQL = []string{
	`CREATE TABLE IF NOT EXISTS databaseVersion (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		rev INT NOT NULL DEFAULT 1,
		version INT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS zone (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		rev INT NOT NULL DEFAULT 1,
		name VARCHAR(255) NOT NULL,
		policy VARCHAR(255) NOT NULL DEFAULT '',
		signconfNeedsWriting INT NOT NULL DEFAULT 0,
		signconfPath VARCHAR(4096) NOT NULL DEFAULT '',
		nextChange INT NOT NULL DEFAULT -1,
		ttlEndDs INT UNSIGNED NOT NULL DEFAULT 0,
		ttlEndDk INT UNSIGNED NOT NULL DEFAULT 0,
		ttlEndRs INT UNSIGNED NOT NULL DEFAULT 0,
		rollKskNow INT UNSIGNED NOT NULL DEFAULT 0,
		rollZskNow INT UNSIGNED NOT NULL DEFAULT 0,
		rollCskNow INT UNSIGNED NOT NULL DEFAULT 0,
		inputAdapterType VARCHAR(255) NOT NULL DEFAULT '',
		inputAdapterUri VARCHAR(4096) NOT NULL DEFAULT '',
		outputAdapterType VARCHAR(255) NOT NULL DEFAULT '',
		outputAdapterUri VARCHAR(4096) NOT NULL DEFAULT '',
		UNIQUE INDEX zoneName (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS keyDependency (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		rev INT NOT NULL DEFAULT 1,
		zoneId BIGINT NOT NULL,
		fromKeyDataId BIGINT NOT NULL,
		toKeyDataId BIGINT NOT NULL,
		type INT NOT NULL,
		INDEX keyDependencyZoneId (zoneId)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

func schemaFor(backend string) ([]string, error) {
	switch backend {
	case sqlite.BackendName:
		return schemaSQLite, nil
	case mysql.BackendName:
		return schemaMySQL, nil
	}
	return nil, fmt.Errorf("no schema for database backend %q", backend)
}

// SetupSchema creates the enforcer tables that do not yet exist and records
// the database version in a fresh database.
func SetupSchema(ctx context.Context, conn *db.Connection) error {
	schema, err := schemaFor(conn.BackendName())
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	n, err := CountDatabaseVersions(ctx, conn, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		_, err := CheckDatabaseVersion(ctx, conn)
		return err
	}

	dv, err := NewDatabaseVersion(conn)
	if err != nil {
		return err
	}
	dv.Version = DatabaseVersionCurrent
	if err := dv.Create(ctx); err != nil {
		return err
	}
	log.Printf("SetupSchema: initialized %s database, version %d", conn.BackendName(), dv.Version)
	return nil
}

// CheckDatabaseVersion returns the recorded database version, failing if
// there is not exactly one version row or it is not the one this code
// understands.
func CheckDatabaseVersion(ctx context.Context, conn *db.Connection) (uint32, error) {
	dvl, err := NewDatabaseVersionList(conn)
	if err != nil {
		return 0, err
	}
	if err := dvl.GetAll(ctx); err != nil {
		return 0, err
	}
	defer dvl.Close()

	var versions []*DatabaseVersion
	for {
		dv, err := dvl.Next()
		if err != nil {
			return 0, err
		}
		if dv == nil {
			break
		}
		versions = append(versions, dv)
	}
	switch {
	case len(versions) == 0:
		return 0, fmt.Errorf("%w: database has no version, run \"db init\"", db.ErrUnknown)
	case len(versions) > 1:
		return 0, fmt.Errorf("%w: database has %d version rows", db.ErrUnknown, len(versions))
	case versions[0].Version != DatabaseVersionCurrent:
		return versions[0].Version, fmt.Errorf("%w: database version is %d, expected %d",
			db.ErrUnknown, versions[0].Version, DatabaseVersionCurrent)
	}
	return versions[0].Version, nil
}
