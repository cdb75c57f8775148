/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/johanix/odsdb/db/sqlite"
	"github.com/johanix/odsdb/enforcer"
)

var createDbFile bool

var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the enforcer database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the enforcer tables and record the database version",
	Run: func(cmd *cobra.Command, args []string) {
		if createDbFile && Conf.Database.Backend == sqlite.BackendName {
			if err := createSqliteFile(Conf.Database.Sqlite.File); err != nil {
				log.Fatalf("Error: %v", err)
			}
		}

		conn := connect(cmd.Context())
		defer disconnect(conn)

		if err := enforcer.SetupSchema(cmd.Context(), conn); err != nil {
			log.Fatalf("Error initializing database: %v", err)
		}
		fmt.Printf("Database initialized (%s, version %d)\n", conn.BackendName(), enforcer.DatabaseVersionCurrent)
	},
}

var dbVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the database version",
	Run: func(cmd *cobra.Command, args []string) {
		conn := connect(cmd.Context())
		defer disconnect(conn)

		v, err := enforcer.CheckDatabaseVersion(cmd.Context(), conn)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("Database version %d (%s backend)\n", v, conn.BackendName())
	},
}

// createSqliteFile creates an empty database file unless it already exists.
func createSqliteFile(file string) error {
	if file == "" {
		return fmt.Errorf("database.sqlite.file not set")
	}
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("error creating %s: %v", file, err)
	}
	return f.Close()
}

func init() {
	DbCmd.AddCommand(dbInitCmd, dbVersionCmd)

	dbInitCmd.Flags().BoolVarP(&createDbFile, "create", "", false, "create the sqlite database file if missing")
}
