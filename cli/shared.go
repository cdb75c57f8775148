/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/johanix/odsdb/db"
	"github.com/johanix/odsdb/enforcer"
)

var Conf *enforcer.Config

var dbRuntime = enforcer.NewRuntime()

var zonename, policy, keydepType string
var zoneID, keydepID, fromKeyID, toKeyID int64
var showYaml bool

// InitConfig loads the configuration file. It is run by cobra before any
// command.
func InitConfig() {
	enforcer.SetupCliLogging()
	conf, err := enforcer.ParseConfig(viper.GetViper(), enforcer.Globals.CfgFile)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	Conf = conf
}

// connect validates the database configuration and opens a connection.
// The caller disconnects.
func connect(ctx context.Context) *db.Connection {
	if Conf == nil {
		log.Fatalf("Error: no configuration loaded")
	}
	if err := enforcer.ValidateConfig(Conf, enforcer.Globals.CfgFile, "database"); err != nil {
		log.Fatalf("Error: %v", err)
	}
	conn, err := enforcer.Connect(ctx, dbRuntime, &Conf.Database)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	return conn
}

func disconnect(conn *db.Connection) {
	if err := conn.Disconnect(); err != nil {
		log.Printf("Error disconnecting from database: %v", err)
	}
}

func addZoneFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&zonename, "zone", "z", "", "zone name")
}

func addYamlFlag(fs *pflag.FlagSet) {
	fs.BoolVarP(&showYaml, "yaml", "", false, "output in YAML")
}

func PrepArgs(required ...string) {
	for _, arg := range required {
		if enforcer.Globals.Debug {
			fmt.Printf("Required: %s\n", arg)
		}
		switch arg {
		case "zonename":
			if zonename == "" {
				fmt.Printf("Error: zone name not specified using --zone flag\n")
				os.Exit(1)
			}
			if err := enforcer.ValidZoneName(zonename); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}

		case "policy":
			if policy == "" {
				fmt.Printf("Error: policy not specified using --policy flag\n")
				os.Exit(1)
			}

		case "keydepid":
			if keydepID == 0 {
				fmt.Printf("Error: key dependency id not specified using --id flag\n")
				os.Exit(1)
			}

		case "keys":
			if fromKeyID == 0 || toKeyID == 0 {
				fmt.Printf("Error: both --from and --to key ids must be specified\n")
				os.Exit(1)
			}

		case "keydeptype":
			if keydepType == "" {
				fmt.Printf("Error: key dependency type not specified using --type flag\n")
				os.Exit(1)
			}

		default:
			fmt.Printf("Unknown required argument: %q\n", arg)
			os.Exit(1)
		}
	}
}
