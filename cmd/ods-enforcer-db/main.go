/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * ods-enforcer-db - manage the OpenDNSSEC enforcer database
 */

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johanix/odsdb/cli"
	"github.com/johanix/odsdb/enforcer"
)

var appVersion = "0.1.0"
var appDate = "2025-10-01"

var rootCmd = &cobra.Command{
	Use:   enforcer.AppName,
	Short: "ods-enforcer-db manages the zone and key dependency tables of the OpenDNSSEC enforcer database",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd == versionCmd {
			return
		}
		cli.InitConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of " + enforcer.AppName,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s (%s)\n", enforcer.Globals.App.Name, appVersion, appDate)
	},
}

func main() {
	enforcer.Globals.App.Version = appVersion
	enforcer.Globals.App.Date = appDate

	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&enforcer.Globals.CfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", enforcer.DefaultCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&enforcer.Globals.Debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&enforcer.Globals.Verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd, cli.DbCmd, cli.ZoneCmd, cli.KeyDepCmd, cli.ConfigCmd, cli.ServeCmd)
}
