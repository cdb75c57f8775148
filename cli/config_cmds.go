/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"github.com/gookit/goutil/dump"
	"github.com/spf13/cobra"

	"github.com/johanix/odsdb/enforcer"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the parsed configuration, with secrets masked",
	Run: func(cmd *cobra.Command, args []string) {
		conf := *Conf
		if conf.Database.Mysql.Pass != "" {
			conf.Database.Mysql.Pass = "********"
		}
		if conf.ApiServer.ApiKey != "" {
			conf.ApiServer.ApiKey = "********"
		}
		if enforcer.Globals.Verbose {
			dump.P(conf)
			return
		}
		printYaml(conf)
	},
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
}
