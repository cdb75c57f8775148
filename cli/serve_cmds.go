/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johanix/odsdb/enforcer"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only database API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := enforcer.ValidateConfig(Conf, enforcer.Globals.CfgFile, "log", "apiserver"); err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := enforcer.SetupLogging(Conf.Log.File); err != nil {
			log.Fatalf("Error: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conn := connect(ctx)
		if _, err := enforcer.CheckDatabaseVersion(ctx, conn); err != nil {
			log.Fatalf("Error: %v", err)
		}

		router, err := enforcer.SetupAPIRouter(Conf, conn)
		if err != nil {
			log.Fatalf("Error setting up API router: %v", err)
		}
		if err := enforcer.APIdispatcher(ctx, Conf, router); err != nil && ctx.Err() == nil {
			log.Printf("Error: %v", err)
		}
		log.Printf("%s: shutting down", enforcer.Globals.App.Name)
		disconnect(conn)
		if err := dbRuntime.Shutdown(); err != nil {
			log.Printf("Error shutting down database runtime: %v", err)
		}
	},
}
