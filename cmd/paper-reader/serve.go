// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/internal/server"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the entity API, websocket reader sessions, and metrics",
	Long: `Serve exposes the local entity database as a REST API under /api/v0,
opens a reader session for each websocket connection to /ws?paper=<id>,
and serves Prometheus metrics at /metrics. Session state is pushed to the
client after every change; navigation is sent as scroll events.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("corpus", "", "highlight corpus file (JSON or YAML)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bindCommandFlags(cmd, map[string]string{
		"server.addr":       "addr",
		"highlights.corpus": "corpus",
	}); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()
	srv := server.New(server.Options{
		Backend: db,
		Log:     log,
		Metrics: m,
		NewReader: func(paper types.PaperID, nav *viewer.Navigator) (*reader.Reader, error) {
			return newReader(cfg, paper, sessionOptions{backend: db, nav: nav, metrics: m})
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
