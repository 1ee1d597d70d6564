package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bore/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an arena over HTTP and WebSocket",
		Long: `Start an HTTP server holding one arena.

Endpoints:
  POST /mount     mount markup, or {"markup"} / {"source"} as JSON
  GET  /query     ?q=...&kind=...
  GET  /wait      ?q=...&kind=...&timeout=500ms
  POST /diff      {"a", "b", "children"}
  GET  /ws        the same operations as JSON frames
  GET  /metrics   Prometheus metrics
  GET  /healthz

Examples:
  bore serve
  bore serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.FromConfig(a.cfg, a.logger)
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")

	return cmd
}
