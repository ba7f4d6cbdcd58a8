package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"OpenCodeWeb/internal/chat"
	"OpenCodeWeb/internal/server"
	"OpenCodeWeb/internal/telemetry"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API route, live channel and browser page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logger, closeLog, err := telemetry.InitLogger(telemetry.LoggerConfig{
				Dir:    cfg.LogDir,
				Debug:  cfg.Debug,
				Mirror: os.Stderr,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tel, err := telemetry.InitTelemetry(ctx, cfg.LogDir, version)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer tel.Shutdown()

			var recorder server.Recorder
			journal, err := telemetry.InitDB(cfg.DBPath())
			if err != nil {
				logger.Warn("request journal disabled", "error", err)
			} else {
				defer journal.Close()
				recorder = journal
			}

			client := newClient(cfg, logger, tel)
			route := server.NewRouteHandler(client, recorder, logger)
			live := server.NewLiveHandler(client, cfg.SessionTitle, logger, chat.WithTracer(tel.Tracer))

			logger.Info("opencode server", "base_url", client.BaseURL(), "provider", cfg.ProviderID, "model", cfg.ModelID)
			srv := server.New(fmt.Sprintf(":%d", cfg.Port), route, live, logger)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default 3000, env SERVER_PORT)")
	return cmd
}
