package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"OpenCodeWeb/internal/chat"
	"OpenCodeWeb/internal/telemetry"
	"OpenCodeWeb/internal/tui"

	"github.com/spf13/cobra"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the opencode server in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			// The terminal belongs to the UI, so logs only go to the file.
			logger, closeLog, err := telemetry.InitLogger(telemetry.LoggerConfig{
				Dir:   cfg.LogDir,
				Debug: cfg.Debug,
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

			client := newClient(cfg, logger, tel)
			orch := chat.New(client, chat.WithLogger(logger), chat.WithTracer(tel.Tracer))
			defer orch.Close()

			logger.Info("starting terminal chat", "base_url", client.BaseURL())
			return tui.Run(ctx, orch, cfg.SessionTitle, logger)
		},
	}
}
