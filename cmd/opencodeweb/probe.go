package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"OpenCodeWeb/internal/opencode"

	"github.com/spf13/cobra"
)

func newProbeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Test the connection to the opencode server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			client := newClient(cfg, logger, nil)
			return probe(cmd.Context(), client, cmd.OutOrStdout())
		},
	}
}

func probe(ctx context.Context, client *opencode.Client, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := client.GetAppInfo(ctx)
	if err != nil {
		fmt.Fprintf(out, "connected: false (%s)\n", client.BaseURL())
		return errors.New(opencode.HandleError(err))
	}

	fmt.Fprintf(out, "connected: true (%s)\n", client.BaseURL())
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, info, "", "  "); err != nil {
		out.Write(info)
	} else {
		pretty.WriteTo(out)
	}
	fmt.Fprintln(out)
	return nil
}
