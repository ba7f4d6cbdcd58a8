package main

import (
	"log/slog"
	"net/http"
	"time"

	"OpenCodeWeb/internal/config"
	"OpenCodeWeb/internal/opencode"
	"OpenCodeWeb/internal/telemetry"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	debug   bool
	baseURL string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "opencodeweb",
		Short:         "Chat front end for an opencode server",
		Long:          "opencodeweb proxies an opencode server over HTTP and offers a browser and terminal chat view.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (default ~/.config/opencodeweb/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "opencode server address (default "+config.DefaultBaseURL+")")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newChatCmd(opts))
	rootCmd.AddCommand(newProbeCmd(opts))
	rootCmd.AddCommand(newJournalCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig reads the config file and env, then applies flag overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newClient(cfg *config.Config, logger *slog.Logger, tel *telemetry.Telemetry) *opencode.Client {
	opts := []opencode.Option{
		opencode.WithDefaults(cfg.ProviderID, cfg.ModelID),
		opencode.WithAppInfoTTL(cfg.AppInfoTTL),
	}
	if logger != nil {
		opts = append(opts, opencode.WithLogger(logger))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, opencode.WithHTTPClient(httpClient(cfg.Timeout)))
	}
	if tel != nil {
		opts = append(opts, opencode.WithTracer(tel.Tracer), opencode.WithMeter(tel.Meter))
	}
	return opencode.NewClient(cfg.BaseURL, opts...)
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
