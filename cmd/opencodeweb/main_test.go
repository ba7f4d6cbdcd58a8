package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"OpenCodeWeb/internal/config"
	"OpenCodeWeb/internal/opencode"
	"OpenCodeWeb/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("OPENCODE_BASE_URL", "http://from-env:4096")

	opts := &rootOptions{cfgFile: filepath.Join(t.TempDir(), "missing.yaml")}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:4096", cfg.BaseURL)
	assert.False(t, cfg.Debug)

	opts.baseURL = "http://from-flag:4096"
	opts.debug = true
	cfg, err = opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:4096", cfg.BaseURL)
	assert.True(t, cfg.Debug)
}

func TestNewClientDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.BaseURL = "http://localhost:9999/"
	client := newClient(cfg, nil, nil)
	assert.Equal(t, "http://localhost:9999", client.BaseURL())
}

func TestProbe(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/app", r.URL.Path)
			w.Write([]byte(`{"data":{"version":"0.1.0"}}`))
		}))
		defer srv.Close()

		var out bytes.Buffer
		err := probe(context.Background(), opencode.NewClient(srv.URL), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "connected: true")
		assert.Contains(t, out.String(), `"version": "0.1.0"`)
	})

	t.Run("error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"maintenance"}`, http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		var out bytes.Buffer
		err := probe(context.Background(), opencode.NewClient(srv.URL), &out)
		require.Error(t, err)
		assert.Equal(t, "API Error (503): maintenance", err.Error())
		assert.Contains(t, out.String(), "connected: false")
	})
}

func TestPrintEntries(t *testing.T) {
	var out bytes.Buffer
	printEntries(&out, nil)
	assert.Equal(t, "No requests recorded\n", out.String())

	out.Reset()
	printEntries(&out, []telemetry.Entry{{
		Action:    "send_message",
		SessionID: "ses_1",
		Status:    500,
		Duration:  1500 * time.Millisecond,
		Error:     "API Error (500): boom",
		CreatedAt: time.Now(),
	}})
	assert.Contains(t, out.String(), "ACTION")
	assert.Contains(t, out.String(), "send_message")
	assert.Contains(t, out.String(), "1.5s")
	assert.Contains(t, out.String(), "API Error (500): boom")
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "opencodeweb dev (commit none, built unknown)\n", out.String())
}
