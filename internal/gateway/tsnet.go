package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tailscale.com/tsnet"

	"github.com/nextlevelbuilder/opencompany/internal/config"
)

// StartTailscale serves mux on an embedded tailnet node when
// cfg.Tailscale.Enabled is set, so operators reach the dashboard without
// exposing a local port. Returns a nil cleanup when disabled.
func StartTailscale(ctx context.Context, cfg *config.Config, mux *http.ServeMux) (func(), error) {
	if !cfg.Tailscale.Enabled {
		return nil, nil
	}

	hostname := cfg.Tailscale.Hostname
	if hostname == "" {
		hostname = "opencompany"
	}
	dir := config.ExpandHome(cfg.Tailscale.StateDir)
	if dir == "" {
		dir = filepath.Join(config.StateDir(), "tsnet")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create tsnet state dir: %w", err)
	}

	ts := &tsnet.Server{
		Hostname:  hostname,
		Dir:       dir,
		AuthKey:   cfg.Tailscale.AuthKey,
		Ephemeral: cfg.Tailscale.Ephemeral,
		// tsnet logs every control-plane chatter line; keep it at debug.
		Logf: func(format string, args ...interface{}) {
			slog.Debug("tsnet: " + fmt.Sprintf(format, args...))
		},
	}

	var (
		ln  net.Listener
		err error
	)
	if cfg.Tailscale.EnableTLS {
		ln, err = ts.ListenTLS("tcp", ":443")
	} else {
		ln, err = ts.Listen("tcp", ":80")
	}
	if err != nil {
		ts.Close()
		return nil, fmt.Errorf("tsnet listen: %w", err)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("tailscale listener error", "error", serveErr)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("tailscale listener started", "hostname", hostname, "tls", cfg.Tailscale.EnableTLS)

	return func() {
		srv.Close()
		ts.Close()
	}, nil
}
