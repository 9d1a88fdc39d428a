package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/server"
)

var (
	servePort     int
	serveHostname string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FlexMod HTTP API",
	Long: `Start an HTTP server that exposes the mods under the mods directory:
their documents, settings and presets, apply and check, and an SSE stream
of patch events.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, else 4780)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on (default from config, else 127.0.0.1)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := server.ConfigFrom(appConfig)
	if servePort > 0 {
		cfg.Port = servePort
	}
	if serveHostname != "" {
		cfg.Hostname = serveHostname
	}

	srv := server.New(cfg, appConfig, modService())

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr()).Str("modsDir", appConfig.ModsDir).Msg("server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	cmd.Printf("FlexMod API on http://%s\n", srv.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
