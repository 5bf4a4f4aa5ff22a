package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyramid-aftercare/portal/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built single-page application",
	Long: `Serves STATIC_DIR (default ./build) on PORT (default 3001). Paths that do
not match a file return index.html so client-side routes work on reload.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := a.cfg.StaticDir
		if _, err := os.Stat(dir); err != nil {
			a.log.Warn().Err(err).Str("static_dir", dir).Msg("static directory not readable, every request will 404")
		}

		e := api.NewSiteRouter(dir, a.log)
		return run(cmd.Context(), e, ":"+a.cfg.Port, a.log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// run starts e on addr and shuts it down gracefully when ctx is cancelled.
func run(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
