// Package cli implements the portal command: the static site server, the
// identity API, schema migrations and the session commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyramid-aftercare/portal/internal/infrastructure/config"
	"github.com/pyramid-aftercare/portal/pkg/logger"
)

// app carries what every command needs after PersistentPreRunE.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

var (
	a        = &app{}
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Pyramid After Care patient and staff portal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		a.cfg = cfg
		a.log = logger.Init(logger.Options{
			Level:   cfg.LogLevel,
			Console: !cfg.IsProduction(),
			Service: "portal",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		return err
	}
	return nil
}
