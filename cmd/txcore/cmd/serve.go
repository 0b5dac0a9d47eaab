package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, Version, log.Logger)
			if err != nil {
				log.Error("Failed to initialize", zap.Error(err))
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Warn("Shutdown finished with errors", zap.Error(err))
				}
			}()

			log.Info("Starting txcore", zap.String("version", Version), zap.String("listen", cfg.ListenAddr))
			if err := a.Serve(ctx); err != nil {
				log.Error("Server error", zap.Error(err))
				return err
			}
			log.Info("Stopped")
			return nil
		},
	}
}
