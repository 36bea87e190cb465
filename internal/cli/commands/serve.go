package commands

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"minidb/internal/engine"
	"minidb/internal/server"
)

// NewServeCommand creates the server command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MiniDB server",
		Long: `Serve the data directory over the TCP line protocol and, when
server.http_addr is set, the HTTP API. Stops cleanly on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := GetConfig(ctx)
			logger := GetLogger(ctx)

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			eng := engine.New(store, logger)
			if err := eng.Start(); err != nil {
				_ = store.Close()
				return err
			}

			srv := server.New(eng, server.Config{
				Addr:     cfg.Server.Addr,
				HTTPAddr: cfg.Server.HTTPAddr,
				Logger:   logger,
			})
			serveErr := srv.ListenAndServe(ctx)

			logger.Info("server stopped")
			return errors.Join(serveErr, eng.Close())
		},
	}
}
