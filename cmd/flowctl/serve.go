package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/workflow/graph"
	"github.com/meikuraledutech/workflow/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow editing server",
	Long:  `Starts an HTTP server holding one editable workflow graph, backed by the configured repository.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "address to listen on (default :3000)")
	serveCmd.Flags().String("driver", "", "repository driver: memory, redis, postgres or sqlite")
	serveCmd.Flags().Bool("role-prefixed-ids", false, "mint agent_<n>/supervisor_<n> node ids")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := []graph.Option{graph.WithLogger(logger)}
	if cfg.IDs.RolePrefixed {
		opts = append(opts, graph.WithRolePrefixedIDs())
	}
	srv := server.New(graph.New(opts...), repo,
		server.WithLogger(logger),
		server.WithMaxImportBytes(cfg.Import.MaxBytes),
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", "driver", cfg.Repository.Driver)
		serverErrors <- srv.Listen(cfg.Listen)
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown()
	}
}
