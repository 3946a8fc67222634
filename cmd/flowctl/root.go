package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/workflow/internal/config"
	"github.com/meikuraledutech/workflow/internal/logging"
)

var (
	version = "dev"
	cfgFile string
	cfg     = config.Defaults()
	logger  = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Edit, export and store agent/supervisor workflows",
	Long: `flowctl serves an editable agent/supervisor workflow graph over HTTP
and reads or validates workflow.json documents from the command line.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .workflow/config.yaml or ~/.config/workflow/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
}

func initConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger = logging.New(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
