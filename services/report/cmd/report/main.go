// Package main implements the activity report CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ktassist/internal/util"
	"ktassist/pkg/store"
	"ktassist/services/report/internal/app"
	"ktassist/services/report/internal/config"
)

var (
	configPath  string
	databaseURL string
	timeout     time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the login and upload activity report",
	Long: `report reads the user_logins and file_uploads tables and prints which
uploaders have a recorded login and which do not.

Examples:
  # Use config.yaml / DATABASE_URL
  report

  # Point at a specific database
  report --database-url postgres://kt:kt@localhost:5432/kt`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runReport,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", config.ConfigPath, "config file path")
	rootCmd.Flags().StringVar(&databaseURL, "database-url", "", "database DSN (overrides config and DATABASE_URL)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall query timeout")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, databaseURL)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	logger := util.InitLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)

	activity, err := store.Open(cfg.DatabaseURL, store.WithLogWriter(cmd.ErrOrStderr()))
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to connect to database: %v\n", err)
		return err
	}
	if closer, ok := activity.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	rep := app.Collect(ctx, activity)
	if rep.LoginErr != nil {
		logger.Warn("fetch user logins failed", "err", rep.LoginErr)
	}
	if rep.UploadErr != nil {
		logger.Warn("fetch file uploads failed", "err", rep.UploadErr)
	}
	return app.Render(cmd.OutOrStdout(), rep)
}
