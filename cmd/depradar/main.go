package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"depradar/internal/app"
	"depradar/internal/config"
)

var version = "dev"

var (
	flagConfig string
	flagEvery  time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "depradar",
	Short:        "Dependency-aware relevance radar for feeds and releases",
	Long:         "depradar scans syndication feeds and GitHub releases, scores each item against your project's fingerprint, and writes a report of items worth reading.",
	RunE:         runScan,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("depradar %s\n", version)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.Flags().DurationVar(&flagEvery, "every", 0, "rerun the scan on this interval (e.g. 6h); zero runs once")

	rootCmd.AddCommand(versionCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if flagConfig != "" {
		os.Setenv("DEPRADAR_CONFIG", flagConfig)
	}
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagEvery > 0 {
		return application.RunEvery(ctx, flagEvery)
	}
	return application.RunOnce(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
