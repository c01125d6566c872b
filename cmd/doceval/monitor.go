package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/monitor"
)

var monitorInterval time.Duration

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "refresh interval")
	monitorCmd.Flags().StringVar(&serverURL, "server", "", "daemon base URL (default from config)")
}

// monitorCmd runs the terminal dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch evaluation results in a terminal dashboard",
	Long: `Show a live terminal dashboard of evaluation scores and run progress,
polling the docevald dashboard server.

Examples:
  # Watch the configured daemon
  doceval monitor

  # Poll a different daemon every five seconds
  doceval monitor --server http://localhost:8080 --interval 5s`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	return monitor.Run(daemonURL(cfg), monitorInterval)
}
