// Package main implements the doceval CLI for evaluating model
// documentation quality with an LLM.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/logging"
)

var (
	// configPath overrides the default config file locations
	configPath string
	// serverURL overrides the daemon URL derived from config
	serverURL string
	// version information set via ldflags
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "doceval",
	Short: "Evaluate model documentation quality with an LLM",
	Long: `doceval scores markdown documentation against YAML requirement
questions using an LLM judge. It evaluates coherence, quality, capture
rate, and hallucination per section, writes CSV reports, and can publish
the results as a pull request comment.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./doceval.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints full build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func printVersion() {
	fmt.Printf("doceval by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}

// daemonURL resolves the base URL of the docevald dashboard server.
func daemonURL(cfg *config.Config) string {
	if serverURL != "" {
		return serverURL
	}
	return "http://" + cfg.Server.Addr()
}
