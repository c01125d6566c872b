package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	t.Fatalf("%s command not found in rootCmd", name)
	return nil
}

func TestCommands_Registered(t *testing.T) {
	for _, name := range []string{"run", "merge", "clean", "seed", "publish", "monitor", "health", "mcp", "version"} {
		cmd := findCommand(t, name)
		if cmd.Short == "" {
			t.Errorf("%s command should have Short description", name)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cmd := findCommand(t, "run")
	for _, flag := range []string{"sections", "generate-requirements", "output-dir"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("run command should have --%s flag", flag)
		}
	}
}

func TestPublishCmd_Flags(t *testing.T) {
	cmd := findCommand(t, "publish")
	for _, flag := range []string{"pr", "dry-run", "output-dir"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("publish command should have --%s flag", flag)
		}
	}
}

func TestRootCmd_ConfigFlag(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("root command should have persistent --config flag")
	}
}

func TestDaemonURL(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8050}}

	if got := daemonURL(cfg); got != "http://127.0.0.1:8050" {
		t.Errorf("daemonURL() = %q, want config-derived URL", got)
	}

	serverURL = "http://example.test:9999"
	defer func() { serverURL = "" }()
	if got := daemonURL(cfg); got != "http://example.test:9999" {
		t.Errorf("daemonURL() = %q, want override", got)
	}
}

func TestSeedAndMerge(t *testing.T) {
	dir := t.TempDir()

	seedOutputDir = dir
	seedValue = 42
	defer func() {
		seedOutputDir = ""
		seedValue = 0
	}()

	seedCmd := findCommand(t, "seed")
	var out bytes.Buffer
	seedCmd.SetOut(&out)
	seedCmd.SetErr(&out)

	if err := seedCmd.RunE(seedCmd, nil); err != nil {
		t.Fatalf("seed command failed: %v", err)
	}
	if !strings.Contains(out.String(), "sample files") {
		t.Errorf("seed output = %q, want sample file count", out.String())
	}

	files, err := report.SectionFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("seed wrote %d section reports, want 3", len(files))
	}

	mergeOutputDir = dir
	defer func() { mergeOutputDir = "" }()

	mergeCmd := findCommand(t, "merge")
	out.Reset()
	mergeCmd.SetOut(&out)
	mergeCmd.SetErr(&out)

	if err := mergeCmd.RunE(mergeCmd, nil); err != nil {
		t.Fatalf("merge command failed: %v", err)
	}
	if !strings.Contains(out.String(), "Merged 3 section reports") {
		t.Errorf("merge output = %q, want merge count", out.String())
	}

	if _, err := os.Stat(filepath.Join(dir, report.MergedFileName)); err != nil {
		t.Errorf("merged report not written: %v", err)
	}
}

func TestMergeCmd_EmptyDir(t *testing.T) {
	mergeOutputDir = t.TempDir()
	defer func() { mergeOutputDir = "" }()

	mergeCmd := findCommand(t, "merge")
	err := mergeCmd.RunE(mergeCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no section reports") {
		t.Errorf("merge on empty dir error = %v, want no section reports", err)
	}
}
