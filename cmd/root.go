package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"queuectl/internal/store"
)

var (
	dataDir string
	st      *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "queuectl",
	Short: "A CLI-based background job queue system",
	Long:  `queuectl is a persistent job queue: enqueue shell commands, run workers to execute them with retries and exponential backoff, and inspect the dead letter queue.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; explicit environment always wins.
		_ = godotenv.Load()

		var err error
		dataDir, err = resolveDataDir()
		if err != nil {
			log.Fatalf("Failed to resolve data directory: %v", err)
		}
		st, err = store.Open(dataDir)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Long-running commands manage the store themselves.
		if cmd.Name() != "start" && cmd.Name() != "dashboard" {
			st.Close()
		}
	},
}

func resolveDataDir() (string, error) {
	if envDir := os.Getenv("QUEUECTL_DATA_DIR"); envDir != "" {
		return envDir, nil
	}
	execPath, err := os.Executable()
	if err != nil {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return filepath.Join(wd, "data"), nil
	}
	return filepath.Join(filepath.Dir(execPath), "data"), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
