package cmd

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"queuectl/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start web dashboard server",
	Long:  `Start a minimal web dashboard for monitoring queue state and execution metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			log.Fatalf("Failed to get port flag: %v", err)
		}
		if port < 1 || port > 65535 {
			log.Fatal("Invalid port")
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		server := dashboard.NewServer(st, port, logger)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start dashboard server: %v", err)
		}
	},
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to run the dashboard server on")
	rootCmd.AddCommand(dashboardCmd)
}
