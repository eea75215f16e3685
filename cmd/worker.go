package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"queuectl/internal/lifecycle"
	"queuectl/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage worker processes",
}

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start worker processes",
	Long:  `Start N workers that claim and execute jobs until stopped.`,
	Run: func(cmd *cobra.Command, args []string) {
		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			log.Fatalf("Failed to get count flag: %v", err)
		}
		if count < 1 {
			log.Fatalln("Worker count must be at least 1")
		}

		// Backoff base is read once at startup; later config changes do
		// not affect jobs already scheduled.
		base, err := st.ConfigFloat("backoff_base", lifecycle.DefaultBackoffBase)
		if err != nil {
			log.Fatalf("Failed to read backoff_base: %v", err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		pool := worker.NewPool(st, count, lifecycle.NewExponential(base), logger,
			worker.WithPIDFile(worker.PIDFilePath(dataDir)))
		if err := pool.Start(); err != nil {
			log.Fatalf("Failed to start workers: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		if err := pool.Stop(); err != nil {
			log.Fatalf("Failed to stop workers: %v", err)
		}
		st.Close()
	},
}

var workerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop worker processes",
	Long:  `Gracefully stop all running worker processes.`,
	Run: func(cmd *cobra.Command, args []string) {
		stopped, err := worker.SignalStop(dataDir)
		if err != nil {
			log.Fatalf("Failed to stop workers: %v", err)
		}
		if !stopped {
			fmt.Println("No workers are running")
			return
		}
		fmt.Println("Workers stopped successfully")
	},
}

func init() {
	workerStartCmd.Flags().IntP("count", "c", 1, "Number of workers to start")
	workerCmd.AddCommand(workerStartCmd)
	workerCmd.AddCommand(workerStopCmd)
	rootCmd.AddCommand(workerCmd)
}
