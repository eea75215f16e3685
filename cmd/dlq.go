package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"queuectl/internal/model"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Manage Dead Letter Queue",
	Long:  `View and manage jobs in the Dead Letter Queue (permanently failed jobs).`,
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in Dead Letter Queue",
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := st.ListJobs(model.StateDead)
		if err != nil {
			log.Fatalf("Failed to get DLQ jobs: %v", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs in Dead Letter Queue")
			return
		}
		fmt.Printf("Dead Letter Queue Jobs (%d)\n", len(jobs))
		fmt.Println(strings.Repeat("=", 80))
		printJobTable(jobs)
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry job-id",
	Short: "Retry a job from Dead Letter Queue",
	Long:  `Reset a job from the DLQ back to pending state so workers can pick it up again.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]
		if _, err := st.RequeueFromDLQ(jobID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				log.Fatalf("Failed to retry DLQ job: no job with id %q", jobID)
			}
			log.Fatalf("Failed to retry DLQ job: %v", err)
		}
		fmt.Printf("Job %s has been reset to pending state and will be retried\n", jobID)
	},
}

func init() {
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
