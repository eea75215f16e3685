package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show job-id",
	Short: "Show details and output of a job",
	Long:  `Display detailed information about a job including its latest execution output.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]
		job, err := st.GetJob(jobID)
		if err != nil {
			log.Fatalf("Failed to get job: %v", err)
		}
		exec, err := st.LatestExecution(jobID)
		if err != nil {
			log.Printf("Warning: failed to get execution history: %v", err)
		}

		fmt.Println("Job Details")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("%-20s %s\n", "ID:", job.ID)
		fmt.Printf("%-20s %s\n", "Command:", job.Command)
		fmt.Printf("%-20s %s\n", "State:", string(job.State))
		fmt.Printf("%-20s %d\n", "Attempts:", job.Attempts)
		fmt.Printf("%-20s %d\n", "Max Retries:", job.MaxRetries)
		fmt.Printf("%-20s %s\n", "Created At:", job.CreatedAt.Format(time.RFC3339))
		fmt.Printf("%-20s %s\n", "Updated At:", job.UpdatedAt.Format(time.RFC3339))
		if job.LockedBy != "" {
			fmt.Printf("%-20s %s\n", "Locked By:", job.LockedBy)
		}
		if job.RetryAt != nil {
			fmt.Printf("%-20s %s\n", "Retry At:", job.RetryAt.Format(time.RFC3339))
		}
		if exec != nil && exec.Error != "" {
			fmt.Printf("%-20s %s\n", "Last Error:", exec.Error)
		}

		fmt.Println("\nOutput")
		fmt.Println(strings.Repeat("-", 80))
		if exec != nil && exec.Output != "" {
			fmt.Println(exec.Output)
		} else {
			fmt.Println("(No output available)")
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
