package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"queuectl/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs by state",
	Long:  `List all jobs, optionally filtered by state.`,
	Run: func(cmd *cobra.Command, args []string) {
		stateFlag, err := cmd.Flags().GetString("state")
		if err != nil {
			log.Fatalf("Failed to get state flag: %v", err)
		}

		state := model.JobState(stateFlag)
		if stateFlag != "" && !state.Valid() {
			log.Fatalf("Invalid state: %s. Valid states are: pending, processing, completed, failed, dead", stateFlag)
		}

		jobs, err := st.ListJobs(state)
		if err != nil {
			log.Fatalf("Failed to get jobs: %v", err)
		}

		if len(jobs) == 0 {
			if stateFlag != "" {
				fmt.Printf("No jobs found with state: %s\n", stateFlag)
			} else {
				fmt.Println("No jobs found")
			}
			return
		}

		printJobTable(jobs)
	},
}

func printJobTable(jobs []*model.Job) {
	fmt.Printf("%-20s %-12s %-9s %-12s %-25s\n", "ID", "STATE", "ATTEMPTS", "MAX_RETRIES", "CREATED_AT")
	fmt.Println(strings.Repeat("-", 80))
	for _, job := range jobs {
		fmt.Printf("%-20s %-12s %-9d %-12d %-25s\n",
			job.ID,
			string(job.State),
			job.Attempts,
			job.MaxRetries,
			job.CreatedAt.Format(time.RFC3339),
		)
	}
}

func init() {
	listCmd.Flags().StringP("state", "s", "", "Filter jobs by state (pending, processing, completed, failed, dead)")
	rootCmd.AddCommand(listCmd)
}
