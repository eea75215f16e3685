package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"queuectl/internal/model"
	"queuectl/internal/worker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show summary of all job states & active workers",
	Long:  `Display a summary of job counts by state and the number of active workers.`,
	Run: func(cmd *cobra.Command, args []string) {
		counts, err := st.CountsByState()
		if err != nil {
			log.Fatalf("Failed to get job counts: %v", err)
		}

		fmt.Println("Job Queue Status")
		fmt.Println("===============")
		fmt.Printf("Pending:    %d\n", counts[model.StatePending])
		fmt.Printf("Processing: %d\n", counts[model.StateProcessing])
		fmt.Printf("Completed:  %d\n", counts[model.StateCompleted])
		fmt.Printf("Failed:     %d\n", counts[model.StateFailed])
		fmt.Printf("Dead:       %d\n", counts[model.StateDead])
		fmt.Println()
		fmt.Printf("Active Workers: %d\n", worker.ActiveWorkers(dataDir))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
