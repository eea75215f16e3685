package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"queuectl/internal/model"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue job-json",
	Short: "Add a new job to the queue",
	Long:  `Add a job from a JSON body with fields "id", "command", and optional "max_retries".`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := model.ParseEnqueueRequest(args[0])
		if err != nil {
			log.Fatalf("Failed to parse job JSON: %v", err)
		}
		job, err := st.CreateJob(req.ID, req.Command, req.MaxRetries)
		if err != nil {
			if errors.Is(err, model.ErrDuplicateID) {
				log.Fatalf("Failed to enqueue job: id %q already exists", req.ID)
			}
			log.Fatalf("Failed to enqueue job: %v", err)
		}
		fmt.Printf("Job enqueued successfully: %s\n", job.ID)
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}
