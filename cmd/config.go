package cmd

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"queuectl/internal/lifecycle"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage system configuration such as retry count and backoff base.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set key value",
	Short: "Set a configuration value",
	Long:  `Set a configuration key-value pair. Common keys: max_retries, backoff_base`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		switch key {
		case "max_retries":
			if n, err := strconv.Atoi(value); err != nil || n < 0 {
				log.Fatalf("Invalid value for max_retries: %s (must be a non-negative integer)", value)
			}
		case "backoff_base":
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				log.Fatalf("Invalid value for backoff_base: %s (must be a number)", value)
			}
		}
		if err := st.SetConfig(key, value); err != nil {
			log.Fatalf("Failed to set config: %v", err)
		}
		fmt.Printf("Configuration '%s' set to '%s'\n", key, value)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get key",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		def := ""
		switch key {
		case "max_retries":
			def = strconv.Itoa(lifecycle.DefaultMaxRetries)
		case "backoff_base":
			def = strconv.FormatFloat(lifecycle.DefaultBackoffBase, 'f', -1, 64)
		}
		value, err := st.GetConfig(key, def)
		if err != nil {
			log.Fatalf("Failed to get config: %v", err)
		}
		fmt.Println(value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := st.AllConfig()
		if err != nil {
			log.Fatalf("Failed to get config: %v", err)
		}
		if len(config) == 0 {
			fmt.Println("No configuration set")
			return
		}
		fmt.Println("Configuration:")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("%-20s %s\n", "KEY", "VALUE")
		fmt.Println(strings.Repeat("-", 50))
		for key, value := range config {
			fmt.Printf("%-20s %s\n", key, value)
		}
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
