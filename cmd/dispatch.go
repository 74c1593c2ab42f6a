package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dispatchCmd runs one pipeline cycle and prints the invocation summary.
// This is the entry point a cron-style trigger invokes.
var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch cycle over due tracks and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp()
		if err != nil {
			return err
		}
		defer application.close()

		result, err := application.orch.Run(context.Background())
		if err != nil {
			return fmt.Errorf("dispatch run failed: %w", err)
		}

		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}
