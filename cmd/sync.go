package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// syncCmd mirrors payloads from object storage into the local cache root and
// refreshes the file catalog.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Prefetch audio payloads into the local cache and update the catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp()
		if err != nil {
			return err
		}
		defer application.close()

		return application.syncer.Sync(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
