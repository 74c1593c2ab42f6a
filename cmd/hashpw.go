package cmd

import (
	"fmt"

	"vibecast/core/auth"

	"github.com/spf13/cobra"
)

// hashpwCmd generates the bcrypt hash expected in ADMIN_PASSWORD_HASH.
var hashpwCmd = &cobra.Command{
	Use:   "hashpw <password>",
	Short: "Hash an admin password for the ADMIN_PASSWORD_HASH setting.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashpwCmd)
}
