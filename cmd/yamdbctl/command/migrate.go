package command

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// setup migrates as part of opening the database
		if _, _, _, err := setup(); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}
