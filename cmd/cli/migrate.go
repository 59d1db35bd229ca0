package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/magiccode/cmd"
	"github.com/axellelanca/magiccode/internal/database"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite)
and executes GORM automatic migrations to create the 'accounts' and 'records'
tables based on the Go models.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := cmd.OpenDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		fmt.Println("Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
