package command

// root.go defines the yamdbctl root command and the shared setup the
// subcommands use to reach the database.

import (
	"fmt"
	"log/slog"
	"os"

	"yamdb/database"
	"yamdb/internal/config"
	"yamdb/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yamdbctl",
	Short: "yamdbctl - YaMDb administration tool",
	Long: `yamdbctl runs maintenance tasks against the YaMDb database:
- apply the schema (migrate)
- bulk load the CSV dumps (import)
- create or promote a superuser (createsuperuser)

Configuration is read from the environment and .env, like the API server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, importCmd, createSuperuserCmd)
}

// setup loads the configuration and opens a migrated database.
func setup() (*config.Config, *gorm.DB, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, "text")

	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, db, log, nil
}
