package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/axellelanca/magiccode/internal/config"
	"github.com/axellelanca/magiccode/internal/database"
	"github.com/axellelanca/magiccode/internal/logger"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, migrate, create, resolve, account) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "magiccode",
	Short: "Magic Code resolution and content dispatch service",
	Long: `Magic Code maps short public codes to a URL, an uploaded media file
or a piece of text, and serves them over HTTP.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// Commands register themselves via their own init() functions.
func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads the application configuration and sets up logging
// before any command runs.
func initConfig() {
	logger.Init(os.Getenv("LOG_ENV"), os.Getenv("LOG_LEVEL"))

	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(Cfg.Log.Env, Cfg.Log.Level)
}

// OpenDatabase opens the configured SQLite database and migrates its schema.
func OpenDatabase() (*gorm.DB, error) {
	db, err := database.Open(Cfg.Database.Name)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}
