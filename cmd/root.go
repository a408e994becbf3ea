package cmd

import (
	"fmt"
	"lookupdesk/config"
	"lookupdesk/database"
	"lookupdesk/logger"

	"github.com/spf13/cobra"
)

// needsDBAnnotation marks commands that open the sqlite database directly.
const needsDBAnnotation = "needs-db"

var (
	cfgFile        string
	dbPath         string
	appLogPathFlag string
	logLevelFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "lookupdesk",
	Short: "Employee record lookup service and client",
	Long: `lookupdesk serves employee lookups by DNI and entry date from an
uploaded spreadsheet, and is also the command-line client for that service.

Run 'lookupdesk server' to start the API. Administrators log in with
'lookupdesk login' and manage the dataset with the 'admin' commands; anyone
can search with 'lookupdesk query'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile, appLogPathFlag, logLevelFlag); err != nil {
			return fmt.Errorf("failed to initialize config in PersistentPreRunE: %w", err)
		}
		if !needsDB(cmd) {
			return nil
		}

		finalDBPath := config.AppConfig.Database.Path
		if dbPath != "" {
			expandedPath, err := config.ExpandTilde(dbPath)
			if err != nil {
				logger.Error("Error expanding tilde in --dbpath flag '%s': %v. Using original.", dbPath, err)
				expandedPath = dbPath
			}
			finalDBPath = expandedPath
			logger.Info("PersistentPreRunE: Using database path from --dbpath flag: '%s'", finalDBPath)
		}
		if finalDBPath == "" {
			logger.Error("PersistentPreRunE: Database path is empty after checking flag and config! Falling back to 'lookupdesk.db' in CWD.")
			finalDBPath = "lookupdesk.db"
		}

		if err := database.InitDB(finalDBPath); err != nil {
			return fmt.Errorf("failed to initialize database at %s: %w", finalDBPath, err)
		}
		logger.Info("Database initialized at: %s", finalDBPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database.DB != nil {
			if err := database.Close(); err != nil {
				logger.Error("Error closing database: %v", err)
			}
		}
	},
}

func needsDB(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[needsDBAnnotation] == "true" {
			return true
		}
	}
	return false
}

// Execute runs the command selected by os.Args. Cobra has already printed
// the error when one is returned.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/lookupdesk/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "path to SQLite database file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&appLogPathFlag, "app-log", "", "path for the application log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides config/default)")
}
