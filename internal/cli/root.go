// Package cli implements the dbfill command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vvka-141/dbfill/internal/logging"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

var rootCmd = &cobra.Command{
	Use:   "dbfill",
	Short: "Export a filtered, relation-consistent schema map",
	Long: `dbfill reads a schema registry (a PostgreSQL catalog or a YAML schema file),
applies the exclusions of dbfill.yaml and writes the surviving entity types
to a JSON parsed cache.

Relations are checked before anything is written: a foreign key into an
excluded entity type stops the run, a many-to-many relation into an excluded
entity type is dropped with a warning.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or exclusion overrides
  11 - Database connection failed
  15 - Relation conflict (foreign key into an excluded entity type)
  16 - Schema registry could not be read`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// Long form only; -h is the PostgreSQL host.
	rootCmd.PersistentFlags().Bool("help", false, "Help for dbfill")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// newLogger logs to the command's stderr. Colors are only considered for
// the process stderr.
func newLogger(cmd *cobra.Command, verbose bool) dbfill.Logger {
	if w := cmd.ErrOrStderr(); w != os.Stderr {
		return logging.NewWriterLogger(w, verbose)
	}
	return logging.NewConsoleLogger(verbose)
}
