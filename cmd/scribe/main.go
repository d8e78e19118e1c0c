package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is the server build version, compared against the client's
// X-Frontend-Version header on every API request.
var version = "1.0.0"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "scribe",
	Short:         "Asynchronous transcription and categorization job server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cachesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
