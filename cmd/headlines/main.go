// Package main provides the headlines command: scrape news headlines once, or serve runs over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "headlines",
	Short: "News headline scraper",
	Long: `headlines opens a news site in a browser, extracts the top headlines with their links and
publish times, saves them as CSV, JSON and TXT (and optionally PostgreSQL) and emails a status report.

Settings come from a .env file and the environment; command-line flags override both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".env", "Path to a .env file with settings")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
