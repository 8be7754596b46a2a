// Command job_agent runs the job application pipeline, either as a long-lived
// HTTP service or as a one-shot CLI for a single posting.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "job_agent",
	Short: "Tailor CVs to job postings and track applications",
	Long: `job_agent ingests job postings (URL, pasted text, or feed records),
filters them against your criteria, tailors your master CV to each posting
with an LLM, renders an application document, and tracks the job through
review and application.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
}

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
