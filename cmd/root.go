// Package cmd contains the agreementfinder CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	workers        int
	pagesPerWorker int
	debug          bool
)

var rootCmd = &cobra.Command{
	Use:   "agreementfinder",
	Short: "Locate known agreement documents in the FWC document-search index",
	Long: `agreementfinder drives parallel headless-browser workers across the
paginated FWC document-search index, looking for a configured set of known
document URLs. Matched documents are parsed into records and exported to CSV;
unresolved targets are retried at escalating page depth.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to JSON config file (required)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 4, "number of parallel browser workers")
	rootCmd.PersistentFlags().IntVarP(&pagesPerWorker, "pages-per-worker", "p", 5, "pages assigned to each worker per round")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("config")
}
