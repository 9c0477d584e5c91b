// Package cli wires the cobra command tree for the ragpipe daemon.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Exit codes: 0 clean, 1 cycles finished with errors, 2 fatal startup
// failure (bad config, unreachable source, auth required).
const (
	ExitOK    = 0
	ExitError = 1
	ExitFatal = 2
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Incremental file synchronisation for a RAG document index",
	Long: `ragpipe watches a document source (a local directory or a Google Drive
folder) and keeps a chunked, searchable document index in sync with it:
new and modified files are ingested, deleted files are purged, and
orphaned chunks are reconciled away.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// fatalError marks a startup failure that maps to exit code 2.
type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

func fatal(err error) error {
	return fatalError{err: err}
}

// Execute runs the command tree and maps the result to an exit code.
func Execute(buildVersion string) int {
	if buildVersion != "" {
		version = buildVersion
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var f fatalError
		if errors.As(err, &f) {
			return ExitFatal
		}
		return ExitError
	}
	return ExitOK
}
