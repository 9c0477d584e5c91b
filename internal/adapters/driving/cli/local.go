package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/scanners/localfs"
)

var flagDirectory string

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Watch a local directory",
	Long: `Watches a local directory tree and keeps the document index in sync
with it. The directory comes from --directory, the RAG_WATCH_DIRECTORY
environment variable, or the config file, in that order of priority.`,
	RunE: runLocal,
}

func init() {
	addRunFlags(localCmd)
	localCmd.Flags().StringVarP(&flagDirectory, "directory", "d", "", "directory to watch")
	rootCmd.AddCommand(localCmd)
}

func runLocal(_ *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if flagDirectory != "" {
		cfg.Local.WatchDirectory = flagDirectory
	}
	if cfg.Local.WatchDirectory == "" {
		return fatal(fmt.Errorf("no watch directory configured (use --directory or RAG_WATCH_DIRECTORY)"))
	}

	scanner, err := localfs.New(cfg)
	if err != nil {
		return fatal(err)
	}

	return runPipeline(cfg, scanner, defaultPipelineID(cfg, domain.PipelineLocalFiles, scanner.Root()))
}
