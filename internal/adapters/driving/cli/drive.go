package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/scanners/drive"
)

var (
	flagFolderID    string
	flagCredentials string
	flagNoBrowser   bool
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Watch a Google Drive folder",
	Long: `Watches a Google Drive folder tree and keeps the document index in
sync with it. The folder comes from --folder-id, the RAG_WATCH_FOLDER_ID
environment variable, or the config file, in that order of priority.

Credentials are resolved in priority order: service-account JSON (the
GOOGLE_DRIVE_CREDENTIALS_JSON environment variable or --credentials), a
cached OAuth token, then an interactive browser flow when running in a
terminal.`,
	RunE: runDrive,
}

func init() {
	addRunFlags(driveCmd)
	driveCmd.Flags().StringVarP(&flagFolderID, "folder-id", "f", "", "Drive folder ID to watch")
	driveCmd.Flags().StringVar(&flagCredentials, "credentials", "", "path to credentials JSON")
	driveCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "never start the interactive auth flow")
	rootCmd.AddCommand(driveCmd)
}

func runDrive(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if flagFolderID != "" {
		cfg.Drive.FolderID = flagFolderID
	}
	if flagCredentials != "" {
		cfg.Drive.CredentialsPath = flagCredentials
	}
	if cfg.Drive.FolderID == "" {
		return fatal(fmt.Errorf("no folder ID configured (use --folder-id or RAG_WATCH_FOLDER_ID)"))
	}

	// The interactive flow needs a human at a terminal.
	interactive := !flagNoBrowser && isatty.IsTerminal(os.Stdin.Fd())

	scanner, err := drive.New(cmd.Context(), cfg, drive.AuthOptions{Interactive: interactive})
	if err != nil {
		return fatal(err)
	}

	return runPipeline(cfg, scanner, defaultPipelineID(cfg, domain.PipelineGoogleDrive, cfg.Drive.FolderID))
}
