// ragpipe keeps a chunked document index in sync with a watched file
// source (a local directory or a Google Drive folder).
package main

import (
	"os"

	"github.com/bcsurf2822/ragpipe/internal/adapters/driving/cli"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
