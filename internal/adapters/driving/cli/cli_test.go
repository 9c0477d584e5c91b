package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcsurf2822/ragpipe/internal/config"
	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-1.2.3"
	defer func() { version = originalVersion }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "ragpipe version test-1.2.3")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["local"])
	assert.True(t, names["drive"])
	assert.True(t, names["version"])
}

func TestFatalErrorUnwraps(t *testing.T) {
	err := fatal(domain.ErrAuthRequired)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	var f fatalError
	assert.True(t, errors.As(err, &f))
}

func TestSingleRunEnvAlias(t *testing.T) {
	flagSingleRun = false
	defer func() { flagSingleRun = false }()

	t.Setenv("RUN_MODE", "single")
	assert.True(t, singleRun())

	t.Setenv("RUN_MODE", "loop")
	assert.False(t, singleRun())

	flagSingleRun = true
	assert.True(t, singleRun())
}

func TestLocalRequiresDirectory(t *testing.T) {
	t.Setenv("RAG_WATCH_DIRECTORY", "")
	flagDirectory = ""
	defer func() { flagDirectory = "" }()

	err := runLocal(localCmd, nil)
	assert.Error(t, err)

	var f fatalError
	assert.True(t, errors.As(err, &f))
}

func TestDefaultPipelineID(t *testing.T) {
	t.Setenv("RAG_PIPELINE_ID", "")
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "local_files_/data/docs",
		defaultPipelineID(cfg, domain.PipelineLocalFiles, "/data/docs"))

	cfg.PipelineID = "custom"
	assert.Equal(t, "custom", defaultPipelineID(cfg, domain.PipelineLocalFiles, "/data/docs"))
}
