package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
	"github.com/bcsurf2822/ragpipe/internal/core/ports/driving"
)

// stubPipeline returns a fixed snapshot.
type stubPipeline struct {
	snap driving.StatusSnapshot
}

func (p *stubPipeline) RunOnce(context.Context) (domain.CycleStats, error) {
	return domain.CycleStats{}, nil
}
func (p *stubPipeline) Run(context.Context) error      { return nil }
func (p *stubPipeline) Status() driving.StatusSnapshot { return p.snap }

func TestStatusEndpoint(t *testing.T) {
	next := time.Now().Add(30 * time.Second).UTC()
	pipeline := &stubPipeline{snap: driving.StatusSnapshot{
		Status:                "running",
		PipelineType:          domain.PipelineLocalFiles,
		NextCheckTime:         &next,
		SecondsUntilNextCheck: 30,
		TotalProcessed:        7,
		FilesCompleted: []driving.FileActivity{
			{Name: "a.txt", ID: "f1", StartedAt: time.Now().UTC()},
		},
	}}

	srv := New(pipeline, 0)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "local_files", body["pipeline_type"])
	assert.Equal(t, float64(30), body["seconds_until_next_check"])
	assert.Equal(t, float64(7), body["total_processed"])

	completed, ok := body["files_completed"].([]any)
	require.True(t, ok)
	assert.Len(t, completed, 1)
}

func TestHealthEndpoint(t *testing.T) {
	srv := New(&stubPipeline{}, 0)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := New(&stubPipeline{}, 0)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
