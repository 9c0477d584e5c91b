package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleStatsAdd(t *testing.T) {
	total := CycleStats{FilesProcessed: 2, Errors: 1, Duration: time.Second}
	total.Add(CycleStats{FilesProcessed: 3, FilesDeleted: 1, OrphansDeleted: 2, Errors: 1})

	assert.Equal(t, 5, total.FilesProcessed)
	assert.Equal(t, 1, total.FilesDeleted)
	assert.Equal(t, 2, total.OrphansDeleted)
	assert.Equal(t, 2, total.Errors)
	// Duration is per-cycle wall time, not accumulated.
	assert.Equal(t, time.Second, total.Duration)
}
