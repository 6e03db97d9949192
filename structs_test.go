package indexer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewImageRecord(t *testing.T) {
	capturedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	record := NewImageRecord("a.jpg", capturedAt, []Label{
		{Description: "cat", Confidence: 0.9},
		{Description: "pet", Confidence: 0.7},
		{Description: "pet", Confidence: 0.6},
	})

	assert.Equal(t, "a.jpg", record.FileID)
	assert.Equal(t, capturedAt, record.CapturedAt)
	// service order preserved, duplicates allowed
	assert.Equal(t, []string{"cat", "pet", "pet"}, record.Keywords)
}

func TestNewImageRecordWithoutLabels(t *testing.T) {
	record := NewImageRecord("b.jpg", time.Now(), nil)

	assert.NotNil(t, record.Keywords)
	assert.Empty(t, record.Keywords)
}
