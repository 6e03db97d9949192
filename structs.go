package indexer

import (
	"time"
)

// Label is a single annotation returned by the vision capability for
// an image. Confidence is normalized to [0, 1].
type Label struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ImageRecord is one row of the keyword table. FileID is the object key
// relative to the landing prefix and stays stable across reruns.
// Keywords keep the label service's return order and may contain
// duplicates.
type ImageRecord struct {
	FileID     string    `json:"fileID"`
	CapturedAt time.Time `json:"capturedAt"`
	Keywords   []string  `json:"keywords"`
}

// NewImageRecord builds an ImageRecord from labels, dropping the
// confidence scores but preserving the service's ordering.
func NewImageRecord(fileID string, capturedAt time.Time, labels []Label) ImageRecord {
	keywords := make([]string, 0, len(labels))
	for _, l := range labels {
		keywords = append(keywords, l.Description)
	}

	return ImageRecord{
		FileID:     fileID,
		CapturedAt: capturedAt,
		Keywords:   keywords,
	}
}
