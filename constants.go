package indexer

import "time"

const DefaultKeywordTable = "image_keywords"

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 2 * time.Second
)

const (
	PipelineStatusRunning   = "running"
	PipelineStatusSucceeded = "succeeded"
	PipelineStatusFailed    = "failed"
)
