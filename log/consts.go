package log

import "go.uber.org/zap"

var (
	StageList    = zap.String("stage", "list")
	StageFetch   = zap.String("stage", "fetch")
	StageLabel   = zap.String("stage", "label")
	StageAppend  = zap.String("stage", "append")
	StageDedup   = zap.String("stage", "deduplicate")
	StageArchive = zap.String("stage", "archive")
)
