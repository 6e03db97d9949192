package runstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	indexer "github.com/mediatrove/keyword-indexer"
)

// PipelineRun is the journal entry for one ingestion run.
type PipelineRun struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	StartedAt      time.Time  `gorm:"column:started_at" json:"startedAt"`
	FinishedAt     *time.Time `gorm:"column:finished_at" json:"finishedAt,omitempty"`
	FilesListed    int        `gorm:"column:files_listed" json:"filesListed"`
	FilesSkipped   int        `gorm:"column:files_skipped" json:"filesSkipped"`
	RecordsWritten int        `gorm:"column:records_written" json:"recordsWritten"`
	Status         string     `gorm:"column:status" json:"status"`
	LastError      string     `gorm:"column:last_error" json:"lastError,omitempty"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

type RunStore struct {
	db *gorm.DB
}

func New(dsn string) *RunStore {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.LogLevel(viper.GetInt("run_store.log_level"))),
	})
	if err != nil {
		panic(err)
	}

	sqldb, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqldb.SetMaxOpenConns(10)
	sqldb.SetConnMaxLifetime(time.Hour)

	return &RunStore{
		db: db,
	}
}

func (s *RunStore) AutoMigrate() error {
	return s.db.AutoMigrate(&PipelineRun{})
}

// Begin journals the start of a run.
func (s *RunStore) Begin(ctx context.Context) (PipelineRun, error) {
	run := PipelineRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    indexer.PipelineStatusRunning,
	}

	err := s.db.WithContext(ctx).Create(&run).Error
	return run, err
}

// Complete marks a run finished with its counters.
func (s *RunStore) Complete(ctx context.Context, id string, summary indexer.RunSummary) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&PipelineRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"finished_at":     &now,
		"files_listed":    summary.FilesListed,
		"files_skipped":   summary.FilesSkipped,
		"records_written": summary.RecordsWritten,
		"status":          indexer.PipelineStatusSucceeded,
	}).Error
}

// Fail marks a run finished with an error.
func (s *RunStore) Fail(ctx context.Context, id string, runErr error) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&PipelineRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"finished_at": &now,
		"status":      indexer.PipelineStatusFailed,
		"last_error":  runErr.Error(),
	}).Error
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []PipelineRun
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
