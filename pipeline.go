package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediatrove/keyword-indexer/log"
)

// ObjectStore is the blob storage capability the pipeline ingests from.
type ObjectStore interface {
	// ListObjects returns every object key under the prefix, including
	// the zero-byte prefix placeholder if one exists.
	ListObjects(ctx context.Context, prefix string) ([]string, error)

	// DownloadToFile writes the object to a local path and returns the
	// object's last-modified time.
	DownloadToFile(ctx context.Context, key, localPath string) (time.Time, error)

	// RenameObject moves an object to a new key. It must be idempotent
	// per object: renaming an already-moved object is a no-op.
	RenameObject(ctx context.Context, fromKey, toKey string) error
}

// LabelService is the hosted vision capability. The response order is
// meaningful and must be preserved.
type LabelService interface {
	DetectLabels(ctx context.Context, image []byte) ([]Label, error)
}

// IngestionPipeline runs download → label → record → deduplicate →
// archive over a batch of landing objects. Every stage is sequential
// and every stage tolerates a rerun: appends are superseded by the next
// dedup pass and renames are idempotent per object. Concurrent runs
// against the same keyword table are NOT safe; the dedup rebuild
// assumes a single writer.
type IngestionPipeline struct {
	objects  ObjectStore
	labeler  LabelService
	keywords KeywordStore

	landingPrefix string
	archivePrefix string

	maxRetries   int
	retryBackoff time.Duration
}

func NewIngestionPipeline(objects ObjectStore, labeler LabelService, keywords KeywordStore,
	landingPrefix, archivePrefix string) *IngestionPipeline {
	return &IngestionPipeline{
		objects:  objects,
		labeler:  labeler,
		keywords: keywords,

		landingPrefix: NormalizePrefix(landingPrefix),
		archivePrefix: NormalizePrefix(archivePrefix),

		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}
}

// RunSummary reports what a single pipeline run did.
type RunSummary struct {
	RunID          string `json:"runID"`
	FilesListed    int    `json:"filesListed"`
	FilesSkipped   int    `json:"filesSkipped"`
	RecordsWritten int    `json:"recordsWritten"`
}

// Run processes one batch of landing objects. Remote failures that look
// transient are retried with backoff; anything else aborts the batch.
// The keyword table is never left half-rewritten because the dedup pass
// is a single atomic replace. runID tags the run in logs and should be
// the journal row's id; an empty runID gets a fresh one.
func (p *IngestionPipeline) Run(ctx context.Context, runID string) (RunSummary, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := RunSummary{RunID: runID}

	scratchDir, err := os.MkdirTemp("", "keyword-indexer-")
	if err != nil {
		return summary, err
	}
	defer os.RemoveAll(scratchDir)

	keys, err := p.ListPending(ctx)
	if err != nil {
		return summary, err
	}
	summary.FilesListed = len(keys)

	if len(keys) == 0 {
		log.Info("no pending objects in landing", zap.String("landingPrefix", p.landingPrefix))
		return summary, nil
	}

	records := make([]ImageRecord, 0, len(keys))
	for _, key := range keys {
		record, err := p.FetchAndLabel(ctx, scratchDir, key)
		if err != nil {
			var unsupported *UnsupportedImageTypeError
			if errors.As(err, &unsupported) {
				log.Warn("skip non-image object",
					zap.String("key", key),
					zap.String("mimeType", unsupported.MimeType),
					log.StageFetch)
				summary.FilesSkipped++
				continue
			}
			return summary, err
		}
		records = append(records, record)
	}

	if err := RetryWithBackoff(ctx, p.maxRetries, p.retryBackoff, func() error {
		return p.keywords.AppendRecords(ctx, records)
	}); err != nil {
		return summary, err
	}
	summary.RecordsWritten = len(records)

	if err := p.keywords.Deduplicate(ctx); err != nil {
		return summary, err
	}
	log.Debug("keyword table deduplicated", log.StageDedup)

	if err := p.Archive(ctx); err != nil {
		return summary, err
	}

	log.Info("pipeline run finished",
		zap.String("runID", summary.RunID),
		zap.Int("filesListed", summary.FilesListed),
		zap.Int("filesSkipped", summary.FilesSkipped),
		zap.Int("recordsWritten", summary.RecordsWritten))

	return summary, nil
}

// ListPending lists object keys strictly inside the landing prefix. The
// placeholder object some consoles create for the folder itself is
// excluded.
func (p *IngestionPipeline) ListPending(ctx context.Context) ([]string, error) {
	var keys []string
	err := RetryWithBackoff(ctx, p.maxRetries, p.retryBackoff, func() error {
		listed, err := p.objects.ListObjects(ctx, p.landingPrefix)
		if err == nil {
			keys = listed
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	pending := make([]string, 0, len(keys))
	for _, key := range keys {
		if RelativeKey(p.landingPrefix, key) == "" {
			continue
		}
		pending = append(pending, key)
	}

	return pending, nil
}

// FetchAndLabel downloads one object into the scratch directory, labels
// its bytes and produces the ImageRecord. An empty label response is
// recorded as an empty keyword list, not an error.
func (p *IngestionPipeline) FetchAndLabel(ctx context.Context, scratchDir, key string) (ImageRecord, error) {
	localPath := filepath.Join(scratchDir, uuid.NewString()+filepath.Ext(key))

	var capturedAt time.Time
	if err := RetryWithBackoff(ctx, p.maxRetries, p.retryBackoff, func() error {
		modTime, err := p.objects.DownloadToFile(ctx, key, localPath)
		if err == nil {
			capturedAt = modTime
		}
		return err
	}); err != nil {
		return ImageRecord{}, err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return ImageRecord{}, err
	}

	mimeType := mimetype.Detect(data).String()
	if !strings.HasPrefix(mimeType, "image/") {
		return ImageRecord{}, NewUnsupportedImageTypeError(key, mimeType)
	}

	var labels []Label
	if err := RetryWithBackoff(ctx, p.maxRetries, p.retryBackoff, func() error {
		detected, err := p.labeler.DetectLabels(ctx, data)
		if err == nil {
			labels = detected
		}
		return err
	}); err != nil {
		return ImageRecord{}, err
	}

	if len(labels) == 0 {
		log.Warn("label service returned no labels", zap.String("key", key), log.StageLabel)
	}

	return NewImageRecord(RelativeKey(p.landingPrefix, key), capturedAt, labels), nil
}

// Archive moves every landing object to the archive prefix, keeping the
// relative suffix path. The move is not transactional across objects; a
// partially archived batch is recovered by re-running, which is safe
// because each individual rename is idempotent.
func (p *IngestionPipeline) Archive(ctx context.Context) error {
	keys, err := p.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		toKey := JoinPrefix(p.archivePrefix, RelativeKey(p.landingPrefix, key))
		if err := RetryWithBackoff(ctx, p.maxRetries, p.retryBackoff, func() error {
			return p.objects.RenameObject(ctx, key, toKey)
		}); err != nil {
			return err
		}
		log.Debug("object archived", zap.String("from", key), zap.String("to", toKey), log.StageArchive)
	}

	return nil
}
