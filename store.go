package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
)

// KeywordStore persists ImageRecord rows in an analytical table.
type KeywordStore interface {
	CreateTable(ctx context.Context) error
	AppendRecords(ctx context.Context, records []ImageRecord) error
	Deduplicate(ctx context.Context) error
	ListRecords(ctx context.Context) ([]ImageRecord, error)
	GetRecord(ctx context.Context, fileID string) (ImageRecord, error)
	DropTable(ctx context.Context) error
}

// table names go into DDL verbatim, so they are restricted to plain
// identifiers instead of being quoted
var validTableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PGKeywordStore struct {
	db    *sql.DB
	table string
}

// NewPGKeywordStore connects to Postgres and returns a keyword store
// bound to the given table. An empty table name falls back to
// DefaultKeywordTable.
func NewPGKeywordStore(dsn, table string) (*PGKeywordStore, error) {
	if table == "" {
		table = DefaultKeywordTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid keyword table name: %s", table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(50)
	// SetConnMaxLifetime sets the maximum amount of time a connection may be reused.
	db.SetConnMaxLifetime(time.Hour)

	return &PGKeywordStore{
		db:    db,
		table: table,
	}, nil
}

// CreateTable creates the keyword table if it does not exist. The table
// is range-partitioned by capture day; a default partition takes every
// row until day partitions are split out.
func (s *PGKeywordStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			file_id      TEXT NOT NULL,
			captured_at  TIMESTAMPTZ NOT NULL,
			captured_day DATE NOT NULL,
			keywords     TEXT[] NOT NULL DEFAULT '{}'
		) PARTITION BY RANGE (captured_day)`, s.table)); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s_default PARTITION OF %s DEFAULT`,
		s.table, s.table))
	return err
}

// appendStatement builds a multi-row parameterized INSERT for n records.
// Three bind parameters per row; captured_day derives from captured_at
// inside the statement so both columns always agree.
func appendStatement(table string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (file_id, captured_at, captured_day, keywords) VALUES ", table)

	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 3
		fmt.Fprintf(&sb, "($%d, $%d, ($%d AT TIME ZONE 'UTC')::date, $%d)",
			base+1, base+2, base+2, base+3)
	}

	return sb.String()
}

// AppendRecords inserts all records in one statement. The whole batch
// fails together; values are bound, never interpolated.
func (s *PGKeywordStore) AppendRecords(ctx context.Context, records []ImageRecord) error {
	if len(records) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(records)*3)
	for _, r := range records {
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		args = append(args, r.FileID, r.CapturedAt, pq.Array(keywords))
	}

	_, err := s.db.ExecContext(ctx, appendStatement(s.table, len(records)), args...)
	return err
}

// Deduplicate rebuilds the table keeping one live row per file_id. The
// surviving row is the one with the latest capture timestamp; keyword
// array order breaks exact-timestamp ties so the result is
// deterministic. Rebuild, drop and rename happen in one transaction, so
// a failure at any point leaves the original table untouched.
func (s *PGKeywordStore) Deduplicate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rebuild := s.table + "_rebuild"

	statements := []string{
		fmt.Sprintf(`CREATE TABLE %s (LIKE %s INCLUDING DEFAULTS) PARTITION BY RANGE (captured_day)`,
			rebuild, s.table),
		fmt.Sprintf(`CREATE TABLE %s_default PARTITION OF %s DEFAULT`, rebuild, rebuild),
		fmt.Sprintf(`INSERT INTO %s (file_id, captured_at, captured_day, keywords)
			SELECT file_id, captured_at, captured_day, keywords FROM (
				SELECT file_id, captured_at, captured_day, keywords,
					ROW_NUMBER() OVER (
						PARTITION BY file_id
						ORDER BY captured_at DESC, keywords
					) AS ordinal
				FROM %s
			) ranked
			WHERE ordinal = 1`, rebuild, s.table),
		fmt.Sprintf(`DROP TABLE %s`, s.table),
		fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, rebuild, s.table),
		fmt.Sprintf(`ALTER TABLE %s_default RENAME TO %s_default`, rebuild, s.table),
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRecords reads the whole table back, ordered by file identifier.
func (s *PGKeywordStore) ListRecords(ctx context.Context) ([]ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT file_id, captured_at, keywords FROM %s ORDER BY file_id, captured_at DESC`,
		s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ImageRecord
	for rows.Next() {
		var r ImageRecord
		if err := rows.Scan(&r.FileID, &r.CapturedAt, pq.Array(&r.Keywords)); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// GetRecord returns the record for a file identifier. When duplicates
// still exist before a dedup pass, the row that would survive it is
// returned.
func (s *PGKeywordStore) GetRecord(ctx context.Context, fileID string) (ImageRecord, error) {
	var r ImageRecord
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT file_id, captured_at, keywords FROM %s
		WHERE file_id = $1
		ORDER BY captured_at DESC, keywords
		LIMIT 1`, s.table), fileID).
		Scan(&r.FileID, &r.CapturedAt, pq.Array(&r.Keywords))

	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNoRecord
	}

	return r, err
}

// DropTable removes the keyword table entirely.
func (s *PGKeywordStore) DropTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table))
	return err
}

// Close releases the underlying connection pool.
func (s *PGKeywordStore) Close() error {
	return s.db.Close()
}
