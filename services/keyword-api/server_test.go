package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexer "github.com/mediatrove/keyword-indexer"
	"github.com/mediatrove/keyword-indexer/log"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := log.Initialize("debug", true); err != nil {
		panic(fmt.Errorf("fail to initialize logger with error: %s", err.Error()))
	}
	os.Exit(m.Run())
}

type stubKeywordStore struct {
	records      []indexer.ImageRecord
	deduplicated int
}

func (s *stubKeywordStore) CreateTable(ctx context.Context) error { return nil }
func (s *stubKeywordStore) DropTable(ctx context.Context) error   { return nil }

func (s *stubKeywordStore) AppendRecords(ctx context.Context, records []indexer.ImageRecord) error {
	s.records = append(s.records, records...)
	return nil
}

func (s *stubKeywordStore) Deduplicate(ctx context.Context) error {
	s.deduplicated++
	return nil
}

func (s *stubKeywordStore) ListRecords(ctx context.Context) ([]indexer.ImageRecord, error) {
	return s.records, nil
}

func (s *stubKeywordStore) GetRecord(ctx context.Context, fileID string) (indexer.ImageRecord, error) {
	for _, r := range s.records {
		if r.FileID == fileID {
			return r, nil
		}
	}
	return indexer.ImageRecord{}, indexer.ErrNoRecord
}

func newTestServer(store indexer.KeywordStore) *KeywordAPIServer {
	s := NewKeywordAPIServer(store, nil, "test-token")
	s.SetupRoute()
	return s
}

func TestListRecords(t *testing.T) {
	store := &stubKeywordStore{records: []indexer.ImageRecord{
		{FileID: "a.jpg", CapturedAt: time.Now().UTC(), Keywords: []string{"cat", "pet"}},
	}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	s.route.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var records []indexer.ImageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "a.jpg", records[0].FileID)
	assert.Equal(t, []string{"cat", "pet"}, records[0].Keywords)
}

func TestGetRecord(t *testing.T) {
	store := &stubKeywordStore{records: []indexer.ImageRecord{
		{FileID: "sub/a.jpg", CapturedAt: time.Now().UTC(), Keywords: []string{"cat"}},
	}}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/sub/a.jpg", nil)
	s.route.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var record indexer.ImageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "sub/a.jpg", record.FileID)
}

func TestGetRecordNotFound(t *testing.T) {
	s := newTestServer(&stubKeywordStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/missing.jpg", nil)
	s.route.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerDeduplicateRequiresToken(t *testing.T) {
	store := &stubKeywordStore{}
	s := newTestServer(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/deduplicate", nil)
	s.route.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.deduplicated)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/deduplicate", nil)
	req.Header.Set("API-TOKEN", "test-token")
	s.route.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.deduplicated)
}
