package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	indexer "github.com/mediatrove/keyword-indexer"
)

func (s *KeywordAPIServer) SetupRoute() {
	s.route.GET("/healthz", s.Healthz)
	s.route.GET("/records", s.ListRecords)
	s.route.GET("/records/*file_id", s.GetRecord)
	s.route.GET("/runs", s.ListRuns)

	s.route.Use(TokenAuthenticate("API-TOKEN", s.apiToken))
	s.route.POST("/admin/deduplicate", s.TriggerDeduplicate)
}

func (s *KeywordAPIServer) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": 1})
}

// ListRecords returns every row of the keyword table.
func (s *KeywordAPIServer) ListRecords(c *gin.Context) {
	records, err := s.keywordStore.ListRecords(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "fail to read keyword records", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetRecord returns the live record for one file identifier. File
// identifiers may contain slashes, hence the wildcard route.
func (s *KeywordAPIServer) GetRecord(c *gin.Context) {
	fileID := strings.TrimPrefix(c.Param("file_id"), "/")
	if fileID == "" {
		abortWithError(c, http.StatusBadRequest, "missing file identifier", nil)
		return
	}

	record, err := s.keywordStore.GetRecord(c, fileID)
	if err != nil {
		if errors.Is(err, indexer.ErrNoRecord) {
			abortWithError(c, http.StatusNotFound, "record not found", nil)
			return
		}
		abortWithError(c, http.StatusInternalServerError, "fail to read keyword record", err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListRuns returns the most recent pipeline runs.
func (s *KeywordAPIServer) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid limit", err)
		return
	}

	runs, err := s.runStore.List(c, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "fail to list pipeline runs", err)
		return
	}

	c.JSON(http.StatusOK, runs)
}

// TriggerDeduplicate rewrites the keyword table keeping one row per
// file. Safe to call repeatedly.
func (s *KeywordAPIServer) TriggerDeduplicate(c *gin.Context) {
	if err := s.keywordStore.Deduplicate(c); err != nil {
		abortWithError(c, http.StatusInternalServerError, "fail to deduplicate keyword table", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": 1})
}
