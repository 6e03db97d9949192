package main

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	indexer "github.com/mediatrove/keyword-indexer"
	"github.com/mediatrove/keyword-indexer/log"
	"github.com/mediatrove/keyword-indexer/runstore"
)

type KeywordAPIServer struct {
	apiToken     string
	route        *gin.Engine
	keywordStore indexer.KeywordStore
	runStore     *runstore.RunStore
}

func NewKeywordAPIServer(keywordStore indexer.KeywordStore, runStore *runstore.RunStore, apiToken string) *KeywordAPIServer {
	r := gin.New()
	r.Use(cors.Default())

	return &KeywordAPIServer{
		apiToken:     apiToken,
		route:        r,
		keywordStore: keywordStore,
		runStore:     runStore,
	}
}

func (s *KeywordAPIServer) Run(port string) error {
	return s.route.Run(port)
}

func abortWithError(c *gin.Context, code int, message string, traceErr error) {
	log.Error(message, zap.Error(traceErr))
	if traceErr != nil {
		sentry.CaptureException(traceErr)
	}

	c.AbortWithStatusJSON(code, gin.H{
		"message": message,
	})
}
