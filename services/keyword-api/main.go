package main

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitmark-inc/config-loader"
	indexer "github.com/mediatrove/keyword-indexer"
	"github.com/mediatrove/keyword-indexer/externals/aws/ssm"
	"github.com/mediatrove/keyword-indexer/log"
	"github.com/mediatrove/keyword-indexer/runstore"
)

func main() {
	ctx := context.Background()

	config.LoadConfig("KEYWORD_INDEXER")
	if err := log.Initialize(viper.GetString("log.level"), viper.GetBool("debug")); err != nil {
		panic(fmt.Errorf("fail to initialize logger with error: %s", err.Error()))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: viper.GetString("sentry.dsn"),
	}); err != nil {
		log.Panic("Sentry initialization failed", zap.Error(err))
	}

	dsn := viper.GetString("keyword_store.dsn")
	if dsn == "" {
		sm, err := ssm.New(ctx)
		if err != nil {
			log.Panic("fail to create SSM client", zap.Error(err))
		}

		dsn, err = sm.GetSecret(ctx, viper.GetString("keyword_store.dsn_ssm_parameter"))
		if err != nil {
			log.Panic("fail to resolve keyword store DSN from SSM", zap.Error(err))
		}
	}

	keywordStore, err := indexer.NewPGKeywordStore(dsn, viper.GetString("keyword_store.table"))
	if err != nil {
		log.Panic("fail to initiate keyword store", zap.Error(err))
	}

	runs := runstore.New(dsn)

	s := NewKeywordAPIServer(keywordStore, runs, viper.GetString("server.api_token"))
	s.SetupRoute()
	if err := s.Run(viper.GetString("server.port")); err != nil {
		log.Panic("server interrupted", zap.Error(err))
	}
}
