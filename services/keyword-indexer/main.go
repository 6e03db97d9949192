package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitmark-inc/config-loader"
	indexer "github.com/mediatrove/keyword-indexer"
	"github.com/mediatrove/keyword-indexer/externals/aws/ssm"
	"github.com/mediatrove/keyword-indexer/externals/rekognition"
	"github.com/mediatrove/keyword-indexer/log"
	"github.com/mediatrove/keyword-indexer/objectstore"
	"github.com/mediatrove/keyword-indexer/runstore"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion batch and exit")
	flag.Parse()

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config.LoadConfig("KEYWORD_INDEXER")
	if err := log.Initialize(viper.GetString("log.level"), viper.GetBool("debug")); err != nil {
		panic(fmt.Errorf("fail to initialize logger with error: %s", err.Error()))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: viper.GetString("sentry.dsn"),
	}); err != nil {
		log.Panic("Sentry initialization failed", zap.Error(err))
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(viper.GetString("aws.region")),
	})
	if err != nil {
		log.Panic("fail to create AWS session", zap.Error(err))
	}

	dsn := viper.GetString("keyword_store.dsn")
	if dsn == "" {
		sm, err := ssm.New(mainCtx)
		if err != nil {
			log.Panic("fail to create SSM client", zap.Error(err))
		}

		dsn, err = sm.GetSecret(mainCtx, viper.GetString("keyword_store.dsn_ssm_parameter"))
		if err != nil {
			log.Panic("fail to resolve keyword store DSN from SSM", zap.Error(err))
		}
	}

	keywordStore, err := indexer.NewPGKeywordStore(dsn, viper.GetString("keyword_store.table"))
	if err != nil {
		panic(err)
	}
	if err := keywordStore.CreateTable(mainCtx); err != nil {
		panic(err)
	}

	runs := runstore.New(dsn)
	if err := runs.AutoMigrate(); err != nil {
		panic(err)
	}

	pipeline := indexer.NewIngestionPipeline(
		objectstore.New(sess, viper.GetString("s3.bucket")),
		rekognition.New(sess),
		keywordStore,
		viper.GetString("s3.landing_prefix"),
		viper.GetString("s3.archive_prefix"),
	)

	ctx, stop := signal.NotifyContext(mainCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollInterval, err := time.ParseDuration(viper.GetString("pipeline.poll_interval"))
	if err != nil {
		log.Error("invalid duration. use default value 1m", zap.Error(err))
		pollInterval = time.Minute
	}

	for {
		runBatch(ctx, runs, pipeline)

		if *once {
			break
		}

		if done := indexer.SleepWithContext(ctx, pollInterval); done {
			break
		}
	}

	log.Info("keyword indexer terminated")
}

// runBatch executes one pipeline run and journals the outcome under the
// same run id. A journaling failure never blocks ingestion.
func runBatch(ctx context.Context, runs *runstore.RunStore, pipeline *indexer.IngestionPipeline) {
	run, journalErr := runs.Begin(ctx)
	if journalErr != nil {
		log.Error("fail to journal pipeline run start", zap.Error(journalErr))
	}

	summary, runErr := pipeline.Run(ctx, run.ID)
	if runErr != nil {
		log.Error("pipeline run failed", zap.Error(runErr), zap.String("runID", summary.RunID))
		sentry.CaptureException(runErr)

		if journalErr == nil {
			if err := runs.Fail(ctx, run.ID, runErr); err != nil {
				log.Error("fail to journal pipeline run failure", zap.Error(err))
			}
		}
		return
	}

	if journalErr == nil {
		if err := runs.Complete(ctx, run.ID, summary); err != nil {
			log.Error("fail to journal pipeline run completion", zap.Error(err))
		}
	}
}
