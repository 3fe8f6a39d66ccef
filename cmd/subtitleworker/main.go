package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media/repository"
	"github.com/streamvault/media-pipeline/internal/runner"
	"github.com/streamvault/media-pipeline/internal/subtitles"
	"github.com/streamvault/media-pipeline/internal/worker"
	"github.com/streamvault/media-pipeline/pkg/db/aws"
	"github.com/streamvault/media-pipeline/pkg/db/postgres"
	clientRedis "github.com/streamvault/media-pipeline/pkg/db/redis"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()
	appLogger.Infof("db connected, status: %#v", psqlDB.Stats())

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()
	appLogger.Infof("redis connected")

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	mediaRepo := repository.NewMediaRepo(psqlDB)
	queueRepo := repository.NewQueueRepo(redisClient, cfg, appLogger)
	awsRepo := repository.NewAwsRepository(s3Client, presignClient, cfg.S3.Endpoint)

	run := runner.New(cfg.Subtitle.AttemptTimeout)
	translator := subtitles.NewLLMTranslator(cfg.Subtitle.Translator)
	pipeline := subtitles.NewPipeline(cfg, mediaRepo, queueRepo, awsRepo, run, translator, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Infof("shutting down subtitle workers")
		cancel()
	}()

	w := worker.NewWorker(cfg, appLogger, queueRepo, nil, pipeline)
	w.StartSubtitleWorkers(ctx)
	w.Wait()
}
