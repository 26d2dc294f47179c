package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stef-codes/30days-weather-dashboard/internal/client"
	"github.com/stef-codes/30days-weather-dashboard/internal/config"
	"github.com/stef-codes/30days-weather-dashboard/internal/dashboard"
	"github.com/stef-codes/30days-weather-dashboard/internal/observability"
	"github.com/stef-codes/30days-weather-dashboard/internal/store"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("aws config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.HTTPTimeout,
		cfg.RateLimitRPS,
		cfg.RateLimitBurst,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	snapshots := store.NewSnapshotStore(s3.NewFromConfig(awsCfg), cfg.BucketName, runID)
	forecasts := store.NewForecastStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)

	d := dashboard.New(weatherClient, snapshots, forecasts, logger, os.Stdout)

	logger.Info("starting run",
		zap.Strings("cities", cfg.Cities),
		zap.String("bucket", cfg.BucketName),
		zap.String("table", cfg.TableName),
	)

	runErr := d.Run(ctx, cfg.Cities)
	observability.LogRunSummary(logger)
	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
		os.Exit(1)
	}
}
