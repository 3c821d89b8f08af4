package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/shopdex/shop-collector/internal/api_server"
	"github.com/shopdex/shop-collector/internal/batch"
	"github.com/shopdex/shop-collector/internal/collector"
	"github.com/shopdex/shop-collector/internal/config"
	"github.com/shopdex/shop-collector/internal/progress"
	"github.com/shopdex/shop-collector/internal/service"
	"github.com/shopdex/shop-collector/internal/store"
	"github.com/shopdex/shop-collector/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the collector api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("collector_api").Info("Starting collector API service")
		defer zap.S().Named("collector_api").Info("Collector API service stopped")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		writer, err := newEventWriter(cfg)
		if err != nil {
			zap.S().Fatalw("initializing event writer", "error", err)
		}
		producer := progress.NewEventProducer(writer, producerOptions(cfg)...)
		hub := progress.NewHub()
		sink := progress.NewSink(hub, producer)
		defer func() { _ = sink.Close() }()

		client := collector.NewClient(collector.ClientConfig{
			ClientID:      cfg.Collector.ClientID,
			ClientSecret:  cfg.Collector.ClientSecret,
			ApiUrl:        cfg.Collector.ApiUrl,
			PageSize:      cfg.Collector.PageSize,
			MaxPerKeyword: cfg.Collector.MaxPerKeyword,
			Timeout:       time.Duration(cfg.Collector.RequestTimeout) * time.Second,
			RetryAttempts: cfg.Collector.RetryAttempts,
		})
		col := collector.NewCollector(client, s)

		guard := batch.NewRunGuard(s)
		runner := batch.NewKeywordRunner(service.NewCollectionSource(col), batch.NewHistoryOracle(s))
		controller := batch.NewBatchController(s, runner, guard, sink, batch.ControllerConfig{
			KeywordTimeout:    time.Duration(cfg.Batch.KeywordTimeoutSeconds) * time.Second,
			HeartbeatInterval: time.Duration(cfg.Batch.HeartbeatIntervalSeconds) * time.Second,
		})

		runSrv := service.NewRunService(ctx, s, controller, guard, service.DelayBounds{
			Default: cfg.Batch.DefaultDelaySeconds,
			Min:     cfg.Batch.MinDelaySeconds,
			Max:     cfg.Batch.MaxDelaySeconds,
		})
		listingSrv := service.NewListingService(s, col, time.Duration(cfg.Batch.KeywordTimeoutSeconds)*time.Second)

		if err := runSrv.RecoverStaleRuns(ctx); err != nil {
			zap.S().Fatalw("recovering stale runs", "error", err)
		}

		listener, err := newListener(cfg.Service.Address)
		if err != nil {
			zap.S().Fatalw("creating listener", "error", err)
		}

		server := apiserver.New(cfg, s, listener, runSrv, listingSrv, hub)
		if err := server.Run(ctx); err != nil {
			zap.S().Fatalw("running server", "error", err)
		}

		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

func newEventWriter(cfg *config.Config) (progress.Writer, error) {
	if len(cfg.Service.Kafka.Brokers) == 0 {
		return &progress.StdoutWriter{}, nil
	}
	return progress.NewKafkaWriter(cfg.Service.Kafka.Brokers, cfg.Service.Kafka.ClientID, cfg.Service.Kafka.Version)
}

func producerOptions(cfg *config.Config) []progress.ProducerOptions {
	if cfg.Service.Kafka.Topic == "" {
		return nil
	}
	return []progress.ProducerOptions{progress.WithOutputTopic(cfg.Service.Kafka.Topic)}
}
