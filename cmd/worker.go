package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	inboundmsg "vectorsync/internal/adapter/inbound/messaging"
	"vectorsync/internal/adapter/outbound/gemini"
	outboundmsg "vectorsync/internal/adapter/outbound/messaging"
	"vectorsync/internal/adapter/outbound/qdrant"
	"vectorsync/internal/adapter/outbound/repository"
	"vectorsync/internal/adapter/outbound/source"
	"vectorsync/internal/application/service"
	"vectorsync/internal/application/worker"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const dispatchMaxDeliver = 3

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start a sync worker",
	Long: `Start a worker process that pulls sync job dispatches from the NATS
work queue and executes them: full, incremental and webhook syncs, plus the
stale job reaper and the cron scheduler.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetMeterProvider(sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("vectorsync-worker"),
		)),
	))

	pool, err := repository.NewDatabaseConnection(repository.DatabaseConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Name,
		Username:       cfg.Database.User,
		Password:       cfg.Database.Password,
		Schema:         cfg.Database.Schema,
		MaxConnections: cfg.Database.MaxConnections,
		SSLMode:        cfg.Database.SSLMode,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	jobRepo := repository.NewSyncJobRepository(pool)
	errorRepo := repository.NewSyncErrorRepository(pool)
	datasourceRepo := repository.NewDatasourceRepository(pool)

	connector := source.NewConnector(10*time.Second, cfg.Worker.JobTimeout)

	embeddings, err := gemini.NewClient(gemini.ClientConfig{
		APIKey:            cfg.Gemini.APIKey,
		BaseURL:           cfg.Gemini.BaseURL,
		Model:             cfg.Gemini.Model,
		Timeout:           cfg.Gemini.Timeout,
		BatchLimit:        cfg.Gemini.BatchLimit,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Dimensions:        cfg.Gemini.Dimensions,
	})
	if err != nil {
		return err
	}

	vectorStore, err := qdrant.NewClient(qdrant.ClientConfig{
		URL:     cfg.Qdrant.URL,
		APIKey:  cfg.Qdrant.APIKey,
		Timeout: cfg.Qdrant.Timeout,
	})
	if err != nil {
		return err
	}

	executor, err := worker.NewBatchExecutor(embeddings, vectorStore, jobRepo, errorRepo, cfg.Qdrant.DistanceMetric)
	if err != nil {
		return err
	}

	fullProcessor := worker.NewFullSyncProcessor(connector, executor, jobRepo, cfg.Sync.DefaultBatchSize)
	incrementalProcessor := worker.NewIncrementalSyncProcessor(
		connector, executor, jobRepo, datasourceRepo,
		cfg.Sync.DefaultBatchSize, cfg.Sync.DefaultBatchDelay,
	)
	webhookProcessor := worker.NewWebhookSyncProcessor(connector, executor, vectorStore, jobRepo, errorRepo)

	jobProcessor, err := worker.NewJobProcessor(
		jobRepo, datasourceRepo, errorRepo,
		fullProcessor, incrementalProcessor, webhookProcessor,
	)
	if err != nil {
		return err
	}

	consumer, err := inboundmsg.NewNATSConsumer(inboundmsg.ConsumerConfig{
		DurableName: cfg.Worker.QueueGroup,
		// AckWait must outlive the longest job or the queue redelivers a
		// dispatch that is still running.
		AckWait:     cfg.Worker.JobTimeout + time.Minute,
		MaxDeliver:  dispatchMaxDeliver,
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
	}, cfg.NATS, jobProcessor)
	if err != nil {
		return err
	}

	publisher, err := outboundmsg.NewNATSSyncJobPublisher(cfg.NATS)
	if err != nil {
		return err
	}
	if err := publisher.Connect(); err != nil {
		return err
	}
	defer publisher.Close()

	syncJobs, err := service.NewSyncJobService(jobRepo, datasourceRepo, errorRepo, publisher)
	if err != nil {
		return err
	}

	reaper, err := service.NewReaper(service.ReaperConfig{
		StaleTimeout:    cfg.Sync.StaleJobTimeout,
		ReapInterval:    cfg.Sync.ReapInterval,
		RetentionPeriod: cfg.Sync.RetentionPeriod,
		CleanupInterval: cfg.Sync.CleanupInterval,
	}, jobRepo, errorRepo)
	if err != nil {
		return err
	}

	scheduler, err := service.NewScheduler(datasourceRepo, syncJobs, time.Minute)
	if err != nil {
		return err
	}

	workerService, err := service.NewWorkerService(consumer, reaper, scheduler)
	if err != nil {
		return err
	}

	return workerService.Run(ctx)
}
