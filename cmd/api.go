package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"vectorsync/internal/adapter/inbound/api"
	outboundmsg "vectorsync/internal/adapter/outbound/messaging"
	"vectorsync/internal/adapter/outbound/repository"
	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/application/service"

	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing sync triggers, the webhook
endpoint and job queries. Jobs are dispatched to the NATS work queue and
executed by worker processes.`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	router := api.NewRouter(
		api.NewHealthHandler(pool),
		api.NewJobHandler(syncJobs),
		api.NewSyncHandler(syncJobs, datasourceRepo),
	)
	server := api.NewServer(cfg.API, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slogger.InfoNoCtx("API server shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
