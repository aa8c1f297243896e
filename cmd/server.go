package cmd

import (
	"context"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"crypto-signals/internal/delivery/http"
	"crypto-signals/internal/repository"
	"crypto-signals/internal/service"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the signal engine",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo, err := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.log)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	services := service.NewService(
		appDep.cfg,
		appDep.log,
		repo,
		appDep.notifier,
		appDep.cache,
	)
	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, services)

	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && err != httpNet.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	services.AutoTradeWorker.Start(ctx)

	utils.GoSafe(func() {
		appDep.notifier.StartCleanupExpired(ctx)
	})

	scheduler := cron.New()
	_, err = scheduler.AddFunc(appDep.cfg.Trading.ExpireSweepCron, func() {
		expired, err := services.GeneratorService.ExpireStaleSignals(ctx)
		if err != nil {
			appDep.log.ErrorContext(ctx, "Expire sweep failed", logger.ErrorField(err))
			return
		}
		if expired > 0 {
			appDep.log.InfoContext(ctx, "Expire sweep completed", logger.Int64Field("expired", expired))
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule expire sweep: %v", err)
	}
	scheduler.Start()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	scheduler.Stop()
	services.AutoTradeWorker.Stop()
	appDep.notifier.Wait()

	if err := apiServer.Stop(); err != nil {
		log.Fatalf("Failed to stop HTTP server: %v", err)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
