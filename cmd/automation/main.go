// cmd/automation/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"outreach_automation/internal/app"
	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/infra/ai"
	"outreach_automation/internal/infra/config"
	"outreach_automation/internal/infra/database"
	"outreach_automation/internal/infra/httpapi"
	"outreach_automation/internal/infra/logger"
	"outreach_automation/internal/infra/mailer"
	appqueue "outreach_automation/internal/infra/queue"
	"outreach_automation/internal/infra/scheduler"
	"outreach_automation/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const memoryQueueBackoff = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	campaignRepo := database.NewPostgresCampaignRepository(db)
	leadRepo := database.NewPostgresLeadRepository(db)
	deliveryRepo := database.NewPostgresDeliveryRepository(db)

	var notifier delivery.Notifier
	if cfg.TelegramToken != "" {
		opsNotifier, err := telegram.NewOpsNotifier(cfg.TelegramToken, cfg.OpsChatID, log)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram notifier: %v", err)
		}
		notifier = opsNotifier
		log.Info("Telegram ops notifier enabled")
	}

	deadLetter := func(job delivery.DispatchJob, cause error) {
		log.Errorf("main: job %s exhausted delivery attempts: %v", job.ID(), cause)
		if notifier != nil {
			notifier.DeliveryDeadLettered(job, cause)
		}
	}

	var dispatchQueue delivery.Queue
	if cfg.AmqpURL != "" {
		conn, err := amqp.Dial(cfg.AmqpURL)
		if err != nil {
			log.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		defer conn.Close()

		dispatchQueue, err = appqueue.NewAmqpDispatchQueue(conn, cfg.DispatchQueueName, deliveryRepo, cfg.DispatchMaxAttempts, deadLetter, log)
		if err != nil {
			log.Fatalf("Failed to initialize AMQP dispatch queue: %v", err)
		}
		log.Infof("AMQP dispatch queue ready (queue %s)", cfg.DispatchQueueName)
	} else {
		log.Warn("AMQP_URL not set, using the in-memory dispatch queue; jobs do not survive restarts")
		dispatchQueue = appqueue.NewMemoryDispatchQueue(cfg.DispatchMaxAttempts, memoryQueueBackoff, deadLetter, log)
	}

	draftResolver := ai.NewOpenAIDraftResolver(deliveryRepo, campaignRepo, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log)
	emailMailer := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom, log)

	schedulerSvc := app.NewSchedulerService(campaignRepo, leadRepo, deliveryRepo, dispatchQueue, notifier, log)
	deliverySvc := app.NewDeliveryService(leadRepo, deliveryRepo, draftResolver, emailMailer, log)
	campaignSvc := app.NewCampaignService(campaignRepo, leadRepo, deliveryRepo, deliveryRepo, log)
	leadSvc := app.NewLeadService(campaignRepo, leadRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		workers.Add(1)
		go func(n int) {
			defer workers.Done()
			if err := dispatchQueue.Consume(ctx, deliverySvc.ProcessJob); err != nil && ctx.Err() == nil {
				log.Errorf("main: delivery worker %d stopped: %v", n, err)
			}
		}(i)
	}
	log.Infof("Started %d delivery workers", cfg.WorkerConcurrency)

	automationScheduler := scheduler.NewAutomationScheduler(schedulerSvc, log, cfg.CronSpecTick)
	if err := automationScheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	apiServer := httpapi.NewServer(schedulerSvc, campaignSvc, leadSvc, log)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: apiServer.Router()}
	go func() {
		log.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	automationScheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}

	workers.Wait()
	log.Info("Application stopped gracefully")
}
