package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prospexa-ai/platform/pkg/alerts"
	"github.com/prospexa-ai/platform/pkg/channels"
	"github.com/prospexa-ai/platform/pkg/classify"
	"github.com/prospexa-ai/platform/pkg/common/config"
	"github.com/prospexa-ai/platform/pkg/common/database"
	"github.com/prospexa-ai/platform/pkg/common/kafka"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/prospexa-ai/platform/pkg/inbox"
	"github.com/prospexa-ai/platform/pkg/ops"
	"github.com/prospexa-ai/platform/pkg/outreach"
	"github.com/prospexa-ai/platform/pkg/ratelimit"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := outreach.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate outreach tables")
	}

	seqConfig, err := outreach.LoadSequenceConfig(cfg.SequenceConfig)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load sequence config")
	}

	if err := repo.SeedChannelConfigs(context.Background(), []models.ChannelConfig{
		{Channel: models.ChannelEmail, Enabled: cfg.SMTPEnabled, HourlyLimit: cfg.ChannelHourlyLimit, DailyLimit: cfg.ChannelDailyLimit, MaxRetries: seqConfig.MaxRetries},
		{Channel: models.ChannelNetwork, Enabled: cfg.NetworkEnabled, HourlyLimit: cfg.ChannelHourlyLimit, DailyLimit: cfg.ChannelDailyLimit, MaxRetries: seqConfig.MaxRetries},
		{Channel: models.ChannelContactForm, Enabled: cfg.ContactFormEnabled, HourlyLimit: cfg.ChannelHourlyLimit, DailyLimit: cfg.ChannelDailyLimit, MaxRetries: seqConfig.MaxRetries},
	}); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed channel configs")
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(database.GetRedis()), ratelimit.Limits{
		GlobalHourly:   cfg.GlobalHourlyLimit,
		GlobalDaily:    cfg.GlobalDailyLimit,
		ChannelHourly:  cfg.ChannelHourlyLimit,
		ChannelDaily:   cfg.ChannelDailyLimit,
		RecipientDaily: cfg.RecipientDailyLimit,
	})

	mailer := channels.NewMailer(cfg)
	var adapters []channels.Adapter
	if cfg.SMTPEnabled {
		adapters = append(adapters, channels.NewEmailAdapter(mailer))
	}
	if cfg.NetworkEnabled {
		adapters = append(adapters, channels.NewNetworkAdapter(cfg))
	}
	if cfg.ContactFormEnabled {
		adapters = append(adapters, channels.NewContactFormAdapter(cfg))
	}
	if len(adapters) == 0 {
		logger.Log.Warn("no outreach channels enabled, worker will only process replies and timeouts")
	}

	producer := kafka.NewProducer(cfg.KafkaEventTopic)
	defer producer.Close()

	sequencer := outreach.NewSequencer(adapters, limiter, repo, producer)
	lock := outreach.NewAdvisoryLock(repo, cfg.WorkerID, cfg.LockTTL)

	params := outreach.OrchestratorParams{
		Store:        repo,
		Lock:         lock,
		Sequencer:    sequencer,
		Classifier:   classify.NewClassifier(cfg),
		Events:       producer,
		WorkerID:     cfg.WorkerID,
		Sequence:     seqConfig,
		Rules:        outreach.DefaultRules(),
		Interval:     cfg.CycleInterval,
		BatchSize:    cfg.SendBatchSize,
		NurtureAfter: cfg.NurtureAfter,
		DeadAfter:    cfg.DeadAfter,
		Lookback:     cfg.ReplyLookback,
	}
	if client := inbox.NewClient(cfg); client != nil {
		params.Inbox = client
	}
	if len(cfg.AlertRecipients) > 0 {
		params.Alerter = alerts.NewDispatcher(repo, mailer, cfg.AlertRecipients, cfg.AlertSubjectTag)
	} else {
		logger.Log.Warn("no alert recipients configured, qualified leads will not be alerted")
	}

	orchestrator := outreach.NewOrchestrator(params)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		orchestrator.Run(ctx)
		close(done)
	}()

	address := fmt.Sprintf("%s:%s", cfg.OpsHost, cfg.OpsPort)
	server := &http.Server{
		Addr:         address,
		Handler:      ops.NewRouter(repo, cfg.WorkerID),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("outreach ops server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start ops server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down outreach worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("ops server forced to shutdown")
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Log.Warn("orchestrator did not stop within shutdown window")
	}

	// Best effort: let the next worker acquire immediately instead of
	// waiting out the TTL.
	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer releaseCancel()
	if err := lock.Release(releaseCtx); err != nil {
		logger.Log.WithError(err).Error("failed to release cycle lock on shutdown")
	}
	logger.Log.Info("outreach worker stopped")
}
