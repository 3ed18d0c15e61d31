// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-keyword-monitor/internal/config"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/adapter"
	"event-keyword-monitor/internal/domain/ports/repository"
	"event-keyword-monitor/internal/infra/adapters/notify"
	"event-keyword-monitor/internal/infra/adapters/scrape"
	pg "event-keyword-monitor/internal/infra/db/postgres"
	"event-keyword-monitor/internal/infra/logging"
	"event-keyword-monitor/internal/infra/metrics"
	red "event-keyword-monitor/internal/infra/redis"
	"event-keyword-monitor/internal/infra/sched"
	"event-keyword-monitor/internal/infra/web"
	"event-keyword-monitor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop notifier, static collector)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Bool("dev", cfg.Runtime.Dev).Msg("starting event keyword monitor")

	metrics.MustRegister()

	// ---- Infrastructure ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	jobRunRepo := pg.NewJobRunRepo(pool)
	jobRunHistory := pg.NewJobRunRepoCacheDecorator(jobRunRepo, redisClient, cfg.Redis.TTL)
	subRepo := pg.NewSubscriptionRepo(pool)
	itemRepo := pg.NewWorkItemRepo(pool)

	// Rows left in running state by a previous crash can never complete.
	if n, err := jobRunHistory.SweepOrphanedRunning(ctx, repository.NoTX, "process restarted while run was in flight"); err != nil {
		logger.Error().Err(err).Msg("orphaned run sweep failed")
	} else if n > 0 {
		logger.Warn().Int64("swept", n).Msg("marked orphaned running records as failed")
	}

	// ---- Adapters ----
	var notifier adapter.Notifier
	router := notify.NewRouter()
	if !cfg.Runtime.Dev && cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.Token, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier init failed")
		}
		router.Mount(model.ChannelTelegram, tg)
		router.Mount(model.ChannelEmail, notify.NewNoopNotifier(logger))
	} else {
		noop := notify.NewNoopNotifier(logger)
		router.Mount(model.ChannelTelegram, noop)
		router.Mount(model.ChannelEmail, noop)
	}
	notifier = router

	failureNotifier := notify.NewAdminFailureNotifier(notifier, cfg.Notify.Telegram.AdminChatID, logger)

	var collector adapter.DataCollector
	if cfg.Runtime.Dev || cfg.Collector.BaseURL == "" {
		collector = scrape.NewStaticCollector(nil)
		logger.Warn().Msg("no collector endpoint configured, using static collector")
	} else {
		collector = scrape.NewHTTPCollector(cfg.Collector.BaseURL, cfg.Collector.Timeout, logger)
	}

	// ---- Use cases ----
	collectUC := usecase.NewCollectUseCase(collector, itemRepo, logger)
	dispatchUC := usecase.NewDispatchUseCase(subRepo, itemRepo, notifier, txManager, cfg.Scheduler.WorkItemBatch, logger)

	// ---- Scheduling ----
	clock := sched.NewClock()
	scheduler := sched.NewScheduler(logger)
	executor := sched.NewExecutor(jobRunHistory, failureNotifier, cfg.Scheduler.MaxRetries, time.Minute, clock, logger)
	breaker := sched.NewBreaker(
		jobRunHistory,
		scheduler,
		failureNotifier,
		cfg.Scheduler.FailureThreshold,
		cfg.Scheduler.Cooldown,
		time.Duration(cfg.Scheduler.RetentionDays)*24*time.Hour,
		clock,
		logger,
	)
	scheduler.SetResumeHook(func(job string) {
		breaker.OnResume(context.WithoutCancel(ctx), model.JobKind(job))
	})

	type jobEntry struct {
		kind     model.JobKind
		interval time.Duration
		body     sched.JobBody
	}
	registry := []jobEntry{
		{model.JobDataCollector, cfg.Scheduler.CollectInterval, collectUC.Run},
		{model.JobNotificationDispatcher, cfg.Scheduler.DispatchInterval, dispatchUC.Run},
	}
	for _, entry := range registry {
		err := scheduler.Register(sched.JobSpec{
			Name:         string(entry.kind),
			Interval:     entry.interval,
			StartupDelay: cfg.Scheduler.StartupDelay,
			Tick: func(tickCtx context.Context) {
				if !breaker.Allow(tickCtx, entry.kind) {
					return
				}
				executor.Execute(tickCtx, entry.kind, entry.body)
			},
		})
		if err != nil {
			logger.Fatal().Err(err).Str("job", string(entry.kind)).Msg("job registration failed")
		}
	}

	scheduler.Start(ctx)

	// ---- Admin API ----
	jobStatusUC := usecase.NewJobStatusUseCase(jobRunHistory, scheduler, logger)
	authMgr := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	server := web.NewServer(jobStatusUC, authMgr, cfg.Admin.APIKey, fmt.Sprintf(":%d", cfg.Admin.Port), logger)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("admin API server failed")
		}
	}

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin API shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}
