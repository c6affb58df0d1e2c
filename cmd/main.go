package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/sente-labs/chatstore/internal/config"
	"github.com/sente-labs/chatstore/internal/faq"
	"github.com/sente-labs/chatstore/internal/logging"
	"github.com/sente-labs/chatstore/internal/metrics"
	"github.com/sente-labs/chatstore/internal/report"
	"github.com/sente-labs/chatstore/internal/server"
	"github.com/sente-labs/chatstore/internal/session"
	"github.com/sente-labs/chatstore/internal/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envPrefix  = flag.String("env-prefix", "CHATSTORE", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(*envPrefix, *configFile)
	cfg, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		log.Fatalf("failed to configure logger: %v", err)
	}

	promRegistry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promRegistry)

	entries := store.New(store.Options{
		DefaultTTL: cfg.Server.Store.TTL(),
		Shards:     cfg.Server.Store.Shards,
		Logger:     logger,
		Metrics:    recorder,
	})

	sessions := session.NewStore(entries, session.Options{
		ActivityTimeout: cfg.Server.Session.Timeout(),
		MaxHistory:      cfg.Server.Session.MaxHistory,
		EndedGrace:      cfg.Server.Session.Grace(),
		Logger:          logger,
		Metrics:         recorder,
	})

	faqCache := faq.New(entries, faq.Options{
		RecordTTL: cfg.Server.FAQ.RecordTTL(),
		StatsTTL:  cfg.Server.FAQ.StatTTL(),
		Languages: cfg.Server.FAQ.Languages,
		Services:  cfg.Server.FAQ.Services,
		Admission: faq.Admission{
			MinAnswerLength:    cfg.Server.FAQ.Admission.MinAnswerLength,
			ErrorIndicators:    cfg.Server.FAQ.Admission.ErrorIndicators,
			PersonalIndicators: cfg.Server.FAQ.Admission.PersonalIndicators,
		},
		Logger:  logger,
		Metrics: recorder,
	})

	if *configFile != "" {
		watcher, err := loader.Watch(ctx, *configFile, func(next config.Config) {
			faqCache.SetAdmission(faq.Admission{
				MinAnswerLength:    next.Server.FAQ.Admission.MinAnswerLength,
				ErrorIndicators:    next.Server.FAQ.Admission.ErrorIndicators,
				PersonalIndicators: next.Server.FAQ.Admission.PersonalIndicators,
			})
		}, func(err error) {
			logger.Error("config watcher error", slog.Any("error", err))
		})
		if err != nil {
			logger.Error("config watcher setup failed", slog.Any("error", err))
		} else {
			defer watcher.Stop()
		}
	}

	sweeper := store.NewSweeper(entries, logger, recorder)

	// Two independent periodic tasks: the physical TTL sweep and the
	// logical session cleanup run on their own schedules.
	sched := cron.New(cron.WithLocation(time.UTC))
	if _, err := sched.AddFunc(every(cfg.Server.Store.Interval()), func() {
		sweeper.Sweep(ctx)
	}); err != nil {
		logger.Error("sweep schedule setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := sched.AddFunc(every(cfg.Server.Session.Interval()), func() {
		sessions.CleanupExpired()
	}); err != nil {
		logger.Error("session cleanup schedule setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	reporter := report.New(entries)
	admin := server.NewAdminHandler(server.AdminDeps{
		Reporter: reporter,
		FAQ:      faqCache,
		Entries:  entries,
		Logger:   logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.Handle("/", admin)

	srv, err := server.New(cfg.Server.Listen, logger, mux)
	if err != nil {
		logger.Error("unable to construct server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

func every(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}
