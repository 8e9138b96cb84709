package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/kamalsharma29/crm-dashboard/internal/database"
	"github.com/kamalsharma29/crm-dashboard/internal/notify"
	"github.com/kamalsharma29/crm-dashboard/internal/tasks"
	"github.com/kamalsharma29/crm-dashboard/pkg/config"
	"github.com/kamalsharma29/crm-dashboard/pkg/queue"
	"github.com/kamalsharma29/crm-dashboard/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting CRM worker")

	sweepSchedule, err := util.ParseSchedule(cfg.Worker.FollowUpCron)
	if err != nil {
		logger.Error("invalid FOLLOWUP_CRON", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if !cfg.Email.SMTPEnabled() {
		logger.Warn("SMTP not configured, notifications will only be logged")
	}
	mailer := notify.NewMailer(cfg.Email, logger)

	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency, logger)
	handler := tasks.NewHandler(db, mailer, tasks.NewEnqueuer(client), logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis, logger)
	now := time.Now()
	entryID, err := scheduler.Register(sweepSchedule.String(), tasks.NewFollowUpSweepTask(),
		asynq.Queue(queue.QueueLow),
		asynq.Unique(sweepSchedule.Interval(now)),
	)
	if err != nil {
		logger.Error("failed to register follow-up sweep", "error", err)
		os.Exit(1)
	}
	logger.Info("follow-up sweep scheduled",
		"entry_id", entryID,
		"cron", sweepSchedule.String(),
		"next_run", sweepSchedule.Next(now),
	)

	if err := scheduler.Start(); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		scheduler.Shutdown()
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}

	logger.Info("worker stopped")
}
