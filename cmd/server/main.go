package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Server timeouts

	"perfect_vault/internal/account" // Credential store
	"perfect_vault/internal/api"     // Custom package for HTTP handlers
	"perfect_vault/internal/audit"   // Ledger reconciliation
	"perfect_vault/internal/cache"   // View cache
	"perfect_vault/internal/config"  // Custom package for configuration
	"perfect_vault/internal/db"      // Database connection and migration
	"perfect_vault/internal/ledger"  // Ledger
	"perfect_vault/internal/notify"  // Email notifications
	"perfect_vault/internal/session" // Session gate

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/robfig/cron/v3"    // Scheduled jobs
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to the database and make sure the schema is current
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("%v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer redisClient.Close()

	// Test Redis connection
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Mail goes through an async queue, or only to the log when SMTP is not configured
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPUser != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
	} else {
		logrus.Warn("SMTP_USER not set, emails will only be logged")
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.MailWorkers, cfg.MailQueueSize)

	// Periodic ledger reconciliation
	scheduler := cron.New()
	if _, err := audit.Schedule(scheduler, cfg.ReconcileSchedule, audit.NewReconciler(gdb)); err != nil {
		logrus.Fatalf("failed to schedule reconciliation: %v", err)
	}
	scheduler.Start()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := api.NewRouter(api.Deps{
		DB:            gdb,
		Redis:         redisClient,
		Accounts:      account.NewStore(gdb, cfg.AdminEmails),
		Ledger:        ledger.NewService(gdb, dispatcher),
		Sessions:      session.NewManager(redisClient, cfg.JWTSecret, cfg.SessionTTL),
		Cache:         cache.New(redisClient, cache.DefaultTTL),
		Notifier:      dispatcher,
		SecureCookies: cfg.IsProd,
		AuthRateLimit: 10,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server forced to shutdown: %v", err)
	}
	<-scheduler.Stop().Done() // Let a running reconciliation finish
	dispatcher.Close()        // Drain queued emails
	logrus.Info("Server exited")
}
