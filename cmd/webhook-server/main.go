// cmd/webhook-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"interview-notifier/internal/appointments"
	"interview-notifier/internal/calendars"
	"interview-notifier/internal/common/aws"
	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/directory"
	"interview-notifier/internal/scheduling"
	"interview-notifier/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting webhook server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Init key-value store client with retry ---
	var store *aws.StoreClient
	err = retryWithBackoff(func() error {
		var err error
		store, err = aws.NewStoreClient(ctx, cfg.AWS.Region)
		return err
	}, 10, 2*time.Second, zapLog, "store client initialization")
	if err != nil {
		zapLog.Fatal("store client failed after retries", zap.Error(err))
	}
	zapLog.Info("Store client initialized")

	ses, err := aws.NewSESClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client initialization failed", zap.Error(err))
	}

	sns, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client initialization failed", zap.Error(err))
	}
	zapLog.Info("Email and notification clients initialized")

	// --- Init appointment-type cache ---
	// The cache degrades to pass-through when redis is unreachable, so a
	// failed ping is a warning rather than a fatal.
	cache := scheduling.NewTypeCache(cfg.Redis, time.Duration(cfg.Scheduling.TypeCacheTTL)*time.Second, log)
	defer cache.Close()
	err = retryWithBackoff(func() error {
		return cache.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, appointment-type cache disabled", zap.Error(err))
	} else {
		zapLog.Info("Redis connected successfully")
	}

	source := scheduling.NewClient(cfg.Scheduling, cache, log)
	dir := directory.NewClient(cfg.Directory, log)

	svc := appointments.NewService(store, source, dir, ses, cfg, log)
	blocker := calendars.NewBlocker(store, source, sns, cfg, log)

	srv := server.New(cfg.Server, svc, blocker, log)

	// --- Daily maintenance: reminder sweep + retention cleanup ---
	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	go runMaintenance(maintenanceCtx, svc, zapLog)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// --- Graceful Shutdown Handling ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	stopMaintenance()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Webhook server stopped")
}

// runMaintenance runs the reminder sweep and the retention cleaner once at
// startup and then every 24 hours.
func runMaintenance(ctx context.Context, svc *appointments.Service, log *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		results, err := svc.SweepReminders(ctx)
		if err != nil {
			log.Error("reminder sweep failed", zap.Error(err))
		} else {
			log.Info("reminder sweep completed", zap.Int("appointments", len(results)))
		}

		deleted, err := svc.DeleteOldAppointments(ctx)
		if err != nil {
			log.Error("retention cleanup failed", zap.Error(err))
		} else if len(deleted) > 0 {
			log.Info("retention cleanup completed", zap.Int("deleted", len(deleted)))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
