package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/app"
	"go.uber.org/zap"
)

// @title        SmartPay Dashboard API
// @version      1.0
// @description  JSON view of the salary prediction backend: predict, analyze and explain.
// @BasePath     /api/v1
func main() {
	pkg.InitLogger()
	logger := pkg.Logger.Named(pkg.ServiceDashboard)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, cleanup, err := app.NewApp(ctx, logger)
	if err != nil {
		logger.Fatal("failed_to_initialize_app", zap.Error(err))
	}
	defer cleanup()

	// Start a server in goroutine to allow signal handling
	go func() {
		logger.Info("dashboard_started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received_shutdown_signal", zap.String("signal", sig.String()))
	cancel()

	// in-flight requests finish within the backend timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", zap.Error(err))
	}
	logger.Info("dashboard_stopped")
}
