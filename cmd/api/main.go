package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/config"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/hris-payroll/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll/internal/repository/postgresql"
	notificationService "github.com/cmlabs-hris/hris-payroll/internal/service/notification"
	payrollService "github.com/cmlabs-hris/hris-payroll/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-payroll"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	clock := clockwork.NewRealClock()

	txManager := postgresql.NewTxManager(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	structureRepo := postgresql.NewSalaryStructureRepository(db)
	payslipRepo := postgresql.NewPayslipRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	hub := sse.NewHub(0)
	notifSvc := notificationService.NewNotificationService(notificationRepo, hub, clock, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.Workers,
		QueueSize:     cfg.Notification.QueueSize,
	})

	aggregator := payrollService.NewAttendanceAggregator(attendanceRepo, leaveRequestRepo, clock)
	payrollSvc := payrollService.NewPayrollService(
		txManager,
		payrollRepo,
		structureRepo,
		payslipRepo,
		employeeRepo,
		aggregator,
		payrollService.NewNotifier(notifSvc),
		clock,
		payrollService.Config{
			RegenerationPolicy: payroll.RegenerationPolicy(cfg.Payroll.RegenerationPolicy),
			Workers:            cfg.Payroll.Workers,
			DeliveryBatchSize:  cfg.Payroll.DeliveryBatchSize,
			DeliveryGrace:      cfg.Payroll.DeliveryGrace,
		},
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, clock)

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notifSvc, JWTService, clock)
	router := appHTTP.NewRouter(cfg, logger, JWTService, payrollHandler, notificationHandler, hub)

	scheduler := cron.NewScheduler(clock)
	cron.NewPayrollJobs(payrollSvc, cfg.Cron.PayslipDeliveryInterval).RegisterJobs(scheduler)
	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			scheduler.Stop()
			notifSvc.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	scheduler.Stop()
	// Flushes queued notifications before the pool closes.
	notifSvc.Stop()

	return nil
}
