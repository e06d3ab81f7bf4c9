package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medpractice/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

func main() {
	root := &cobra.Command{
		Use:           "medpractice",
		Short:         "Medical practice management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), bootstrapAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the service logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.WithService(log, cfg.App), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database, nil, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

// bootstrapAdminCmd creates the first administrator, who can then register
// every other login through the API.
func bootstrapAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create an administrator login",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(password) < 12 {
				return errors.New("--password must be at least 12 characters")
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database, nil, log)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			u := &domain.User{
				Email:             strings.ToLower(strings.TrimSpace(email)),
				PasswordHash:      string(hash),
				DisplayName:       name,
				Role:              domain.RoleAdmin,
				IsActive:          true,
				PasswordChangedAt: time.Now(),
			}
			if err := postgres.NewUserRepository(db).Create(cmd.Context(), u); err != nil {
				return err
			}
			log.Info("administrator created", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runServer(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	m := metrics.NewCollector("medpractice", prometheus.DefaultRegisterer)

	db, err := database.Connect(cfg.Database, m, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB: %w", err)
	}
	defer sqlDB.Close()

	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	userRepo := postgres.NewUserRepository(db)

	auditSvc := service.NewAuditService(postgres.NewAuditRepository(db), m, log)
	jwtManager := auth.NewJWTManager(cfg.JWT)

	limiter := middleware.NewRateLimiter("api", rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize, m, log)
	authLimiter := middleware.NewRateLimiter("auth",
		rate.Every(time.Minute/time.Duration(max(cfg.RateLimit.AuthRequestsPerMinute, 1))),
		max(cfg.RateLimit.AuthRequestsPerMinute, 1), m, log)
	go limiter.RunSweeper(ctx, 5*time.Minute)
	go authLimiter.RunSweeper(ctx, 5*time.Minute)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		Orders:       service.NewOrderService(orderRepo, patientRepo, doctorRepo, auditSvc, m, log),
		Appointments: service.NewAppointmentService(appointmentRepo, patientRepo, doctorRepo, auditSvc, m, log, cfg.Clinic.AppointmentSlot),
		Patients:     service.NewPatientService(patientRepo, auditSvc, m, log),
		Doctors:      service.NewDoctorService(doctorRepo, auditSvc, m, log),
		Auth:         service.NewAuthService(userRepo, doctorRepo, patientRepo, jwtManager, auditSvc, log),
		Tokens:       jwtManager,
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		Limiter:      limiter,
		AuthLimiter:  authLimiter,
		Ping:         sqlDB.PingContext,
		App:          cfg.App,
		CORS:         cfg.CORS,
		Log:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			auditSvc.Shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	// Drain pending audit entries after the last request has finished.
	auditSvc.Shutdown()
	log.Info("server stopped")
	return nil
}
