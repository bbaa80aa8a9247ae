package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vaxremind/vaxremind/internal/config"
	"github.com/vaxremind/vaxremind/internal/domain/admin"
	"github.com/vaxremind/vaxremind/internal/domain/patient"
	"github.com/vaxremind/vaxremind/internal/domain/reminder"
	"github.com/vaxremind/vaxremind/internal/domain/schedule"
	"github.com/vaxremind/vaxremind/internal/platform/auth"
	"github.com/vaxremind/vaxremind/internal/platform/db"
	"github.com/vaxremind/vaxremind/internal/platform/jobs"
	"github.com/vaxremind/vaxremind/internal/platform/middleware"
	"github.com/vaxremind/vaxremind/internal/platform/sms"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaxremind-server",
		Short: "Immunization registry and reminder service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// remindCmd runs a single reminder dispatch pass and exits. Useful for
// external schedulers (cron, systemd timers) instead of the built-in runner.
func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Dispatch reminders for a single day and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateStr, _ := cmd.Flags().GetString("date")

			now := time.Now().UTC()
			if dateStr != "" {
				d, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", dateStr)
				}
				now = d
			}

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			dispatcher := reminder.NewDispatcher(
				reminder.NewDueDoseReaderPG(pool),
				reminder.NewAttemptRepoPG(pool),
				buildGateway(cfg, logger),
				reminder.Policy{
					LookaheadDays:  cfg.ReminderLookaheadDays,
					RequireConsent: cfg.ReminderRequireConsent,
				},
				logger,
			)

			summary, err := dispatcher.RunTick(ctx, now)
			if err != nil {
				return fmt.Errorf("reminder dispatch failed: %w", err)
			}

			fmt.Printf("due=%d attempted=%d sent=%d failed=%d\n",
				summary.Due, summary.Attempted, summary.Sent, summary.Failed)
			return nil
		},
	}
	cmd.Flags().String("date", "", "Dispatch date as YYYY-MM-DD (default: today, UTC)")
	return cmd
}

func buildGateway(cfg *config.Config, logger zerolog.Logger) sms.Gateway {
	if cfg.SMSProvider == "fast2sms" {
		return sms.NewFast2SMSClient(cfg.Fast2SMSAPIKey, cfg.Fast2SMSMessageID, cfg.Fast2SMSPhoneNumberID)
	}
	logger.Warn().Msg("using mock SMS gateway, messages will not be delivered")
	return &sms.MockGateway{}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Repositories
	adminRepo := admin.NewAdminRepoPG(pool)
	patientRepo := patient.NewPatientRepoPG(pool)
	doseRepo := schedule.NewDoseRepoPG(pool)
	attemptRepo := reminder.NewAttemptRepoPG(pool)
	dueReader := reminder.NewDueDoseReaderPG(pool)

	// Services
	runInTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, pool, fn)
	}
	adminSvc := admin.NewService(adminRepo, []byte(cfg.JWTSecret))
	patientSvc := patient.NewService(patientRepo, doseRepo, runInTx)
	scheduleSvc := schedule.NewService(doseRepo)

	gateway := buildGateway(cfg, logger)
	dispatcher := reminder.NewDispatcher(dueReader, attemptRepo, gateway, reminder.Policy{
		LookaheadDays:  cfg.ReminderLookaheadDays,
		RequireConsent: cfg.ReminderRequireConsent,
	}, logger)

	// Public routes
	public := e.Group("/api/v1")
	admin.NewHandler(adminSvc).RegisterRoutes(public)
	e.GET("/health", db.HealthHandler(pool))

	// Authenticated routes
	api := e.Group("/api/v1")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(cfg.DevFacilityID))
	} else {
		api.Use(auth.JWTMiddleware([]byte(cfg.JWTSecret)))
	}
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(api)
	reminder.NewHandler(dispatcher, attemptRepo).RegisterRoutes(api)

	// Daily reminder runner
	runnerCtx, runnerCancel := context.WithCancel(ctx)
	defer runnerCancel()
	if cfg.ReminderEnabled {
		loc, err := time.LoadLocation(cfg.ReminderTimezone)
		if err != nil {
			logger.Fatal().Err(err).Str("timezone", cfg.ReminderTimezone).Msg("invalid reminder timezone")
		}
		runner := jobs.NewDailyRunner(cfg.ReminderHour, cfg.ReminderMinute, loc, logger,
			func(ctx context.Context, now time.Time) {
				if _, err := dispatcher.RunTick(ctx, now); err != nil {
					logger.Error().Err(err).Msg("reminder tick failed")
				}
			})
		go runner.Start(runnerCtx)
		logger.Info().
			Int("hour", cfg.ReminderHour).
			Int("minute", cfg.ReminderMinute).
			Str("timezone", cfg.ReminderTimezone).
			Msg("daily reminder runner started")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	runnerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
