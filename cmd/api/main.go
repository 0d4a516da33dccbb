package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/bp-admin-api/config"
	authHandler "github.com/jwalitptl/bp-admin-api/internal/handler/auth"
	communicationHandler "github.com/jwalitptl/bp-admin-api/internal/handler/communication"
	dashboardHandler "github.com/jwalitptl/bp-admin-api/internal/handler/dashboard"
	healthHandler "github.com/jwalitptl/bp-admin-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/bp-admin-api/internal/handler/patient"
	readingHandler "github.com/jwalitptl/bp-admin-api/internal/handler/reading"
	taskHandler "github.com/jwalitptl/bp-admin-api/internal/handler/task"
	userHandler "github.com/jwalitptl/bp-admin-api/internal/handler/user"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/postgres"
	"github.com/jwalitptl/bp-admin-api/internal/router"
	analyticsService "github.com/jwalitptl/bp-admin-api/internal/service/analytics"
	authService "github.com/jwalitptl/bp-admin-api/internal/service/auth"
	communicationService "github.com/jwalitptl/bp-admin-api/internal/service/communication"
	eventService "github.com/jwalitptl/bp-admin-api/internal/service/event"
	patientService "github.com/jwalitptl/bp-admin-api/internal/service/patient"
	readingService "github.com/jwalitptl/bp-admin-api/internal/service/reading"
	taskService "github.com/jwalitptl/bp-admin-api/internal/service/task"
	userService "github.com/jwalitptl/bp-admin-api/internal/service/user"
	"github.com/jwalitptl/bp-admin-api/pkg/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/logger"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
	"github.com/jwalitptl/bp-admin-api/pkg/security"
	"github.com/jwalitptl/bp-admin-api/pkg/validator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bp-admin-api",
		Short:         "Blood pressure program admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.Setup(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrateFirst, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrateFirst)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runServer(migrateFirst bool) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if migrateFirst {
		if err := runMigrations(cfg, log, func(mr *postgres.MigrationRunner) error { return mr.Up() }); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.NewDB(ctx, cfg.Database)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	validator.Register()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace)
	m.MustRegister(registry)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	readingRepo := postgres.NewReadingRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	commRepo := postgres.NewCommunicationRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	jwtSvc, err := auth.NewJWTService(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	})
	if err != nil {
		return err
	}
	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)

	// Services
	events := eventService.NewEventService(outboxRepo, logger.Component("events"))
	authSvc := authService.NewService(userRepo, jwtSvc, hasher, logger.Component("auth"))
	userSvc := userService.NewService(userRepo, hasher)
	patientSvc := patientService.NewService(patientRepo, readingRepo, events)
	readingSvc := readingService.NewService(
		readingRepo, patientRepo, userRepo, taskRepo, commRepo, events,
		readingService.Config{
			AutoFollowUp:  cfg.Workflow.AutoFollowUp,
			RecentContact: cfg.Workflow.RecentContact(),
		},
		m,
		logger.Component("readings"),
	)
	taskSvc := taskService.NewService(taskRepo, events)
	commSvc := communicationService.NewService(commRepo)
	analyticsSvc := analyticsService.NewService(commRepo, statsRepo)

	r := router.NewRouter(
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RateLimit:      cfg.RateLimit,
			CORS:           cfg.CORS,
		},
		logger.Component("http"),
		m,
		middleware.NewAuthMiddleware(jwtSvc),
		healthHandler.NewHandler(db, registry),
		authHandler.NewHandler(authSvc),
		userHandler.NewHandler(userSvc),
		patientHandler.NewHandler(patientSvc),
		readingHandler.NewHandler(readingSvc),
		taskHandler.NewHandler(taskSvc),
		communicationHandler.NewHandler(commSvc, analyticsSvc),
		dashboardHandler.NewHandler(analyticsSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return runMigrations(cfg, log, func(mr *postgres.MigrationRunner) error { return mr.Up() })
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return runMigrations(cfg, log, func(mr *postgres.MigrationRunner) error { return mr.Down(steps) })
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

func runMigrations(cfg *config.Config, log zerolog.Logger, apply func(*postgres.MigrationRunner) error) error {
	mr, err := postgres.NewMigrationRunner(cfg.Database.URL(), log)
	if err != nil {
		return err
	}
	defer mr.Close()
	return apply(mr)
}

// seedAdminCmd creates the first admin account. It is a no-op when the
// username is already taken.
func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an initial admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := userService.NewService(postgres.NewUserRepository(db), security.NewBcryptHasher(bcrypt.DefaultCost))
			user, err := svc.CreateUser(ctx, &model.CreateUserRequest{
				Username: username,
				Name:     name,
				Password: password,
				Role:     model.RoleAdmin,
			})
			if errors.IsKind(err, errors.KindConflict) {
				log.Info().Str("username", username).Msg("admin user already exists")
				return nil
			}
			if err != nil {
				return err
			}
			log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("admin user created")
			return nil
		},
	}
	cmd.Flags().String("username", "admin", "Admin username")
	cmd.Flags().String("name", "Administrator", "Admin display name")
	cmd.Flags().String("password", "", "Admin password (defaults to $ADMIN_PASSWORD)")
	return cmd
}
