// Command api serves the campus fest registration HTTP API.
//
// @title Campus Fest API
// @version 1.0
// @description Event catalog, registration, merchandise inventory, teams and attendance for a campus fest.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	_ "campusfest/docs"

	"campusfest/config"
	"campusfest/internal/adapters/auth"
	"campusfest/internal/adapters/email"
	"campusfest/internal/adapters/queue"
	"campusfest/internal/adapters/tracing"
	httpdelivery "campusfest/internal/delivery/http"
	"campusfest/internal/delivery/http/controllers"
	"campusfest/internal/domain"
	"campusfest/internal/repository/memory"
	"campusfest/internal/repository/postgres"
	"campusfest/internal/services"
)

// repositories is the storage surface the services need, backed by either driver.
type repositories struct {
	events        domain.EventRepository
	registrations domain.RegistrationRepository
	teams         domain.TeamRepository
	users         domain.UserRepository
	roles         domain.RoleRepository
	inventory     domain.InventoryStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "campusfest-api", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	repos, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := openNotifier(cfg, repos.users, logger)
	if err != nil {
		return err
	}

	jwt := auth.NewJWT(cfg.JWTSecret)
	tickets := services.NewTicketIssuer(repos.registrations, nil)
	registrations := services.NewRegistrationService(repos.registrations, repos.events, cfg.ContextTimeout, cfg.AttendanceRequireConfirmed)

	handler := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth: controllers.NewAuthController(logger,
			services.NewAuthService(repos.users, repos.roles, auth.NewBcryptHasher(bcrypt.DefaultCost), jwt, cfg.JWTExpiry)),
		Events: controllers.NewEventController(logger, services.NewCatalogService(repos.events, cfg.ContextTimeout)),
		Registration: controllers.NewRegistrationController(logger,
			services.NewReservationService(repos.inventory, tickets, notifier, cfg.ContextTimeout),
			services.NewApprovalService(repos.registrations, repos.inventory, tickets, notifier, cfg.ContextTimeout),
			registrations),
		Attendance: controllers.NewAttendanceController(logger, registrations),
		Teams: controllers.NewTeamController(logger,
			services.NewTeamService(repos.inventory, repos.teams, tickets, nil, notifier, cfg.ContextTimeout)),
	}, jwt, logger, cfg.AllowedOrigins())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "storage", cfg.StorageDriver, "notify", cfg.NotifyDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	// In-flight notifications drain after the last request has finished.
	if err := closeNotifier(shutdownCtx); err != nil {
		logger.Warn("notifier shutdown", "err", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, func(), error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			events:        store.Events(),
			registrations: store.Registrations(),
			teams:         store.Teams(),
			users:         store.Users(),
			roles:         store.Roles(),
			inventory:     store.Inventory(),
		}, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrated")
	}
	return &repositories{
		events:        postgres.NewEventRepository(db),
		registrations: postgres.NewRegistrationRepository(db),
		teams:         postgres.NewTeamRepository(db),
		users:         postgres.NewUserRepository(db),
		roles:         postgres.NewRoleRepository(db),
		inventory:     postgres.NewInventoryStore(db),
	}, closeDB(db, logger), nil
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "err", err)
		}
	}
}

// openNotifier returns the publisher the services write to and a drain function for shutdown.
func openNotifier(cfg *config.Config, users domain.UserRepository, logger *slog.Logger) (domain.NotificationPublisher, func(context.Context) error, error) {
	if cfg.NotifyDriver == "rabbitmq" {
		pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyBuffer, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect notification queue: %w", err)
		}
		return pub, pub.Close, nil
	}

	emailSvc, err := newEmailService(cfg, users, logger)
	if err != nil {
		return nil, nil, err
	}
	dispatcher := services.NewDispatcher(emailSvc, logger, cfg.NotifyWorkers, cfg.NotifyBuffer)
	dispatcher.Start()
	return dispatcher, dispatcher.Close, nil
}

func newEmailService(cfg *config.Config, users domain.UserRepository, logger *slog.Logger) (domain.EmailService, error) {
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	return services.NewEmailService(users, mailer, renderer, logger), nil
}
