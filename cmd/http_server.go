package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/audit"
	auditstore "github.com/frahmantamala/clinical-records/internal/audit/store"
	"github.com/frahmantamala/clinical-records/internal/auth"
	authstore "github.com/frahmantamala/clinical-records/internal/auth/store"
	"github.com/frahmantamala/clinical-records/internal/crypto"
	"github.com/frahmantamala/clinical-records/internal/metrics"
	"github.com/frahmantamala/clinical-records/internal/rbac"
	"github.com/frahmantamala/clinical-records/internal/records"
	recordstore "github.com/frahmantamala/clinical-records/internal/records/store"
	"github.com/frahmantamala/clinical-records/internal/transport/rest"
	"github.com/frahmantamala/clinical-records/pkg/logger"
)

// session tokens outlive the idle timeout; the server-side session store
// is the authority on expiry, the token is just the transport envelope.
const sessionTokenTTL = 24 * time.Hour

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, gormDB, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	key, err := crypto.LoadOrGenerateKey(cfg.Security.KeyFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}
	cipher, err := crypto.NewService(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	table, err := permissionTable(cfg.Security.Permissions)
	if err != nil {
		return nil, fmt.Errorf("invalid permission overrides: %w", err)
	}

	auditService := audit.NewService(auditstore.NewAuditRepository(gormDB), table, log)

	sessions := auth.NewSessionStore(cfg.Security.IdleTimeout())
	tokens := auth.NewSessionTokenCodec(cfg.Security.SessionSecret, sessionTokenTTL)
	authService := auth.NewService(authstore.NewUserRepository(gormDB), sessions, tokens, auditService, table, log, cfg.Security.Cost())

	recordService := records.NewService(recordstore.NewRecordRepository(gormDB), cipher, auditService, table, log)

	var metricsHandler http.Handler
	if cfg.Observability.Metrics.Enabled {
		m := metrics.New()
		auditService.AddHook(m.Observe)
		metricsHandler = m.Handler()
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB,
		auth.NewHandler(authService),
		records.NewHandler(recordService),
		audit.NewHandler(auditService),
		metricsHandler, log)

	return &Dependencies{
		Config: cfg,
		Logger: log,
		DB:     db,
		Router: router,
	}, nil
}

func permissionTable(overrides map[string][]string) (rbac.Table, error) {
	if len(overrides) == 0 {
		return rbac.Default(), nil
	}
	return rbac.FromOverrides(overrides)
}

// openDatabase connects via sqlx and layers gorm over the same pool so
// both see one connection state. SQLite is the default; a postgres DSN
// switches drivers for shared-site installs.
func openDatabase(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	driver := "sqlite3"
	if cfg.IsPostgres() {
		driver = "pgx"
	}

	db, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		dialector = postgres.New(postgres.Config{Conn: db.DB})
	} else {
		dialector = &sqlite.Dialector{Conn: db.DB}
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return db, gormDB, nil
}
