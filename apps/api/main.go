package main

import (
	"context"
	"crimespot/libs/mailer"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	statusPending  = "pending"
	statusVerified = "verified"
	statusRejected = "rejected"

	roleSuperAdmin = "super_admin"
	roleCityAdmin  = "city_admin"

	adminCookieName      = "crimespot_admin_session"
	adminSessionDuration = 8 * time.Hour

	recentIncidentsLimit = 3
	recentWindow         = 24 * time.Hour
	allCitiesMaxTotal    = 500
	cityMaxTotal         = 50

	reportDateLayout         = "2006-01-02 15:04:05"
	defaultAllCitiesLabel    = "India"
	requestIDHeader          = "X-Request-ID"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

var adminRoles = []string{roleSuperAdmin, roleCityAdmin}

type Config struct {
	Addr                   string
	Env                    string
	DatabaseURL            string
	PublicBaseURL          string
	AppSigningSecret       string
	AllCitiesLabel         string
	BootstrapAdminUsername string
	BootstrapAdminPassword string
	BootstrapAdminEmail    string
	ResendAPIKey           string
	MailerFromAddresses    map[string]string
}

type App struct {
	cfg *Config
	log *slog.Logger

	store     reportStore
	mailer    *mailer.Mailer
	metrics   *appMetrics
	templates *templateRenderer

	now func() time.Time
}

type Report struct {
	ID          int
	Type        string
	Description string
	Lat         *float64
	Lng         *float64
	City        string
	CreatedAt   time.Time
	Status      string
}

type ReportSubmission struct {
	Type        string
	Description string
	Lat         *float64
	Lng         *float64
	City        string
}

type CityStats struct {
	Total     int            `json:"total"`
	Last24    int            `json:"last24"`
	Safety    float64        `json:"safety"`
	Breakdown map[string]int `json:"breakdown"`
}

type RecentIncident struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type MapIncident struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

type StatusCounts struct {
	Total    int
	Verified int
	Pending  int
	Rejected int
}

type AdminSession struct {
	Username string `json:"username"`
	City     string `json:"city"`
	Role     string `json:"role"`
}

type AdminAccount struct {
	ID           int
	Username     string
	PasswordHash string
	City         string
	Role         string
	Email        *string
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		panic(err)
	}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
		logger.Info("mailer initialized", "provider", "resend")
	} else {
		mailProvider = mailer.NewLogProvider(logger)
		logger.Info("mailer initialized", "provider", "log")
	}

	registry := prometheus.NewRegistry()
	app := &App{
		cfg:       cfg,
		log:       logger,
		store:     newPGStore(db),
		mailer:    mailer.New(mailProvider, cfg.MailerFromAddresses[mailProvider.Name()]),
		metrics:   newAppMetrics(registry),
		templates: newTemplateRenderer(cfg.Env),
		now:       time.Now,
	}

	logger.Info(
		"runtime configuration",
		"env",
		cfg.Env,
		"addr",
		cfg.Addr,
		"all_cities_label",
		cfg.AllCitiesLabel,
	)

	if err := runMigrations(db, logger); err != nil {
		panic(err)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		logger.Info("migrate completed")
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "send-pending-digest" {
		if err := app.sendPendingDigest(ctx); err != nil {
			logger.Error("failed to send pending digest", "err", err)
			os.Exit(1)
		}
		logger.Info("send-pending-digest completed")
		return
	}

	if err := app.bootstrapAdmin(ctx); err != nil {
		panic(err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	app.registerRoutes(r, registry)

	app.log.Info("starting crimespot", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

func (a *App) registerRoutes(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.Use(a.loggingMiddleware())
	r.Use(gin.Recovery())
	r.Use(noStoreMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metricsHandler(gatherer))

	a.registerPublicRoutes(r)
	a.registerAdminRoutes(r)
}

func loadConfig() (*Config, error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
		user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
		password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
		sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		if dbname != "" && user != "" {
			databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
		}
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}

	secret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
	if len(secret) < 16 {
		return nil, fmt.Errorf("APP_SIGNING_SECRET must be at least 16 characters")
	}

	publicBase := strings.TrimRight(valueOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Addr:                   valueOrDefault("GIN_ADDR", ":8080"),
		Env:                    valueOrDefault("APP_ENV", "development"),
		DatabaseURL:            databaseURL,
		PublicBaseURL:          publicBase,
		AppSigningSecret:       secret,
		AllCitiesLabel:         valueOrDefault("ALL_CITIES_LABEL", defaultAllCitiesLabel),
		BootstrapAdminUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
		BootstrapAdminPassword: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")),
		BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		ResendAPIKey:           strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddresses: map[string]string{
			"resend": valueOrDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@mail.crimespot.in"),
			"log":    valueOrDefault("MAILER_FROM_ADDRESS_LOG", "noreply@crimespot.local"),
		},
	}

	if (cfg.BootstrapAdminUsername == "") != (cfg.BootstrapAdminPassword == "") {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func runMigrations(db *sql.DB, logger *slog.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("open migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logMigrationVersion(logger, m)
	return nil
}

type migrationVersioner interface {
	Version() (uint, bool, error)
}

func logMigrationVersion(logger *slog.Logger, m migrationVersioner) {
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("migrations applied", "version", "none")
			return
		}
		logger.Warn("read migration version failed", "error", err)
		return
	}
	logger.Info("migrations applied", "version", version, "dirty", dirty)
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	username := a.cfg.BootstrapAdminUsername
	password := a.cfg.BootstrapAdminPassword
	if username == "" || password == "" {
		a.log.Info("bootstrap admin not configured")
		return nil
	}

	hash, err := hashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var email *string
	if a.cfg.BootstrapAdminEmail != "" {
		email = &a.cfg.BootstrapAdminEmail
	}

	if err := a.store.UpsertAdmin(ctx, AdminAccount{
		Username:     username,
		PasswordHash: hash,
		City:         a.cfg.AllCitiesLabel,
		Role:         roleSuperAdmin,
		Email:        email,
	}); err != nil {
		return err
	}

	a.log.Info("bootstrap admin ensured", "username", username, "role", roleSuperAdmin)
	return nil
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		a.metrics.observeRequest(c.Request.Method, route, c.Writer.Status())
		a.log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func noStoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now().UTC()
	}
	return a.now().UTC()
}

func formatReportDate(t time.Time) string {
	return t.UTC().Format(reportDateLayout)
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
