package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/acolhida/acolhida/internal/config"
	"github.com/acolhida/acolhida/internal/domain/access"
	"github.com/acolhida/acolhida/internal/domain/intake"
	"github.com/acolhida/acolhida/internal/domain/journey"
	"github.com/acolhida/acolhida/internal/domain/professional"
	"github.com/acolhida/acolhida/internal/platform/auth"
	"github.com/acolhida/acolhida/internal/platform/cache"
	"github.com/acolhida/acolhida/internal/platform/db"
	"github.com/acolhida/acolhida/internal/platform/metrics"
	"github.com/acolhida/acolhida/internal/platform/middleware"
	"github.com/acolhida/acolhida/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "acolhida-server",
		Short: "Case management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

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

// migrationFiles returns the embedded migrations unless dir overrides them.
func migrationFiles(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func openMigrator(ctx context.Context, cmd *cobra.Command) (*db.Migrator, func(), string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", err
	}
	schema, _ := cmd.Flags().GetString("schema")
	if schema == "" {
		schema = cfg.DBSchema
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return nil, nil, "", err
	}
	return db.NewMigrator(pool, migrationFiles(dir), schema), pool.Close, schema, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.PersistentFlags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, schema, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, schema, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
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
	})

	return cmd
}

// services bundles the workflow services the HTTP layer exposes.
type services struct {
	access       *access.Service
	journey      *journey.Service
	intake       *intake.Service
	professional *professional.Service
}

// newServices wires the four workflows over one repository set. intake
// shares the journey service so an interview and its status change commit
// together.
func newServices(tx db.Transactor, settings access.Repository, patients journey.Repository,
	interviews intake.Repository, professionals professional.Repository, cfg *config.Config) services {
	accessSvc := access.NewService(settings, cfg.PolicyCacheTTL)
	journeySvc := journey.NewService(patients, tx)
	return services{
		access:       accessSvc,
		journey:      journeySvc,
		intake:       intake.NewService(interviews, tx, journeySvc),
		professional: professional.NewService(professionals, tx, accessSvc),
	}
}

func (s services) instrument(m *metrics.Metrics, logger zerolog.Logger) {
	s.access.SetMetrics(m)
	s.access.SetLogger(logger.With().Str("component", "access").Logger())
	s.journey.SetMetrics(m)
	s.journey.SetLogger(logger.With().Str("component", "journey").Logger())
	s.intake.SetMetrics(m)
	s.intake.SetLogger(logger.With().Str("component", "intake").Logger())
	s.professional.SetMetrics(m)
	s.professional.SetLogger(logger.With().Str("component", "professional").Logger())
}

// newServer builds the echo instance with middleware and routes. health may
// be nil, in which case /health/db is not registered.
func newServer(cfg *config.Config, logger zerolog.Logger, svc services, m *metrics.Metrics, health db.HealthSource) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if health != nil {
		e.GET("/health/db", db.HealthHandler(health))
	}
	e.GET("/metrics", m.Handler())

	apiV1 := e.Group("/api/v1")
	access.NewHandler(svc.access).RegisterRoutes(apiV1)
	journey.NewHandler(svc.journey).RegisterRoutes(apiV1)
	intake.NewHandler(svc.intake).RegisterRoutes(apiV1)
	professional.NewHandler(svc.professional).RegisterRoutes(apiV1)

	return e
}

// checkLinkColumn fails fast when professionals links users through a column
// that cannot hold a user id. Other probe failures, such as migrations not
// applied yet, are left to the first request, which retries the probe.
func checkLinkColumn(ctx context.Context, caps db.Capabilities, logger zerolog.Logger) error {
	col, err := caps.LinkColumnName(ctx)
	switch {
	case errors.Is(err, db.ErrUnsupportedLinkColumn):
		return err
	case err != nil:
		logger.Warn().Err(err).Msg("professional link column not resolved yet")
	default:
		logger.Info().Str("column", col).Msg("professional link column detected")
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger(nil)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Schema:   cfg.DBSchema,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	probe := db.NewSchemaProbe(pool, cfg.DBSchema)
	if err := checkLinkColumn(ctx, probe, logger); err != nil {
		logger.Fatal().Err(err).Msg("professionals table cannot be linked to users")
	}
	tx := db.NewTxRunner(pool, cfg.TxTimeout)
	svc := newServices(tx,
		access.NewRepository(pool),
		journey.NewRepository(pool, probe),
		intake.NewRepository(pool),
		professional.NewRepository(pool, probe),
		cfg,
	)

	rc, err := cache.New(ctx, cache.Options{URL: cfg.RedisURL})
	if err != nil {
		// The shared layer is optional; the process-local cache still works.
		logger.Warn().Err(err).Msg("redis unavailable, access settings cached per process only")
	}
	if rc != nil {
		defer rc.Close()
		svc.access.SetSharedCache(access.NewRedisCache(rc, access.DefaultRedisKey))
		logger.Info().Msg("access settings shared through redis")
	}

	m := metrics.New()
	svc.instrument(m, logger)

	e := newServer(cfg, logger, svc, m, db.NewPoolHealth(pool))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
