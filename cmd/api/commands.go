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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/hr-requisitions/internal/auth"
	"github.com/justsurfingit/hr-requisitions/internal/config"
	"github.com/justsurfingit/hr-requisitions/internal/database"
	"github.com/justsurfingit/hr-requisitions/internal/handlers"
	"github.com/justsurfingit/hr-requisitions/internal/logging"
	"github.com/justsurfingit/hr-requisitions/internal/notify"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
	"github.com/justsurfingit/hr-requisitions/internal/seed"
	"github.com/justsurfingit/hr-requisitions/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return database.Migrate(db, logger)
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		file     string
		tokenTTL time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference roles, companies and bootstrap profiles",
		Long: `seed upserts the built-in roles, then applies --file when given.
With --token-ttl, a bearer token is printed for every seeded profile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := database.Migrate(db, logger); err != nil {
				return err
			}

			data, err := seed.Default()
			if err != nil {
				return err
			}
			if file != "" {
				extra, err := seed.LoadFile(file)
				if err != nil {
					return err
				}
				data.Roles = append(data.Roles, extra.Roles...)
				data.Companies = extra.Companies
				data.Profiles = extra.Profiles
			}

			store := repository.NewStore(db)
			result, err := seed.Apply(cmd.Context(), store, data, logger)
			if err != nil {
				return err
			}
			if tokenTTL <= 0 {
				return nil
			}
			tokens := auth.NewTokens(cfg.JWTSecret)
			for _, p := range result.Profiles {
				token, err := tokens.Issue(p.ID, tokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Email, token)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with roles, companies and profiles")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 0, "print a bearer token of this lifetime for each seeded profile")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

func runServe(parent context.Context) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	var sink notify.Sink = notify.LogSink{Logger: logger}
	var limiter handlers.Limiter
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		sink = notify.NewRedisSink(client, cfg.NotifyChannel)
		if cfg.RateLimitPerMinute > 0 {
			limiter = handlers.NewRedisLimiter(client, cfg.RateLimitPerMinute)
		}
	} else if cfg.RateLimitPerMinute > 0 {
		limiter = handlers.NewMemoryLimiter(cfg.RateLimitPerMinute)
	}
	dispatcher := notify.NewDispatcher(sink, logger, notify.DispatcherOptions{
		Workers:    cfg.NotifyWorkers,
		BufferSize: cfg.NotifyBufferSize,
	})
	defer dispatcher.Close()

	store := repository.NewStore(db)
	scope := services.NewScopeService(store)
	templates := services.NewTemplateService(store, scope, dispatcher, logger)
	requisitions := services.NewRequisitionService(store, scope, templates, dispatcher, logger)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:         logger,
		Tokens:         auth.NewTokens(cfg.JWTSecret),
		Profiles:       store.Profiles(),
		Requisitions:   requisitions,
		Templates:      templates,
		Scope:          scope,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
