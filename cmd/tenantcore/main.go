package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantcore/internal/auth"
	"github.com/dropDatabas3/tenantcore/internal/cache"
	"github.com/dropDatabas3/tenantcore/internal/config"
	"github.com/dropDatabas3/tenantcore/internal/email"
	httpx "github.com/dropDatabas3/tenantcore/internal/http"
	"github.com/dropDatabas3/tenantcore/internal/metrics"
	"github.com/dropDatabas3/tenantcore/internal/observability/logger"
	"github.com/dropDatabas3/tenantcore/internal/rbac"
	"github.com/dropDatabas3/tenantcore/internal/secrets"
	"github.com/dropDatabas3/tenantcore/internal/security/password"
	"github.com/dropDatabas3/tenantcore/internal/session"
	"github.com/dropDatabas3/tenantcore/internal/store/pg"
	"github.com/dropDatabas3/tenantcore/internal/token"
)

func main() {
	// .env es opcional; las vars reales del entorno siempre ganan.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "tenantcore",
		Short: "Core de autenticación y membresías multi-tenant",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path al config YAML (opcional)")

	root.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "tenantcore"})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("main")

	store, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
		MinConns:        int32(cfg.Storage.Postgres.MinConns),
		ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
	})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer store.Close()

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cacheClient.Close()

	codec := token.NewCodec(cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretName, secrets.EnvSource{})
	hasher := password.NewHasher(password.Default, int64(cfg.Auth.MaxConcurrentHashes))
	manager := session.NewManager(store.Sessions(), codec, hasher,
		config.Duration(cfg.JWT.AccessTTL), config.Duration(cfg.JWT.RefreshTTL))

	var mailer email.Sender
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		})
	} else {
		log.Warn("smtp sin configurar, alertas de lockout deshabilitadas")
	}

	throttleWindow := config.Duration(cfg.Auth.Throttle.Window)
	authSvc := auth.NewService(
		store.Identities(), manager, codec, hasher,
		auth.NewThrottle(cacheClient, cfg.Auth.Throttle.MaxAttempts, throttleWindow),
		auth.NewRevoker(cacheClient),
		mailer,
	)
	rbacSvc := rbac.NewService(store.Memberships(), cacheClient, config.Duration(cfg.Auth.RoleCacheTTL))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	api := &httpx.API{
		Auth: authSvc,
		RBAC: rbacSvc,
		Cookies: httpx.CookieConfig{
			AccessName:  cfg.Auth.Cookie.AccessName,
			RefreshName: cfg.Auth.Cookie.RefreshName,
			Domain:      cfg.Auth.Cookie.Domain,
			SameSite:    cfg.Auth.Cookie.SameSite,
			Secure:      cfg.Auth.Cookie.Secure,
		},
	}

	readyz := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := store.Pool().Ping(rctx); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "postgres no responde", 1503)
			return
		}
		if err := cacheClient.Ping(rctx); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "cache no responde", 1503)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router := httpx.NewRouter(api, readyz, promhttp.Handler())

	// Barrido periódico de sesiones vencidas: el rechazo no depende de esto
	// (Rotate ya valida expires_at), es solo higiene de la tabla.
	go sweepSessions(ctx, store, config.Duration(cfg.Auth.SessionSweepEvery))

	srv := httpx.NewServer(cfg.Server.Addr, router)
	return srv.Start(ctx, config.Duration(cfg.Server.ShutdownGrace))
}

func sweepSessions(ctx context.Context, store *pg.Store, every time.Duration) {
	log := logger.Named("session-sweep")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.Sessions().DeleteExpired(ctx)
			if err != nil {
				log.Warn("sweep failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", logger.Int("count", n))
			}
		}
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas de PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "tenantcore"})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{})
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer store.Close()

			n, err := store.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.L().Info("migrations applied", logger.Int("count", n))
			return nil
		},
	}
}
