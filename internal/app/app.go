// Package app wires configuration, storage and services into a running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/toolcatalog/toolcatalog/internal/ads"
	"github.com/toolcatalog/toolcatalog/internal/apikeys"
	"github.com/toolcatalog/toolcatalog/internal/config"
	"github.com/toolcatalog/toolcatalog/internal/db"
	apphttp "github.com/toolcatalog/toolcatalog/internal/http"
	"github.com/toolcatalog/toolcatalog/internal/http/api/admin"
	"github.com/toolcatalog/toolcatalog/internal/http/api/front"
	"github.com/toolcatalog/toolcatalog/internal/logging"
	"github.com/toolcatalog/toolcatalog/internal/rates"
	"github.com/toolcatalog/toolcatalog/internal/security"
	"github.com/toolcatalog/toolcatalog/internal/settings"
	"github.com/toolcatalog/toolcatalog/internal/usage"
	"gorm.io/gorm"
)

// Migrate loads configuration, opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := db.Open(conf.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// RunServer boots the HTTP server and background jobs and blocks until ctx ends.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, errLogging := logging.Setup(conf.Logging)
	if errLogging != nil {
		return errLogging
	}
	defer func() { _ = logCloser.Close() }()

	conn, err := db.Open(conf.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if conf.IsProduction() && db.IsSQLite(conn) {
		log.Warn("database: running production on SQLite; use PostgreSQL when serving from more than one instance")
	}

	sessions, err := security.NewSessionAuthority(security.SessionConfig{
		AdminPassword: conf.Admin.Password,
		Secret:        conf.Admin.SessionSecret,
		SecureCookie:  conf.IsProduction(),
	})
	if err != nil {
		return err
	}

	redisClient, err := openRedis(ctx, conf)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	snapshot := settings.NewSnapshot()
	if errRefresh := settings.Refresh(ctx, conn, snapshot); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: initial load failed, serving defaults")
	} else {
		log.WithField("updated_at", snapshot.UpdatedAt().Format(time.RFC3339)).Info("settings: snapshot loaded")
	}
	settings.NewWatcher(conn, snapshot, time.Duration(conf.SettingsRefreshSeconds)*time.Second).Start(ctx)

	registry := apikeys.NewRegistry(conn)
	adService := ads.NewService(conn)
	adBlock := settings.NewAdBlockService(conn, snapshot)
	gateway := rates.NewGateway(
		newRateCache(conf, conn, redisClient),
		registry,
		rates.NewExchangeRateHostClient(conf.Rates.BaseURL, time.Duration(conf.Rates.TimeoutSeconds)*time.Second),
	)

	if conf.Usage.RolloverEnabled {
		if errRollover := usage.NewRollover(registry, conf.Usage.ResetCron).Start(ctx); errRollover != nil {
			return errRollover
		}
	}

	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := apphttp.NewHandler(apphttp.RouterConfig{
		DB:    conn,
		Redis: redisClient,
		Admin: admin.Services{
			Sessions: sessions,
			Keys:     registry,
			Ads:      adService,
			AdBlock:  adBlock,
		},
		Front: front.Services{
			Rates:   gateway,
			Ads:     adService,
			AdBlock: adBlock,
		},
		AllowedOrigins: conf.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              conf.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s (env=%s config=%s)", conf.ListenAddr, conf.Env, configPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	log.Info("shutting down server")
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// openRedis connects to redis when the redis rate cache is selected.
func openRedis(ctx context.Context, conf *config.Config) (redis.UniversalClient, error) {
	if conf.Rates.CacheBackend != config.CacheBackendRedis {
		return nil, nil
	}
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", errPing)
	}
	log.Infof("rates: using redis cache at %s", opts.Addr)
	return client, nil
}

// newRateCache picks the rate cache backend.
func newRateCache(conf *config.Config, conn *gorm.DB, redisClient redis.UniversalClient) rates.Cache {
	if redisClient != nil {
		return rates.NewRedisCache(redisClient, conf.Redis.Prefix)
	}
	return rates.NewGormCache(conn)
}
