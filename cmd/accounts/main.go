package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/vidtube/internal/account"
	"github.com/Skotchmaster/vidtube/internal/config"
	"github.com/Skotchmaster/vidtube/internal/db"
	"github.com/Skotchmaster/vidtube/internal/es"
	"github.com/Skotchmaster/vidtube/internal/httpserver"
	"github.com/Skotchmaster/vidtube/internal/logging"
	"github.com/Skotchmaster/vidtube/internal/metrics"
	"github.com/Skotchmaster/vidtube/internal/mykafka"
	"github.com/Skotchmaster/vidtube/internal/ratelimit"
	"github.com/Skotchmaster/vidtube/internal/repo"
	"github.com/Skotchmaster/vidtube/internal/search"
	"github.com/Skotchmaster/vidtube/internal/session"
	"github.com/Skotchmaster/vidtube/internal/tokens"
	"github.com/Skotchmaster/vidtube/internal/upload"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		return err
	}
	store := repo.New(gdb)

	issuer, err := tokens.NewIssuer(tokens.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.ServiceName,
	})
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	sessionMetrics := metrics.NewSession(registry)

	sessions := &session.Manager{
		Store:          store,
		Issuer:         issuer,
		EventTopic:     cfg.KafkaTopic,
		Metrics:        sessionMetrics,
		StrictRotation: cfg.StrictRotation,
	}
	accounts := &account.Service{
		Store:      store,
		EventTopic: cfg.KafkaTopic,
	}

	ready := []httpserver.ReadyCheck{{Name: "postgres", Check: func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := mykafka.NewProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		sessions.Events = producer
		accounts.Events = producer
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var directory *search.Directory
	if cfg.ESURL != "" {
		client, err := es.NewClient(initCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			return err
		}
		directory = search.NewDirectory(client, cfg.ESIndex)
		accounts.Directory = directory
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter := ratelimit.New(rdb, ratelimit.Config{MaxAttempts: cfg.LoginMaxAttempts, Window: cfg.LoginWindow})
		sessions.Limiter = limiter
		ready = append(ready, httpserver.ReadyCheck{Name: "redis", Check: limiter.Ping})
	}

	staticDir := ""
	if cfg.S3Bucket != "" {
		accounts.Uploader, err = upload.NewS3Uploader(initCtx, upload.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
			Prefix:    "users",
		})
		if err != nil {
			return err
		}
	} else {
		staticDir = filepath.Join(cfg.UploadDir, "public")
		accounts.Uploader = &upload.LocalUploader{Dir: staticDir, PublicURL: "/static"}
		logger.Warn("s3_disabled", "reason", "S3_BUCKET not set, serving uploads from disk", "dir", staticDir)
	}

	authHTTP := &httpserver.AuthHTTP{Sessions: sessions, CookieSecure: cfg.CookieSecure}
	accountHTTP := &httpserver.AccountHTTP{Accounts: accounts, UploadDir: filepath.Join(cfg.UploadDir, "staging")}
	if directory != nil {
		accountHTTP.Search = directory
	}

	e := httpserver.New(&httpserver.Deps{
		Logger:         logger,
		AuthHandler:    authHTTP,
		AccountHandler: accountHTTP,
		Verifier:       issuer,
		Metrics:        metrics.Handler(registry),
		Ready:          ready,
		CSRF:           cfg.CSRFEnabled,
		StaticDir:      staticDir,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting_down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown", "error", err)
	}
	return nil
}
