package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"havenstore/pkg/banner"
	"havenstore/pkg/config"
	"havenstore/pkg/gateway"
	"havenstore/pkg/logger"
	"havenstore/pkg/security"
	"havenstore/pkg/shutdown"
	"havenstore/pkg/store"
)

// set via ldflags
var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	var (
		cfgPath = flag.String("config", "", "path to YAML config file")
		addr    = flag.String("addr", "", "listen address (overrides config)")
		quiet   = flag.Bool("quiet", false, "suppress the startup banner")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.Logging.Level)

	if cfg.Security.Secret == "" {
		logger.Warn("no_secret_configured", "hint", "history will be stored unencrypted; set HAVENSTORE_SECRET")
	} else {
		security.SetSecret(cfg.Security.Secret)
	}

	s, err := store.Open(cfg)
	if err != nil {
		shutdown.Fatal("store_open_failed", err, cfg.Storage.DBPath)
	}
	defer func() { _ = s.Close() }()

	gw := gateway.New(s, gateway.Options{
		RateLimiter:        gateway.NewLimiterPool(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst),
		Broadcaster:        gateway.NopBroadcaster{},
		RateExempt:         cfg.Security.RateLimit.Exempt,
		MaxAttachments:     cfg.Limits.MaxAttachments,
		MaxAttachmentBytes: cfg.Limits.MaxAttachmentBytes.Int64(),
	})

	listen := cfg.Addr()
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if !*quiet {
		banner.Print(cfg, version)
	}
	logger.Info("listening", "addr", listen, "backend", cfg.Storage.Backend, "encrypted", security.Enabled(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		logger.Error("server_exit", "err", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	timeout := cfg.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown_failed", "err", err)
	}
	logger.Info("stopped")
}
