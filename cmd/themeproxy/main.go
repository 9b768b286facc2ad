package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hungpv1995/blog-frontkit/internal/blogapi"
	"github.com/hungpv1995/blog-frontkit/internal/cache"
	"github.com/hungpv1995/blog-frontkit/internal/config"
	"github.com/hungpv1995/blog-frontkit/internal/handlers"
	"github.com/hungpv1995/blog-frontkit/internal/logging"
	"github.com/hungpv1995/blog-frontkit/internal/theme"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		logger.Fatalw("Invalid upstream URL", "url", cfg.UpstreamURL, "error", err)
	}

	store, closeStore := initThemeStore(cfg, logger)
	defer closeStore()

	api, err := blogapi.New(cfg.UpstreamURL,
		blogapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		blogapi.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalw("Failed to create blog client", "error", err)
	}

	themes := handlers.NewThemeHandler(store, logger, cfg.SecureCookies)
	controller := theme.NewController(theme.WithLogger(logger))
	search := handlers.NewSearchHandler(api, cfg.HTTPTimeout, logger)
	proxy := handlers.NewProxyHandler(upstream, controller, themes.Preference, search, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(proxy, themes, search, cfg.SecureCookies),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorw("Server shutdown error", "error", err)
		}
	}()

	logger.Infow("Theme proxy starting", "port", cfg.Port, "upstream", upstream.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("Server failed", "error", err)
	}
}

// initThemeStore connects the Redis mirror of theme choices. Without Redis
// the proxy still works; the theme cookie alone carries the choice.
func initThemeStore(cfg *config.Config, logger *zap.SugaredLogger) (theme.Store, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: "",
		DB:       0,
	})
	rc := cache.NewRedisCache(client, cfg.ThemeTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		logger.Warnw("Redis unavailable, continuing without theme mirror", "addr", cfg.RedisAddr, "error", err)
		client.Close()
		return nil, func() {}
	}

	logger.Infow("Theme mirror connected", "addr", cfg.RedisAddr)
	return rc, func() { client.Close() }
}
