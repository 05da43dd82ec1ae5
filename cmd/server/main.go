// Command server runs the portfolio API: the Spotify dashboard endpoints
// behind the OAuth proxy and the cached weather endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"portfolio/pkg/cache"
	"portfolio/pkg/config"
	"portfolio/pkg/handler"
	"portfolio/pkg/logger"
	"portfolio/pkg/oauth"
	"portfolio/pkg/proxy"
	"portfolio/pkg/ratelimit"
	"portfolio/pkg/session"

	"github.com/appleboy/graceful"
	sloggin "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
)

const spotifyAPIBaseURL = "https://api.spotify.com/v1"

func main() {
	var addr string
	var logLevel string
	var cacheBackend string
	var redisAddr string
	var redisPassword string
	var redisDB int
	flag.StringVar(&addr, "addr", "", "address to listen on (overrides ADDR)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR). Defaults to DEBUG in development, INFO in production")
	flag.StringVar(&cacheBackend, "cache", "", "Cache backend: memory or redis (overrides CACHE_BACKEND)")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis address (only used when cache=redis)")
	flag.StringVar(&redisPassword, "redis-password", "", "Redis password (only used when cache=redis)")
	flag.IntVar(&redisDB, "redis-db", 0, "Redis database (only used when cache=redis)")
	flag.Parse()

	cfg := config.Load()
	if addr != "" {
		cfg.Addr = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cacheBackend != "" {
		cfg.CacheBackend = cacheBackend
	}
	if redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB != 0 {
		cfg.RedisDB = redisDB
	}

	// Initialize logger with the specified log level
	logger.NewWithLevel(cfg.LogLevel)

	spotifyCreds := oauth.SpotifyCredentialsFromEnv()
	if !spotifyCreds.Configured() {
		slog.Warn("Spotify client credentials not configured; the dashboard will report unconfigured")
	}

	// Initialize cache using factory pattern
	cacheConfig := cache.Config{
		Type: cache.ParseBackendType(cfg.CacheBackend),
		Redis: cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	}
	cacheStore, err := cache.NewStore(cacheConfig)
	if err != nil {
		slog.Error("Failed to create cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	switch cacheConfig.Type {
	case cache.BackendMemory:
		slog.Info("Using in-memory cache")
	case cache.BackendRedis:
		slog.Info("Using Redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}

	oauthClient := oauth.NewClient(spotifyCreds)
	apiProxy := proxy.New(oauthClient, spotifyAPIBaseURL)
	sessions := session.NewMemoryStore(24 * time.Hour)
	limiter := ratelimit.New()

	spotify := handler.NewSpotify(oauthClient, apiProxy)
	weather := handler.NewWeather(cacheStore)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sloggin.SetLogger())
	router.Use(handler.CORSMiddleware())
	router.Use(handler.SessionMiddleware(sessions))

	spotify.Register(router.Group("/projects/spotify"), limiter)
	weather.Register(router.Group("/projects/weather"), limiter)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second, // 10 seconds
		WriteTimeout: 10 * time.Second, // 10 seconds
		IdleTimeout:  60 * time.Second, // 60 seconds
	}

	m := graceful.NewManager()
	m.AddRunningJob(func(ctx context.Context) error {
		slog.Info("HTTP server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	m.AddShutdownJob(func() error {
		slog.Info("Shutdown signal received, shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		if redisStore, ok := cacheStore.(*cache.RedisStore); ok {
			redisStore.Close()
		}
		slog.Info("Server shutdown gracefully")
		return nil
	})

	<-m.Done()
}
