package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/cache"
	"github.com/amaranthustech/jcal/gateway"
	"github.com/amaranthustech/jcal/log"
	"github.com/amaranthustech/jcal/lunisolar"
)

var logger = log.Logger()

func main() {
	var (
		httpPort         = flag.String("http-port", "8080", "HTTP server port")
		logLevel         = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		enableCache      = flag.Bool("enable-cache", true, "Enable Redis caching")
		redisAddr        = flag.String("redis-addr", "localhost:6379", "Redis server address")
		redisDB          = flag.Int("redis-db", 0, "Redis database number")
		cacheTTL         = flag.Duration("cache-ttl", 30*time.Minute, "Cache TTL duration")
		ephemerisName    = flag.String("ephemeris", "", "Ephemeris provider name (default: series; or the JCAL_EPHEMERIS env var)")
		ephemerisPath    = flag.String("ephemeris-path", "", "Explicit path to an ephemeris sample table; overrides --ephemeris")
		ephemerisDataDir = flag.String("ephemeris-data-dir", "./data/ephemeris", "Directory searched for <name>.json ephemeris tables")
	)
	flag.Parse()

	if env := os.Getenv("REDIS_ADDR"); env != "" {
		*redisAddr = env
	}
	if env := os.Getenv("REDIS_DB"); env != "" {
		if db, err := strconv.Atoi(env); err == nil {
			*redisDB = db
		}
	}
	if env := os.Getenv("CACHE_TTL"); env != "" {
		if ttl, err := time.ParseDuration(env); err == nil {
			*cacheTTL = ttl
		}
	}
	if env := os.Getenv("ENABLE_CACHE"); env != "" {
		*enableCache = env == "true" || env == "1"
	}

	logger.Info("Starting jcal HTTP Gateway",
		"http_port", *httpPort,
		"log_level", *logLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	var redisCache *cache.RedisCache
	if *enableCache {
		logger.Info("Initializing Redis cache", "addr", *redisAddr, "db", *redisDB, "ttl", *cacheTTL)

		redisPassword := os.Getenv("REDIS_PASSWORD")
		var err error
		redisCache, err = cache.NewRedisCache(*redisAddr, redisPassword, *redisDB, *cacheTTL)
		if err != nil {
			logger.Error("Failed to initialize Redis cache, continuing without cache", "error", err)
			redisCache = nil
		} else {
			logger.Info("Redis cache initialized successfully")
		}
	} else {
		logger.Info("Cache disabled")
	}

	registry := lunisolar.NewProviderRegistry(8, lunisolar.DefaultProviderFactory(*ephemerisDataDir))
	spec := lunisolar.ResolveEphemerisSpec(*ephemerisName, *ephemerisPath)
	resolved, err := registry.Resolve(spec)
	if err != nil {
		logger.Error("Failed to resolve ephemeris provider, falling back to series", "ephemeris", spec, "error", err)
		resolved = ephemeris.NewSeriesProvider()
	}
	logger.Info("Ephemeris provider resolved", "name", resolved.GetProviderName())

	provider := ephemeris.NewManager(resolved, ephemeris.NewSeriesProvider(), ephemeris.NewMemoryCache(256, time.Hour))

	var gatewayServer *gateway.GatewayServer
	if redisCache != nil {
		gatewayServer = gateway.NewGatewayServerWithCache(*httpPort, provider, registry, redisCache)
	} else {
		gatewayServer = gateway.NewGatewayServer(*httpPort, provider, registry)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gatewayServer.Start(ctx); err != nil {
			logger.Error("Gateway server error", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	endpoints := []string{
		fmt.Sprintf("http://localhost:%s/api/v1/health", *httpPort),
		fmt.Sprintf("http://localhost:%s/api/v1/lunisolar/day", *httpPort),
		fmt.Sprintf("http://localhost:%s/api/v1/lunisolar/range", *httpPort),
	}

	if redisCache != nil {
		endpoints = append(endpoints,
			fmt.Sprintf("http://localhost:%s/api/v1/cache/health", *httpPort),
			fmt.Sprintf("http://localhost:%s/api/v1/cache/stats", *httpPort),
		)
	}

	logger.Info("HTTP Gateway server started successfully",
		"address", fmt.Sprintf("http://localhost:%s", *httpPort),
		"cache_enabled", redisCache != nil,
		"endpoints", endpoints,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down gateway server")
	if err := gatewayServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error during gateway shutdown", "error", err)
	}

	if redisCache != nil {
		logger.Info("Closing Redis cache connection")
		if err := redisCache.Close(); err != nil {
			logger.Error("Error closing Redis cache", "error", err)
		}
	}

	if err := provider.Close(); err != nil {
		logger.Error("Error closing ephemeris provider", "error", err)
	}
	if err := registry.Close(); err != nil {
		logger.Error("Error closing ephemeris provider registry", "error", err)
	}

	wg.Wait()
	logger.Info("Gateway server shut down complete")
}
