package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/cache"
	"github.com/amaranthustech/jcal/log"
	"github.com/amaranthustech/jcal/lunisolar"
	"github.com/rs/cors"
)

var logger = log.Logger()

// GatewayServer is the HTTP gateway in front of the lunisolar core. Unlike
// the donor's gRPC-backed gateway, this one calls the core package
// in-process: this module's retrieval pack carries no generated protobuf
// client/server pair for the lunisolar domain (see DESIGN.md).
type GatewayServer struct {
	httpPort string
	provider ephemeris.Provider
	registry *lunisolar.ProviderRegistry

	resolvedMu sync.Mutex
	resolved   map[string]ephemeris.Provider

	cfg    lunisolar.Config
	server *http.Server
	cache  *cache.RedisCache
}

// NewGatewayServer creates a new HTTP gateway server backed by the given
// default provider. registry, if non-nil, lets callers pick an alternate
// ephemeris by name via the "ephemeris" query parameter on /day and
// /range; a nil registry means only the default provider is ever used.
func NewGatewayServer(httpPort string, provider ephemeris.Provider, registry *lunisolar.ProviderRegistry) *GatewayServer {
	return &GatewayServer{
		httpPort: httpPort,
		provider: provider,
		registry: registry,
		resolved: make(map[string]ephemeris.Provider),
		cfg:      lunisolar.DefaultConfig(),
	}
}

// NewGatewayServerWithCache creates a new HTTP gateway server with a Redis
// response cache.
func NewGatewayServerWithCache(httpPort string, provider ephemeris.Provider, registry *lunisolar.ProviderRegistry, redisCache *cache.RedisCache) *GatewayServer {
	g := NewGatewayServer(httpPort, provider, registry)
	g.cache = redisCache
	return g
}

// providerFor resolves the "ephemeris" query parameter against the
// registry, caching the resulting Manager by name for the gateway's
// lifetime. An empty name returns the gateway's default provider.
func (g *GatewayServer) providerFor(name string) (ephemeris.Provider, error) {
	if name == "" || g.registry == nil {
		return g.provider, nil
	}

	g.resolvedMu.Lock()
	defer g.resolvedMu.Unlock()

	if p, ok := g.resolved[name]; ok {
		return p, nil
	}

	primary, err := g.registry.Resolve(lunisolar.ProviderSpec{Name: name})
	if err != nil {
		return nil, err
	}
	mgr := ephemeris.NewManager(primary, ephemeris.NewSeriesProvider(), ephemeris.NewMemoryCache(100, time.Hour))
	g.resolved[name] = mgr
	return mgr, nil
}

// Start starts the HTTP gateway server.
func (g *GatewayServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/lunisolar/day", g.handleDay())
	mux.HandleFunc("/api/v1/lunisolar/range", g.handleRange())

	if g.cache != nil {
		mux.HandleFunc("/api/v1/cache/health", g.handleCacheHealth())
		mux.HandleFunc("/api/v1/cache/stats", g.handleCacheStats())
	}

	handler := loggingMiddleware(mux)
	handler = addHealthCheck(handler)

	allowedOrigins := getCORSOrigins()
	logger.Info("CORS configuration", "allowed_origins", allowedOrigins)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"X-Request-Id",
			"X-Response-Time",
		},
		AllowCredentials: false,
		MaxAge:           300,
	})

	handler = c.Handler(handler)

	g.server = &http.Server{
		Addr:              ":" + g.httpPort,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("HTTP Gateway server starting", "port", g.httpPort)

	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP gateway server.
func (g *GatewayServer) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	logger.Info("Shutting down HTTP Gateway server")
	return g.server.Shutdown(ctx)
}

// handleDay handles GET /api/v1/lunisolar/day?date=YYYY-MM-DD&tz=...&lat=...&lon=...
func (g *GatewayServer) handleDay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		date := query.Get("date")
		if date == "" {
			writeErrorResponse(w, r, http.StatusBadRequest, "MISSING_PARAMETER", "missing required parameter: date", nil)
			return
		}

		tz := query.Get("tz")
		if tz == "" {
			tz = "Asia/Tokyo"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_TIMEZONE", "unknown timezone identifier", map[string]interface{}{"tz": tz})
			return
		}

		dateJST, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_DATE", "date must be in YYYY-MM-DD format", map[string]interface{}{"date": date})
			return
		}

		lat, lon, errResp := parseLatLon(query)
		if errResp != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, errResp.code, errResp.message, nil)
			return
		}

		provider, err := g.providerFor(query.Get("ephemeris"))
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "UNKNOWN_EPHEMERIS", err.Error(), map[string]interface{}{"ephemeris": query.Get("ephemeris")})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		cacheKey := ""
		if g.cache != nil {
			cacheKey = g.cache.GenerateCacheKey(date, tz, provider.GetProviderName(), configHash(g.cfg))
			if cached, err := g.cache.Get(ctx, cacheKey); err == nil && cached != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				writeJSON(w, cached)
				return
			}
		}

		result, err := lunisolar.DayOf(ctx, provider, dateJST, lat, lon, tz, g.cfg)
		if err != nil {
			writeCoreError(w, r, err)
			return
		}

		if g.cache != nil {
			cacheData := dayResultToCache(result)
			if err := g.cache.Set(ctx, cacheKey, cacheData); err != nil {
				logger.Error("cache set error", "error", err, "key", cacheKey)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "MISS")
		writeJSON(w, result)
	}
}

// handleRange handles GET /api/v1/lunisolar/range?start=...&end=...&tz=...&lat=...&lon=...&limit_days=...
func (g *GatewayServer) handleRange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		start := query.Get("start")
		end := query.Get("end")
		if start == "" || end == "" {
			writeErrorResponse(w, r, http.StatusBadRequest, "MISSING_PARAMETER", "missing required parameter: start/end", nil)
			return
		}

		tz := query.Get("tz")
		if tz == "" {
			tz = "Asia/Tokyo"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_TIMEZONE", "unknown timezone identifier", map[string]interface{}{"tz": tz})
			return
		}

		startJST, err := time.ParseInLocation("2006-01-02", start, loc)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_DATE", "start must be in YYYY-MM-DD format", nil)
			return
		}
		endJST, err := time.ParseInLocation("2006-01-02", end, loc)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_DATE", "end must be in YYYY-MM-DD format", nil)
			return
		}

		lat, lon, errResp := parseLatLon(query)
		if errResp != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, errResp.code, errResp.message, nil)
			return
		}

		limitDays := 0
		if s := query.Get("limit_days"); s != "" {
			limitDays, _ = strconv.Atoi(s)
		}

		provider, err := g.providerFor(query.Get("ephemeris"))
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, "UNKNOWN_EPHEMERIS", err.Error(), map[string]interface{}{"ephemeris": query.Get("ephemeris")})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := lunisolar.RangeOf(ctx, provider, startJST, endJST, lat, lon, tz, limitDays, g.cfg)
		if err != nil {
			writeCoreError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, result)
	}
}

type paramError struct {
	code    string
	message string
}

func parseLatLon(query map[string][]string) (lat, lon float64, errResp *paramError) {
	latStr := firstOr(query["lat"], "35.681236")
	lonStr := firstOr(query["lon"], "139.767125")

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, &paramError{"INVALID_PARAMETER", "invalid lat format"}
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, &paramError{"INVALID_PARAMETER", "invalid lon format"}
	}
	return lat, lon, nil
}

func firstOr(vals []string, fallback string) string {
	if len(vals) == 0 || vals[0] == "" {
		return fallback
	}
	return vals[0]
}

func configHash(cfg lunisolar.Config) string {
	return fmt.Sprintf("%s-%d", cfg.MonthNamingMode, cfg.AnchorMonthNo)
}

func dayResultToCache(r *lunisolar.DayResult) *cache.LunarDayCacheData {
	events := make([]cache.LunarEvent, 0, len(r.Sekki.Events))
	for _, e := range r.Sekki.Events {
		events = append(events, cache.LunarEvent{
			Name:       "sekki",
			InstantUTC: e.InstantUTC.Format(time.RFC3339),
			EventType:  "sekki",
		})
	}

	data := &cache.LunarDayCacheData{
		Date:       r.Date,
		TZ:         r.TZ,
		Year:       r.Lunisolar.Year,
		Month:      r.Lunisolar.Month,
		Day:        r.Lunisolar.Day,
		IsLeap:     r.Lunisolar.IsLeap,
		MonthLabel: r.Lunisolar.MonthLabel,
		DayLabel:   r.Lunisolar.DayLabel,
		MonthName:  r.Lunisolar.MonthName,
		Rokuyo:     r.Rokuyo,
		Events:     events,
	}
	if r.Astronomy.Sunrise != nil {
		data.SunriseUTC = r.Astronomy.Sunrise.Format(time.RFC3339)
	}
	if r.Astronomy.Sunset != nil {
		data.SunsetUTC = r.Astronomy.Sunset.Format(time.RFC3339)
	}
	return data
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// loggingMiddleware adds request logging.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-Id", requestID)

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		w.Header().Set("X-Response-Time", duration.String())

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", wrapper.statusCode,
			"duration", duration,
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
	})
}

// addHealthCheck adds a health check endpoint.
func addHealthCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/health" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s","service":"jcal-gateway","version":"1.0.0"}`, time.Now().UTC().Format(time.RFC3339))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getCORSOrigins returns the list of allowed CORS origins from environment
// configuration.
func getCORSOrigins() []string {
	defaultOrigins := []string{
		"http://localhost:5173",
		"http://localhost:3000",
	}

	corsOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOriginsEnv == "" {
		return defaultOrigins
	}

	envOrigins := strings.Split(corsOriginsEnv, ",")
	origins := make([]string, 0, len(envOrigins))
	for _, origin := range envOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		logger.Warn("no valid CORS origins found in CORS_ALLOWED_ORIGINS, using defaults")
		return defaultOrigins
	}
	return origins
}

// handleCacheHealth handles cache health check requests.
func (g *GatewayServer) handleCacheHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if g.cache == nil {
			writeErrorResponse(w, r, http.StatusServiceUnavailable, "CACHE_DISABLED", "cache is not enabled", nil)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := g.cache.HealthCheck(ctx); err != nil {
			writeErrorResponse(w, r, http.StatusServiceUnavailable, "CACHE_UNHEALTHY", "cache health check failed", map[string]interface{}{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s","service":"redis-cache"}`, time.Now().UTC().Format(time.RFC3339))
	}
}

// handleCacheStats handles cache statistics requests.
func (g *GatewayServer) handleCacheStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if g.cache == nil {
			writeErrorResponse(w, r, http.StatusServiceUnavailable, "CACHE_DISABLED", "cache is not enabled", nil)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		stats, err := g.cache.GetStats(ctx)
		if err != nil {
			writeErrorResponse(w, r, http.StatusInternalServerError, "STATS_ERROR", "failed to get cache statistics", map[string]interface{}{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, stats)
	}
}
