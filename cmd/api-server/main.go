// Command api-server runs the kaimaku HTTP API: opening search, playback
// lookup, accounts and ratings.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"kaimaku/database"
	"kaimaku/internal/catalog"
	"kaimaku/internal/config"
	"kaimaku/internal/cooldown"
	"kaimaku/internal/metrics"
	"kaimaku/internal/microservices/http-api/handler"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/repository"
	"kaimaku/internal/microservices/http-api/service"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 15 * time.Minute
	sweepInterval   = time.Minute
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)
	must(log, cfg.Validate(), "validate configuration")

	log.Info("configuration_loaded",
		slog.String("environment", cfg.GoEnv),
		slog.Int("port", cfg.HTTPPort),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	must(log, database.RunMigrations(cfg.DatabaseURL, log), "run migrations")
	db, err := database.OpenGorm(cfg, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		if cerr := database.Close(db); cerr != nil {
			log.Error("postgres_close_failed", slog.Any("error", cerr))
		}
	}()

	// Redis is optional; without it search results are not cached.
	var cache catalog.ResultCache
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis_unavailable", slog.Any("error", err))
		} else {
			defer rdb.Close()
			cache = catalog.NewRedisCache(rdb)
			log.Info("redis_connected")
		}
	}

	// Catalog
	client := catalog.NewClient(cfg.AnimeThemesAPIURL)
	searcher := catalog.NewSearcher(client, cache, catalog.SearcherConfig{
		PageSize: cfg.SearchPageSize,
		MaxPages: cfg.SearchMaxPages,
		CacheTTL: cfg.SearchCacheTTL,
		Timeout:  cfg.SearchTimeout,
	}, log)
	featured := catalog.NewFeatured(client, cfg.AnimeThemesMediaURL, log)

	// Domain wiring
	userRepo := repository.NewUserRepository(db, cfg.DBAcquireTimeout)
	ratingRepo := repository.NewRatingRepository(db, cfg.DBAcquireTimeout)
	sessionRepo := repository.NewSessionRepository(db, cfg.DBAcquireTimeout)

	ratingGate := cooldown.New(cfg.RatingCooldown)
	searchGate := cooldown.New(cfg.SearchCooldown)

	authService := service.NewAuthService(userRepo, cfg.CaptchaMaxAge, log)
	sessionService := service.NewSessionService(sessionRepo, cfg.SessionSecret, cfg.SessionTTL, log)
	ratingService := service.NewRatingService(ratingRepo, ratingGate, log)
	searchService := service.NewSearchService(searcher, featured, client, ratingService, cfg.AnimeThemesMediaURL, log)
	discovery := catalog.NewDiscovery(searcher, cfg.AnimeThemesMediaURL, log)
	discoveryService := service.NewDiscoveryService(discovery, ratingService, cfg.AnimeThemesMediaURL, log)

	go service.RunPurgeLoop(ctx, sessionService, purgeInterval, log)
	go sweepGates(ctx, ratingGate, searchGate)

	router := newRouter(cfg, log, db, routerDeps{
		auth:       handler.NewAuthHandler(authService, sessionService, handler.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.IsProduction()}),
		ratings:    handler.NewRatingHandler(ratingService),
		search:     handler.NewSearchHandler(searchService),
		discovery:  handler.NewDiscoveryHandler(discoveryService),
		sessions:   sessionService,
		searchGate: searchGate,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server_listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server_stopped")
}

type routerDeps struct {
	auth       *handler.AuthHandler
	ratings    *handler.RatingHandler
	search     *handler.SearchHandler
	discovery  *handler.DiscoveryHandler
	sessions   service.SessionService
	searchGate *cooldown.Gate
}

func newRouter(cfg *config.Config, log *slog.Logger, db *gorm.DB, deps routerDeps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins, cfg.IsProduction()))
	if cfg.PrometheusEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.Register(reg)
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	r.GET("/check-conn", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
	})

	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(deps.sessions, cfg.SessionCookie, log))
	deps.auth.RegisterRoutes(api)
	deps.ratings.RegisterRoutes(api)
	searchGate := middleware.Cooldown(deps.searchGate, "search")
	deps.search.RegisterRoutes(api, searchGate)
	deps.discovery.RegisterRoutes(api, searchGate)
	return r
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func sweepGates(ctx context.Context, gates ...*cooldown.Gate) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, g := range gates {
				g.Sweep(now)
			}
		}
	}
}

// must logs a startup failure and exits. Only used during wiring.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure", slog.String("step", step), slog.Any("error", err))
		os.Exit(1)
	}
}
