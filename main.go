package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inksign/inksign/backend/go-services/handlers"
	"github.com/inksign/inksign/backend/go-services/internal/config"
	"github.com/inksign/inksign/backend/go-services/internal/document/handler"
	"github.com/inksign/inksign/backend/go-services/internal/document/service"
	"github.com/inksign/inksign/backend/go-services/internal/oidc"
	"github.com/inksign/inksign/backend/go-services/internal/seed"
	"github.com/inksign/inksign/backend/go-services/internal/sessions"
	"github.com/inksign/inksign/backend/go-services/internal/storage"
	"github.com/inksign/inksign/backend/go-services/internal/tokens"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/logger"
	"github.com/inksign/inksign/backend/go-services/pkg/metrics"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: storage=%s keycloak=%v redis=%v jwt_secret_set=%v",
		cfg.Storage.Driver, cfg.Keycloak.URL != "", cfg.Redis.Host != "", cfg.JWT.Secret != "")
	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			logger.Fatalf("JWT_SECRET is required in production")
		}
		cfg.JWT.Secret = "dev-only-" + uuid.NewString()
		logger.Warn("JWT_SECRET is not set; using an ephemeral secret, tokens will not survive a restart")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}
	defer func() { _ = stores.Close(context.Background()) }()

	// Redis is optional: blacklist, sessions and the distributed rate limiter use it.
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			redisClient = c
			sessions.SetBlacklistClient(c)
			logger.Infof("connected to Redis: %s", addr)
			defer c.Close()
		}
	}

	userSvc := users.NewService(stores.Users, users.BcryptHasher{})
	docSvc := service.New(stores.Documents, userSvc)

	var sessRepo sessions.Repository
	switch {
	case redisClient != nil:
		sessRepo = sessions.NewRedisRepository(redisClient, "session:")
	case stores.Sessions != nil:
		sessRepo = stores.Sessions
	default:
		logger.Warn("no shared session store; refresh sessions are kept in memory")
		sessRepo = sessions.NewMemoryRepository()
	}
	sessionsSvc := sessions.NewService(sessRepo)

	if cfg.Seed.Demo {
		if _, err := seed.Demo(ctx, userSvc, docSvc, cfg.Seed.Password); err != nil {
			logger.Errorf("demo seed failed: %v", err)
		}
	}

	// Local HS256 tokens always verify; Keycloak ID tokens when configured.
	verifier := middleware.Chain{tokens.NewVerifier(cfg.JWT.Secret)}
	oidcReady := true
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.Issuer(cfg.Keycloak.URL, cfg.Keycloak.Realm), cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
			oidcReady = false
		} else {
			verifier = append(verifier, ver)
		}
	}
	// Insecure verifier for integration tests: parse claims without signature verification
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") && !cfg.IsProduction() {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = append(verifier, oidc.NewInsecureVerifier())
	}

	r := gin.New()
	// Lightweight CORS for the browser client.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		logger.Infof("rate limiter enabled: rps=%v burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis && redisClient != nil)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := map[string]bool{"storage": stores.Ping(pctx) == nil, "oidc": oidcReady}
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil && redisClient.Ping(pctx).Err() == nil
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		status, word := http.StatusOK, "ready"
		if !ready {
			status, word = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": word, "driver": stores.Driver, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	auth := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, verifier)
	auth.Register(r.Group("/"))
	handlers.RegisterSwagger(r)

	api := r.Group("/api", middleware.AuthMiddleware(verifier), middleware.PrincipalMiddleware(userSvc))
	api.GET("/v1/me", auth.Me)
	handlers.RegisterUserRoutes(api, userSvc)
	handler.RegisterDocumentRoutes(api, docSvc, userSvc, cfg.Server.MaxUploadBytes)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting inksign service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
