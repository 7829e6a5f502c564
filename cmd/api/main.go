package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/bootstrap"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/database"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/scheduler"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/tracing"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

const (
	jobQuota       = 100
	jobQuotaWindow = time.Hour
	limiterIdle    = 10 * time.Minute
)

func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg.Logging, cfg.Tracing.ServiceName+"-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	closer, err := tracing.Setup(cfg.Tracing, cfg.Tracing.ServiceName+"-api")
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := metrics.NewServer(cfg.Metrics.Port, logger.Zerolog())
	if cfg.Metrics.Enabled {
		go func() {
			if err := srv.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	repo := database.NewRepository(db)

	c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer c.Close()
	srv.AddCheck("database", db.Health)
	srv.AddCheck("redis", c.Ping)

	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	opts, err := cfg.Pipeline.TimelineOptions()
	if err != nil {
		logger.Fatalf("Invalid timeline settings: %v", err)
	}

	api := &API{
		repo:     repo,
		queue:    q,
		progress: c,
		timeline: opts,
		logger:   logger,
		checks: map[string]func(context.Context) error{
			"database": db.Health,
			"redis":    c.Ping,
		},
	}

	if cfg.Schedule.Enabled {
		sched := scheduler.New(scheduleEntries(cfg.Schedule), repo, q, logger)
		go sched.Run(ctx, cfg.Schedule.Tick)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	go limiter.Cleanup(ctx, time.Minute, limiterIdle)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret)
	if !auth.Enabled() {
		logger.Warn("JWT secret not set, API authentication disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api, routerConfig{
		auth:    auth,
		limiter: limiter,
		quota:   c,
		logger:  logger,
	})

	serve(cfg.Server, router, logger)
}

// scheduleEntries turns the configured periods into recurring runs; trends
// runs jump ahead of the other profiles when they fall due together
func scheduleEntries(cfg config.ScheduleConfig) []scheduler.Entry {
	return []scheduler.Entry{
		{Profile: models.ProfileDaily, Every: cfg.DailyEvery, Priority: models.JobPriorityNormal},
		{Profile: models.ProfileTrends, Every: cfg.TrendsEvery, Priority: models.JobPriorityHigh},
		{Profile: models.ProfileStory, Every: cfg.StoryEvery, Priority: models.JobPriorityLow},
	}
}

func serve(cfg config.ServerConfig, handler http.Handler, logger *logging.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
