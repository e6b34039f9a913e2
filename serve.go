package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinecircle/server/api/rest"
	"github.com/cinecircle/server/api/sse"
	"github.com/cinecircle/server/cache"
	"github.com/cinecircle/server/catalog"
	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/config"
	database "github.com/cinecircle/server/db"
	"github.com/cinecircle/server/logger"
	mw "github.com/cinecircle/server/middleware"
	"github.com/cinecircle/server/model"
	"github.com/cinecircle/server/scheduler"
	"github.com/cinecircle/server/social/badge"
	"github.com/cinecircle/server/social/content"
	"github.com/cinecircle/server/social/engagement"
	"github.com/cinecircle/server/social/friendship"
	"github.com/cinecircle/server/social/goal"
	"github.com/cinecircle/server/social/group"
	"github.com/cinecircle/server/social/message"
	"github.com/cinecircle/server/social/notify"
	"github.com/cinecircle/server/social/profile"
	"github.com/cinecircle/server/social/ranking"
	"github.com/cinecircle/server/social/stats"
	"github.com/cinecircle/server/social/watchlist"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	pruneInterval   = time.Hour
	pruneBootDelay  = time.Minute
	shutdownTimeout = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	if cfg.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is not set")
	}
	if cfg.Server.AdminKey == "" {
		log.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	log.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	c, err := cache.Open(cache.Config{
		RedisAddr:        cfg.Cache.RedisAddr,
		RedisPassword:    cfg.Cache.RedisPassword,
		RedisDB:          cfg.Cache.RedisDB,
		SweepInterval:    cfg.Cache.SweepInterval,
		SubscriberBuffer: cfg.Cache.SubscriberBuffer,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()
	feed := changefeed.New(c, log)
	log.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Services ----
	contentSvc := content.NewService(db, feed, log)
	engSvc := engagement.NewService(db, c, cfg.Social.EngagementCacheTTL, feed, log)
	friendSvc := friendship.NewService(db, feed, log)
	rankSvc := ranking.NewService(contentSvc, engSvc, ranking.Options{Size: cfg.Social.RankingSize}, log)
	badgeSvc := badge.NewService(db, stats.NewBuilder(db, log), badge.NewEvaluator(badge.Rules{
		FounderUserID:      cfg.Social.FounderUserID,
		EarlyAdopterCutoff: cfg.Social.EarlyAdopterCutoff,
	}), log)
	inbox := notify.NewInbox(db, log)
	msgSvc := message.NewService(db, feed, log)
	watchSvc := watchlist.NewService(db, nil, log)
	groupSvc := group.NewService(db, friendSvc, feed, log)
	goalSvc := goal.NewService(db, friendSvc, log)
	profileSvc := profile.NewService(db, log)
	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		ImageBase: cfg.Catalog.ImageBase,
		APIKey:    cfg.Catalog.APIKey,
		Language:  cfg.Catalog.Language,
		RPS:       cfg.Catalog.RPS,
		Timeout:   cfg.Catalog.Timeout,
		CacheTTL:  cfg.Catalog.CacheTTL,
		Retries:   cfg.Catalog.Retries,
	}, c, log)
	if !catalogClient.Configured() {
		log.Warn("catalog.api_key is not set; catalog search is disabled")
	}

	// ---- Notifications ----
	emitter := notify.NewEmitter(db, feed, notify.EmitterOptions{
		QueueSize:        cfg.Notify.QueueSize,
		BatchSize:        cfg.Notify.BatchSize,
		FlushInterval:    cfg.Notify.FlushInterval,
		RetryInitialWait: cfg.Notify.RetryInitialWait,
		RetryMaxElapsed:  cfg.Notify.RetryMaxElapsed,
	}, log)
	genCtx, stopGen := context.WithCancel(context.Background())
	defer stopGen()
	genDone, err := notify.NewGenerator(feed, emitter, log).Start(genCtx)
	if err != nil {
		return fmt.Errorf("notification generator: %w", err)
	}

	// ---- Periodic Scheduler Tasks ----
	sched := scheduler.New(log)
	if every := cfg.Social.RankingWarmInterval; every > 0 {
		sched.AddTicker("ranking_warm", every, true, rankSvc.Warm)
	}
	if ttl := cfg.Social.NotificationTTL; ttl > 0 {
		prune := func(ctx context.Context) error {
			_, err := inbox.Prune(ctx, time.Now().Add(-ttl))
			return err
		}
		sched.AddDelay("notification_prune_boot", pruneBootDelay, prune)
		sched.AddTicker("notification_prune", pruneInterval, false, prune)
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(log), mw.Recovery(log), mw.Origins(cfg.Security.AllowedOrigins))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})

	auth := mw.Auth(cfg.Security.JWTSecret)
	limit := mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)
	api := r.Group("/api", auth, limit)
	admin := r.Group("/api/admin", limit, mw.AdminAuth(cfg.Server.AdminKey, cfg.Server.AdminIPs))
	rest.Register(api, admin, rest.Services{
		Friends:    friendSvc,
		Content:    contentSvc,
		Engagement: engSvc,
		Ranking:    rankSvc,
		Badges:     badgeSvc,
		Inbox:      inbox,
		Messages:   msgSvc,
		Watchlist:  watchSvc,
		Groups:     groupSvc,
		Goals:      goalSvc,
		Profiles:   profileSvc,
		Catalog:    catalogClient,
		Scheduler:  sched,
	}, log)

	sseH := sse.NewHandler(feed, 0, log)
	r.GET("/sse", auth, sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server stopped", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	stopGen()
	<-genDone
	emitter.Stop(shutdownCtx)
	log.Info("shutdown complete")
	return serveErr
}
