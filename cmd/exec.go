package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"specimenpro/config"
	"specimenpro/handlers"
	"specimenpro/internal/assets"
	"specimenpro/monitoring"
	"specimenpro/security"
	"specimenpro/services"
	"specimenpro/utils"
)

// Start builds the PocketBase app with the authoring routes and the
// specimenpro subcommands, then runs whichever command was given.
func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	app := pocketbase.New()

	monitor := monitoring.NewMonitor(nil)
	resolver := assets.NewResolver(cfg.SiteRoot, cfg.AssetBaseURL)
	editor := services.NewEditorService(cfg, resolver, monitor)

	registerCommands(app, cfg, editor, monitor)

	ctx, cancel := context.WithCancel(context.Background())
	var redisClient *redis.Client

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := editor.Load(); err != nil {
			return err
		}

		redisClient, err = utils.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}

		links := services.NewLinkChecker(cfg.SiteRoot, cfg.LinkCheckTimeout, cfg.LinkCheckRetries)
		publisher := services.NewPublishService(redisClient, services.NewNotifier(cfg), links, monitor, cfg)

		eventHandler := handlers.NewEventHandler(editor, monitor)
		publishHandler := handlers.NewPublishHandler(editor, publisher)

		// Authoring endpoints
		se.Router.POST("/api/v1/events/validate", eventHandler.Validate)
		se.Router.POST("/api/v1/events/canonicalize", eventHandler.Canonicalize)
		se.Router.GET("/api/v1/events", eventHandler.List)
		se.Router.GET("/api/v1/events/{eventId}/qr", eventHandler.QRPayloads)

		// Publish endpoints
		limiter := security.NewRateLimiter(redisClient, "ratelimit:publish", int64(cfg.PublishRateLimit), time.Minute)
		se.Router.POST("/api/v1/publish", publishHandler.Publish).BindFunc(limiter.Limit)
		se.Router.GET("/events.json", publishHandler.PublishedCorpus)
		se.Router.GET("/events/{eventId}", publishHandler.PublishedEvent)

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
			go monitoring.NewMonitor(redisClient).Collect(ctx, services.MetaKey, 30*time.Second)
		}

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		slog.Info("Server routes registered", "corpus", cfg.CorpusPath, "siteRoot", cfg.SiteRoot)
		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		cancel()
		if redisClient != nil {
			redisClient.Close()
		}
		return e.Next()
	})

	defer cancel()
	return app.Start()
}
