package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/trevordebard/vote-tracker/config"
	"github.com/trevordebard/vote-tracker/internal/events"
	"github.com/trevordebard/vote-tracker/internal/mw"
	"github.com/trevordebard/vote-tracker/internal/notification"
	"github.com/trevordebard/vote-tracker/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, bus *events.Bus, pool *notification.WorkerPool, webpushOptions *webpush.Options, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	keepAlive := time.Duration(cfg.KeepAliveSeconds) * time.Second
	handler := NewHandler(s, bus, pool, webpushOptions, keepAlive)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Read-side cache: a short TTL keeps busy dashboards from hammering the
	// summary query without making the tally feel stale. A non-positive TTL
	// disables caching entirely.
	caching := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	if cfg.CacheTTLSeconds > 0 {
		cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
		cacheStore := cache.New(cacheTTL, 10*cacheTTL)
		caching = mw.Cache(cacheStore, cacheTTL)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/rooms", handler.CreateRoom)
		api.GET("/rooms/:code", caching, handler.GetRoom)
		api.POST("/rooms/:code/close", handler.CloseRoom)

		api.POST("/rooms/:code/votes", handler.SubmitVotes)
		api.PUT("/rooms/:code/votes", handler.UpdateVotes)

		api.POST("/rooms/:code/merge", handler.MergeCandidates)
		api.GET("/rooms/:code/summary", caching, handler.GetSummary)

		// No cache on the stream: it is a long-lived SSE response.
		api.GET("/rooms/:code/stream", handler.StreamRoom)

		api.PUT("/rooms/:code/push", handler.PutPushSubscription)
		api.DELETE("/rooms/:code/push", handler.DeletePushSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
