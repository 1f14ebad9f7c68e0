package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parkspot-backend/config"
	"parkspot-backend/internal/auth"
	"parkspot-backend/internal/location"
	"parkspot-backend/internal/mw"
	"parkspot-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, s store.Store, a *auth.Service, t *location.Tracker, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, a, t, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/signup", handler.Signup)
		api.POST("/auth/login", handler.Login)

		// The VAPID key is static per deployment, the one response
		// safe to cache.
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.BearerAuth(a))
		{
			authed.POST("/auth/logout", handler.Logout)
			authed.GET("/auth/me", handler.Me)
			authed.PUT("/auth/profile", handler.UpdateProfile)

			authed.POST("/records", handler.SaveRecord)
			authed.GET("/records", handler.ListRecords)
			authed.GET("/records/:id", handler.GetRecord)
			authed.POST("/records/:id/departure", handler.MarkDeparted)
			authed.DELETE("/records/:id", handler.DeleteRecord)

			authed.POST("/location", handler.ReportLocation)
			authed.GET("/location", handler.LatestLocation)
			authed.GET("/location/stream", handler.StreamLocation)

			authed.GET("/subscriptions", handler.GetSubscriptions)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
