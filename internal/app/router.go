package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"smsride/internal/handler"
	"smsride/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SMSHandler         *handler.SMSHandler
	LocationHandler    *handler.LocationHandler
	RideHandler        *handler.RideHandler
	ParticipantHandler *handler.ParticipantHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Carrier gateway routes. Gateways retry deliveries, so inbound
		// messages are deduplicated.
		sms := v1.Group("/sms")
		sms.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
		{
			sms.POST("/inbound", deps.SMSHandler.Inbound)
		}
		v1.GET("/commands", deps.SMSHandler.Commands)

		// Location network routes.
		locations := v1.Group("/locations")
		{
			locations.POST("/:phone", deps.LocationHandler.UpdateLocation)
			locations.GET("/:phone", deps.LocationHandler.GetLocation)
			locations.DELETE("/:phone", deps.LocationHandler.RemoveLocation)
		}

		// Read-only views.
		rides := v1.Group("/rides")
		{
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/:number", deps.RideHandler.GetRide)
		}
		v1.GET("/clients", deps.ParticipantHandler.GetClients)
		v1.GET("/drivers", deps.ParticipantHandler.GetDrivers)
	}

	return router
}
