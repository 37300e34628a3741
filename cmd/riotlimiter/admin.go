package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/internal/ratelimit"
	"github.com/subaru9/riot-ratelimit/pkg/logger"
)

// newAdminRouter builds the operator-facing HTTP surface: policy/cooldown
// inspection for the devops dashboard use case named in the key-grammar
// contract, plus the standard health and Prometheus endpoints.
func newAdminRouter(rl *ratelimit.RateLimit, codec *ratelimit.KeyCodec, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debug := router.Group("/debug")
	{
		debug.GET("/policy/:routing/*endpoint", handleDebugPolicy(rl, log))
		debug.GET("/cooldown/:routing/*endpoint", handleDebugCooldown(rl, log))
		debug.GET("/keys", handleDebugKeys(codec))
	}

	return router
}

func handleDebugPolicy(rl *ratelimit.RateLimit, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		routing := ratelimit.Routing(c.Param("routing"))
		endpoint := c.Param("endpoint")

		entries, err := rl.FetchPolicy(c.Request.Context(), routing, endpoint)
		if err != nil {
			log.Warn("debug policy lookup failed", zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"routing": routing, "endpoint": endpoint, "entries": entries})
	}
}

func handleDebugCooldown(rl *ratelimit.RateLimit, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		routing := ratelimit.Routing(c.Param("routing"))
		endpoint := c.Param("endpoint")

		decision, err := rl.CooldownStatus(c.Request.Context(), routing, endpoint)
		if err != nil {
			log.Warn("debug cooldown lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"routing": routing, "endpoint": endpoint, "throttled": !decision.Allow, "entries": decision.Entries})
	}
}

// handleDebugKeys decodes the kind/routing/endpoint/limit_type/window
// segments of a caller-supplied key, so an operator poking at a dashboard
// can paste a raw Redis key and see what it means without memorizing the
// key grammar by hand.
func handleDebugKeys(codec *ratelimit.KeyCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Query("key")
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing ?key= query parameter"})
			return
		}
		entry, kind, err := codec.Decode(key)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "entry": entry})
	}
}
