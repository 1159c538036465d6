package http

import (
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"incident-dashboard/internal/config"
)

func NewRouter(h *Handler, cfg config.ServerConfig, auth config.AuthConfig, log zerolog.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, err any) {
			log.Error().
				Interface("panic", err).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("internal error"))
		}),
		RequestLogger(log),
		cors.New(corsConfig(cfg.CORSOrigins)),
		gzip.Gzip(gzip.DefaultCompression),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse("route not found"))
	})

	h.Register(r, JWTAuth(auth.JWTSecret))
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Accept", "Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

// RequestLogger logs one line per request; 4xx at warn, 5xx at error.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
