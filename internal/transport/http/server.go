package http

import (
	"net"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/TsegabAbreham/MovieApp/internal/config"
	"github.com/TsegabAbreham/MovieApp/internal/core"
)

// NewServer builds the relay's HTTP server: a health endpoint and the
// WebSocket entrypoint, with per-IP rate limiting on upgrades.
//
// The WebSocket route is mounted on the outer mux rather than on gin:
// gin's response writer refuses to hijack the connection once the 101
// response header has been written, which would fail every upgrade.
func NewServer(registry *core.Registry, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok", "rooms": registry.RoomCount()})
	})

	limiter := newIPLimiter(cfg.RateLimitPerIP)
	ws := NewWSHandler(registry, cfg.EnforceHost, logger)

	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/ws", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if !limiter.allow(clientIP(r)) {
			stdhttp.Error(w, "rate limit exceeded", stdhttp.StatusTooManyRequests)
			return
		}
		ws.ServeHTTP(w, r)
	})
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// LoggerMiddleware logs HTTP requests after they complete.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

func clientIP(r *stdhttp.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
