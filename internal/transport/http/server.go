package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-live/internal/config"
	"github.com/vovakirdan/wirechat-live/internal/core"
)

// NewServer builds the HTTP server: health check, the chat WebSocket and the presence API.
func NewServer(hub *core.Hub, verifier core.Verifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, verifier, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a gin engine.
func NewRouter(hub *core.Hub, verifier core.Verifier, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	ws := NewWSHandler(hub, cfg.WS, logger)
	router.GET("/ws/chat/:conversation_id", ws.Handle)
	// Browsers do not follow redirects during the handshake.
	router.GET("/ws/chat/:conversation_id/", ws.Handle)

	presence := NewPresenceHandlers(hub, logger)
	api := router.Group("/api", AuthMiddleware(verifier, logger))
	api.GET("/conversations/:conversation_id/online", presence.Online)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
