package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/denysvitali/ipos-browser-go/pkg/config"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
	"github.com/denysvitali/ipos-browser-go/pkg/telemetry"
)

// Factory builds a fresh session wired to the given reloader
type Factory func(reloader session.Reloader) (*session.Session, error)

// Gateway exposes the session over a local HTTP API
type Gateway struct {
	config    *config.Config
	logger    *logrus.Logger
	factory   Factory
	current   atomic.Pointer[session.Session]
	startTime time.Time
	reloads   atomic.Int64
	stale     atomic.Bool
	engine    *gin.Engine
	server    *http.Server
}

// New creates a gateway and builds its first session
func New(cfg *config.Config, logger *logrus.Logger, factory Factory) (*Gateway, error) {
	g := &Gateway{
		config:    cfg,
		logger:    logger,
		factory:   factory,
		startTime: time.Now(),
	}

	sess, err := factory(g)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	g.current.Store(sess)

	if logger.Level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(ginLogger(logger))

	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(telemetry.ServiceName))
	}

	engine.Use(corsMiddleware())

	if cfg.Gateway.SessionAPIKey != "" {
		engine.Use(authMiddleware(cfg.Gateway.SessionAPIKey))
	}

	g.engine = engine
	g.setupRoutes()

	return g, nil
}

// Session returns the current session
func (g *Gateway) Session() *session.Session {
	return g.current.Load()
}

// Reload implements session.Reloader. An expired login rebuilds the
// session. Version skew only marks the gateway stale until restarted.
func (g *Gateway) Reload(reason session.ReloadReason) {
	g.reloads.Add(1)
	switch reason {
	case session.ReloadVersionSkew:
		g.stale.Store(true)
		g.logger.Warn("Server UI version differs from this build, restart with an updated binary")
	default:
		sess, err := g.factory(g)
		if err != nil {
			g.logger.Errorf("Failed to rebuild session after %s: %v", reason, err)
			return
		}
		g.current.Store(sess)
		g.logger.Infof("Session rebuilt after %s", reason)
	}
}

// Start starts the HTTP server
func (g *Gateway) Start() error {
	g.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", g.config.Gateway.Port),
		Handler: g.engine,
	}

	g.logger.Infof("Starting gateway on port %d", g.config.Gateway.Port)
	return g.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// Engine returns the gin engine for testing purposes
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// writeError maps session errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	var (
		rpcErr    *session.RPCError
		serverErr *session.ServerError
		protoErr  *session.ProtocolError
	)

	switch {
	case errors.Is(err, session.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotLoggedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &rpcErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": rpcErr.Message, "code": rpcErr.Code})
	case errors.As(err, &serverErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "status": serverErr.StatusCode})
	case errors.Is(err, session.ErrUnreachable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &protoErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requestID tags every request with an X-Request-ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// ginLogger creates a gin logger middleware using logrus
func ginLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status":     statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency":    time.Since(start),
			"request_id": c.GetString("request_id"),
		})

		if raw != "" {
			entry = entry.WithField("query", raw)
		}

		if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request completed")
		}
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Session-API-Key, X-Request-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware validates API key
func authMiddleware(expectedAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Session-API-Key") != expectedAPIKey {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid API Key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
