package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/config"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/session"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/store"
)

// maxUpdateBytes caps an inbound channel update.
const maxUpdateBytes = 1 << 20

// #region deps
// Handler runs turns. Implemented by pipeline.Pipeline.
type Handler interface {
	Handle(ctx context.Context, update json.RawMessage) *envelope.Envelope
	Decide(in answer.Input) answer.Result
}

// Records reads the persisted answer log. Implemented by store.Store.
type Records interface {
	Get(ctx context.Context, requestID string) (store.AnswerRecord, error)
	CountByMode(ctx context.Context) (map[string]int, error)
}

// Deps are the server's collaborators. Handler is required; Sessions,
// Records and Gatherer may be nil, disabling the endpoints that need them.
type Deps struct {
	Handler  Handler
	Sessions *session.Cache
	Records  Records
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// #endregion deps

// #region server
// Server exposes the pipeline over HTTP.
type Server struct {
	config ServerConfig
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
}

// ServerConfig is the listener configuration.
type ServerConfig = config.ServerConfig

// New builds the server and its routes.
func New(cfg ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{config: cfg, deps: deps, logger: logger}
	s.router = s.buildRouter()
	return s
}

// Router returns the gin engine, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.POST("/updates", s.handleUpdate)
	v1.POST("/decide", s.handleDecide)
	v1.GET("/requests/:id", s.handleGetRequest)
	v1.GET("/chats/:chat_id/last", s.handleLastForChat)
	v1.GET("/stats", s.handleStats)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// #endregion server

// #region middleware
// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// #endregion middleware
