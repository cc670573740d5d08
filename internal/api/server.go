// Package api serves a read-only HTTP view of the adaptive core: the
// latest decision, current ensemble weights, regime history and
// optimizer progress. It never mutates the core.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"adaptive-trading-bot/internal/controller"
	"adaptive-trading-bot/internal/ensemble"
	"adaptive-trading-bot/internal/regime"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdaptiveCore is the surface the server reads from.
type AdaptiveCore interface {
	LatestDecision() *controller.Decision
	CurrentWeights() ensemble.Weights
	RegimeHistory() []regime.State
}

// OptimizerStatus reports the state of a background optimization run.
type OptimizerStatus interface {
	Status() map[string]interface{}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	core       AdaptiveCore
	optimizer  OptimizerStatus
	config     ServerConfig
	started    time.Time
	logger     zerolog.Logger
}

// NewServer creates the API server. optimizer may be nil when no
// optimization run is wired in.
func NewServer(config ServerConfig, core AdaptiveCore, optimizer OptimizerStatus, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8088"}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		core:      core,
		optimizer: optimizer,
		config:    config,
		started:   time.Now(),
		logger:    logger.With().Str("component", "api").Logger(),
	}
	server.registerRoutes()
	return server
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.GET("/decision/latest", s.handleLatestDecision)
		apiGroup.GET("/weights", s.handleWeights)
		apiGroup.GET("/regime/history", s.handleRegimeHistory)
		apiGroup.GET("/optimizer", s.handleOptimizer)
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{
		"uptime":  time.Since(s.started).String(),
		"weights": s.core.CurrentWeights(),
	}

	if decision := s.core.LatestDecision(); decision != nil {
		status["last_decision_id"] = decision.ID
		status["last_decision_at"] = decision.CreatedAt
		status["regime"] = decision.Regime
		status["regime_confidence"] = decision.RegimeConfidence
	} else {
		status["regime"] = regime.RegimeInsufficientData
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) handleLatestDecision(c *gin.Context) {
	decision := s.core.LatestDecision()
	if decision == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decision yet"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (s *Server) handleWeights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"weights": s.core.CurrentWeights()})
}

func (s *Server) handleRegimeHistory(c *gin.Context) {
	history := s.core.RegimeHistory()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(history),
		"history": history,
	})
}

func (s *Server) handleOptimizer(c *gin.Context) {
	if s.optimizer == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, s.optimizer.Status())
}
