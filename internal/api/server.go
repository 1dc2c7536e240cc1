package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"orderbot/internal/config"
	"orderbot/internal/rest"
)

// Server is the HTTP surface over the order execution strategies.
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	logger     zerolog.Logger
}

// NewServer creates the API server and wires all routes.
func NewServer(cfg config.ServerConfig, client *rest.Client, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	server := &Server{
		config:   cfg,
		router:   router,
		handlers: NewHandlers(client, logger),
		logger:   logger.With().Str("component", "server").Logger(),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server
}

// Router exposes the underlying engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.config.APIKey))
	{
		api.GET("/price/:symbol", s.handlers.GetPrice)
		api.GET("/balance", s.handlers.GetBalance)
		api.GET("/orders", s.handlers.GetOpenOrders)

		api.POST("/orders/market", s.handlers.PlaceMarketOrder)
		api.POST("/orders/limit", s.handlers.PlaceLimitOrder)
		api.POST("/orders/stop-limit", s.handlers.PlaceStopLimitOrder)
		api.POST("/orders/stop-loss", s.handlers.PlaceStopLoss)
		api.DELETE("/orders/:symbol/:orderId", s.handlers.CancelOrder)

		api.POST("/oco", s.handlers.PlaceOCO)
		api.POST("/oco/cancel", s.handlers.CancelOCO)

		api.POST("/twap", s.handlers.StartTWAP)
		api.GET("/twap/:id", s.handlers.GetTWAP)
		api.DELETE("/twap/:id", s.handlers.CancelTWAP)

		api.POST("/grid", s.handlers.CreateGrid)
		api.GET("/grid/:id", s.handlers.GetGrid)
		api.DELETE("/grid/:id", s.handlers.CancelGrid)
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
