package api

import (
	"net/http"
	"time"

	"leverage-core/internal/events"
	"leverage-core/internal/monitor"
	"leverage-core/internal/preset"
	"leverage-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the calculation engine and its history store.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Metrics   *monitor.SystemMetrics
	Presets   []preset.Preset
	JWTSecret string
	Meta      SystemMeta
	Limits    HistoryLimits
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	Language string
	Version  string
}

// HistoryLimits bounds history pagination.
type HistoryLimits struct {
	DefaultLimit int
	MaxLimit     int
}

// RateLimits configures the per-IP request limiter.
type RateLimits struct {
	PerSecond float64
	Burst     int
}

func NewServer(bus *events.Bus, database *db.Database, metrics *monitor.SystemMetrics, presets []preset.Preset, meta SystemMeta, jwtSecret string, limits HistoryLimits, rates RateLimits) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                    // Panic recovery (first)
	r.Use(RequestIDMiddleware())             // Request ID tracking
	r.Use(RequestLogger(metrics))            // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(rates))        // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second)) // Request timeout (30s)
	r.Use(CORSMiddleware())                  // CORS (last before routes)

	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 50
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 500
	}

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Metrics:   metrics,
		Presets:   presets,
		JWTSecret: jwtSecret,
		Meta:      meta,
		Limits:    limits,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/presets", s.getPresets)

		// The engine itself is pure and stores nothing, so it needs no auth.
		api.POST("/calculate", s.calculate)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/history", s.saveCalculation)
			protected.GET("/history", s.listHistory)
			protected.GET("/history/export", s.exportHistory)
			protected.GET("/history/:id", s.getHistoryItem)
			protected.DELETE("/history/:id", s.deleteHistoryItem)
			protected.DELETE("/history", s.clearHistory)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
