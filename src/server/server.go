package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Collaborators reported by /api/health
// -----------------------------------------------------------------------------

type RefreshStatusProvider interface {
	Status() []models.MRefreshStatus
}

type MarketClock interface {
	IsOpen(t time.Time) bool
}

type ArchiveReader interface {
	RecentPayloads(ctx context.Context, operation string, limit int) ([]models.MArchivedPayload, error)
}

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

// DashboardServer owns the dashboard's text elements and chart data. The
// refresh loop writes into it through the sink methods; every write is pushed
// to connected browsers over the websocket.
type DashboardServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Refresh RefreshStatusProvider
	Market  MarketClock
	Archive ArchiveReader
	engine  *gin.Engine
	http    *http.Server

	// WebSocket clients
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MDashboardMessage // Buffered Queue
	register    chan *Client
	unregister  chan *Client
	snapshots   chan *Client
	done        chan struct{}
	stopOnce    sync.Once

	// Rendered dashboard
	state      *models.MDashboardState
	stateMutex sync.RWMutex
	now        func() time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, logger *logger.Logger) *DashboardServer {
	// Set Gin mode
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Queue size of 256 absorbs a full tick of writes for slow hubs
		broadcast:  make(chan *models.MDashboardMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshots:  make(chan *Client),
		done:       make(chan struct{}),
		state: &models.MDashboardState{
			Texts: make(map[string]string),
		},
		now: time.Now,
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.engine,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	s.engine.GET("/api/dashboard", s.getDashboard)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/archive/:operation", s.getArchive)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the gin engine, for tests and embedding.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the websocket hub and serves HTTP until Stop.
func (s *DashboardServer) Start() error {
	s.Logger.Info("Starting dashboard server on %s", s.http.Addr)

	go s.handleWebsockets()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getDashboard(c *gin.Context) {
	c.JSON(200, s.Snapshot())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"refresh_interval_seconds": s.Config.Refresh.IntervalSeconds,
		"currency":                 s.Config.Display.Currency,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.state.Timestamp
	s.stateMutex.RUnlock()

	resp := gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
	}
	if s.Market != nil {
		resp["market_open"] = s.Market.IsOpen(s.now())
	}
	if s.Refresh != nil {
		resp["refresh"] = s.Refresh.Status()
	}
	c.JSON(200, resp)
}

// -----------------------------------------------------------------------------

const (
	defaultArchiveLimit = 10
	maxArchiveLimit     = 100
)

func (s *DashboardServer) getArchive(c *gin.Context) {
	if s.Archive == nil {
		c.JSON(404, gin.H{"error": "archive disabled"})
		return
	}

	operation := c.Param("operation")
	switch operation {
	case models.OpPortfolioSeries, models.OpStockPerformance, models.OpPortfolioStats:
	default:
		c.JSON(404, gin.H{"error": fmt.Sprintf("unknown operation '%s'", operation)})
		return
	}

	limit := defaultArchiveLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(400, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxArchiveLimit)
	}

	rows, err := s.Archive.RecentPayloads(c.Request.Context(), operation, limit)
	if err != nil {
		s.Logger.Error("Archive query for %s failed: %v", operation, err)
		c.JSON(500, gin.H{"error": "archive unavailable"})
		return
	}
	if rows == nil {
		rows = []models.MArchivedPayload{}
	}
	c.JSON(200, rows)
}
