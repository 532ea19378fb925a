package server

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/EgorSenyagin/foodbot/internal/api"
	"github.com/EgorSenyagin/foodbot/internal/config"
	"github.com/EgorSenyagin/foodbot/internal/mirror"
	"github.com/EgorSenyagin/foodbot/internal/reminder"
	"github.com/EgorSenyagin/foodbot/internal/schedule"
	"github.com/EgorSenyagin/foodbot/internal/service/orders"
	"github.com/EgorSenyagin/foodbot/internal/store"
)

// Server wires the stores, the calendar, the mirror and the reminder scan
// behind one HTTP surface.
type Server struct {
	router  *gin.Engine
	scanner *reminder.Scanner
	watcher *mirror.Watcher
}

// NewServer builds the full service from configuration.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	log.Printf("data directory: %s", dataDir)

	dir := store.NewDirectory(config.DataPath(cfg, cfg.Data.StudentsFile))

	records, err := store.NewOrders(config.DataPath(cfg, cfg.Data.OrdersFile), dir)
	if err != nil {
		return nil, fmt.Errorf("init orders store: %w", err)
	}

	cal, err := schedule.New(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("init calendar: %w", err)
	}

	m := mirror.New(config.DataPath(cfg, cfg.Data.MirrorFile), mirror.Config{
		AnchorScanRows:    cfg.Mirror.AnchorScanRows,
		AnchorFallbackRow: cfg.Mirror.AnchorFallbackRow,
		ListFallbackRow:   cfg.Mirror.ListFallbackRow,
		MaxDateColumns:    cfg.Mirror.MaxDateColumns,
	})

	// A missing kitchen file is a degraded state, not a startup failure;
	// the mirror stays stale until the staff drop the file in and the
	// watcher (or the next restart) picks it up.
	var watcher *mirror.Watcher
	if err := m.Load(); err != nil {
		log.Printf("kitchen mirror unavailable: %v", err)
	} else {
		watcher, err = mirror.NewWatcher(m)
		if err != nil {
			log.Printf("kitchen mirror watcher unavailable: %v", err)
		} else {
			watcher.Start()
		}
	}

	registry, err := reminder.NewRegistry(config.DataPath(cfg, cfg.Data.RemindersFile))
	if err != nil {
		return nil, fmt.Errorf("init reminder registry: %w", err)
	}

	svc := orders.NewService(dir, records, m, cal)

	scanner, err := reminder.NewScanner(cfg.Schedule, registry, dir, records, cal, nil)
	if err != nil {
		return nil, fmt.Errorf("init reminder scanner: %w", err)
	}

	s := &Server{
		router:  gin.Default(),
		scanner: scanner,
		watcher: watcher,
	}
	s.setupRoutes(api.NewHandler(svc, registry, m))

	return s, nil
}

func (s *Server) setupRoutes(handler *api.Handler) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiGroup := s.router.Group("/api")
	{
		handler.RegisterRoutes(apiGroup)
	}
}

// Scanner exposes the reminder scanner for the host to run.
func (s *Server) Scanner() *reminder.Scanner {
	return s.scanner
}

// Run starts the HTTP server.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close releases background resources.
func (s *Server) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}
