// Package api exposes the processing pipeline over a local HTTP API.
package api

import (
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/config"
	"github.com/gmsas95/docuscan/internal/metrics"
	"github.com/gmsas95/docuscan/internal/ocr"
	"github.com/gmsas95/docuscan/internal/pipeline"
	"github.com/gmsas95/docuscan/internal/store"
)

// Server handles the HTTP API and progress WebSocket.
type Server struct {
	app          *fiber.App
	config       *config.Config
	orchestrator *pipeline.Orchestrator
	history      *store.Store
	metrics      *metrics.Metrics
	logger       *zap.Logger

	wsClients map[*websocket.Conn]bool
	wsLock    sync.Mutex
}

// New creates the API server. The orchestrator's progress sink should
// be wired to BroadcastProgress so clients see attempt progress.
func New(cfg *config.Config, orchestrator *pipeline.Orchestrator, history *store.Store, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		config:       cfg,
		orchestrator: orchestrator,
		history:      history,
		metrics:      m,
		logger:       logger,
		wsClients:    make(map[*websocket.Conn]bool),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "docuscan",
		DisableStartupMessage: true,
	})
	s.setupRoutes()
	return s
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("API server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// BroadcastProgress fans a progress snapshot out to connected WebSocket
// clients. It never blocks the processing path: writes happen on a
// separate goroutine and slow clients are dropped.
func (s *Server) BroadcastProgress(p ocr.Progress) {
	go func() {
		s.wsLock.Lock()
		defer s.wsLock.Unlock()
		for conn := range s.wsClients {
			if err := conn.WriteJSON(p); err != nil {
				conn.Close()
				delete(s.wsClients, conn)
			}
		}
	}()
}
