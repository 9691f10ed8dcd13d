package api

import (
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/errors"
	"github.com/gmsas95/docuscan/internal/ocr"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"busy":      s.orchestrator.Busy(),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/plain; charset=utf-8")
	return c.SendString(s.metrics.Prometheus())
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Server.AdminPassword == "" || req.Password != s.config.Server.AdminPassword {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "default",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.config.Server.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}
	return c.JSON(fiber.Map{"token": tokenString})
}

type scanRequest struct {
	Path                string `json:"path"`
	IncludeImages       bool   `json:"include_images"`
	TableFormat         string `json:"table_format"`
	ExtractHeaderFooter bool   `json:"extract_header_footer"`
}

func (s *Server) handleScan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Path == "" {
		return c.Status(400).JSON(fiber.Map{"error": "path is required"})
	}
	if s.orchestrator.Busy() {
		return c.Status(409).JSON(fiber.Map{"error": "another document is already being processed"})
	}

	docType, mime := ocr.Classify(req.Path)
	doc := ocr.Document{
		ID:       uuid.NewString(),
		Path:     req.Path,
		Name:     filepath.Base(req.Path),
		Type:     docType,
		MIMEType: mime,
	}
	settings := ocr.Settings{
		IncludeImages:       req.IncludeImages,
		TableFormat:         ocr.TableFormat(req.TableFormat),
		ExtractHeaderFooter: req.ExtractHeaderFooter,
	}

	result, err := s.orchestrator.Process(c.Context(), doc, settings)
	if err != nil {
		kind := errors.KindOf(err)
		s.logger.Warn("Scan failed",
			zap.String("path", req.Path),
			zap.String("kind", string(kind)),
		)
		return c.Status(statusForKind(kind)).JSON(fiber.Map{
			"error":      errors.Description(kind),
			"kind":       string(kind),
			"suggestion": errors.Suggestion(kind),
		})
	}
	return c.JSON(result)
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	s.orchestrator.Cancel()
	return c.SendStatus(fiber.StatusAccepted)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return c.Status(404).JSON(fiber.Map{"error": "history is disabled"})
	}
	limit := c.QueryInt("limit", 20)
	records, err := s.history.ListRecent(limit)
	if err != nil {
		s.logger.Error("Failed to list history", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list history"})
	}
	return c.JSON(records)
}

func (s *Server) handleProgressSocket(conn *websocket.Conn) {
	s.wsLock.Lock()
	s.wsClients[conn] = true
	s.wsLock.Unlock()

	defer func() {
		s.wsLock.Lock()
		delete(s.wsClients, conn)
		s.wsLock.Unlock()
		conn.Close()
	}()

	// Hold the connection open; the client only listens.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func statusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindMissingCredential, errors.KindAuthenticationFailed:
		return 401
	case errors.KindAccessDenied:
		return 403
	case errors.KindUnsupportedFormat, errors.KindInvalidRequest:
		return 400
	case errors.KindFileRead:
		return 404
	case errors.KindFileTooLarge:
		return 413
	case errors.KindUnprocessable:
		return 422
	case errors.KindRateLimited:
		return 429
	case errors.KindCancelled:
		return 499
	case errors.KindTimeout:
		return 504
	default:
		return 502
	}
}
