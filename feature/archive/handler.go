package archive

import (
	"errors"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the snapshot archive.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the archive routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/archive")
	group.Get("/", h.HandleList)
	group.Delete("/", h.HandlePurge)
	group.Get("/:scope", h.HandleFetch)
	group.Post("/:scope", h.HandleExport)
}

func statusFor(err error) int {
	if errors.Is(err, inventory.ErrUnknownScope) {
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// HandleList lists archived snapshots.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	entries, err := h.service.List(c.Context())
	if err != nil {
		l.Error("Archive listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"entries": entries,
		"pending":  h.service.Pending(),
		"removing": h.service.PendingRemovals(),
	})
}

// HandleFetch returns one archived snapshot.
func (h *Handler) HandleFetch(c *fiber.Ctx) error {
	scope, err := inventory.ParseScopeID(c.Params("scope"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	doc, err := h.service.Fetch(c.Context(), scope)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(doc)
}

// HandleExport exports one scope immediately.
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	scope, err := inventory.ParseScopeID(c.Params("scope"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	key, err := h.service.Export(c.Context(), scope)
	if err != nil {
		l.Error("Snapshot export failed", zap.String("scope", scope.String()), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "exported", "key": key})
}

// HandlePurge deletes every archived snapshot.
func (h *Handler) HandlePurge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	deleted, err := h.service.Purge(c.Context())
	if err != nil {
		l.Error("Archive purge incomplete", zap.Int("deleted", deleted), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   err.Error(),
			"deleted": deleted,
		})
	}
	l.Info("Archive purged", zap.Int("deleted", deleted))
	return c.JSON(fiber.Map{"status": "purged", "deleted": deleted})
}
