package history

import (
	"strconv"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the change history.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the history routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/history")
	group.Get("/", h.HandleList)
	group.Get("/schema", h.HandleSchema)
}

// HandleList lists recent changes.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var f Filter
	if raw := c.Query("scope"); raw != "" {
		scope, err := inventory.ParseScopeID(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		f.Scope = &scope
	}
	if raw := c.Query("kind"); raw != "" {
		kind := inventory.ChangeKind(raw)
		if !kind.IsValid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown change kind " + raw})
		}
		f.Kind = kind
	}
	if raw := c.Query("item"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid item id"})
		}
		f.ItemID = uint32(id)
	}
	f.Limit = c.QueryInt("limit", DefaultLimit)

	records, err := h.service.List(c.Context(), f)
	if err != nil {
		l.Error("History query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"count":   len(records),
		"changes": records,
	})
}

// HandleSchema reports columns missing from the history table.
func (h *Handler) HandleSchema(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	missing, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	status := "ok"
	if len(missing) > 0 {
		status = "drift"
		l.Warn("History table is missing columns", zap.Strings("missing", missing))
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"table":   TableName,
		"missing": missing,
	})
}
