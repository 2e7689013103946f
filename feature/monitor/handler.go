package monitor

import (
	"errors"
	"strconv"

	"inventory-monitor/core/inventory"
	"inventory-monitor/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the live inventory.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the inventory routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/inventory")
	group.Get("/scopes", h.HandleScopes)
	group.Post("/scopes", h.HandleRegister)
	group.Delete("/scopes/:scope", h.HandleSuspend)
	group.Get("/count", h.HandleCount)
	group.Get("/totals", h.HandleTotals)
	group.Get("/snapshot", h.HandleSnapshot)
	group.Post("/dirty", h.HandleDirty)
	group.Get("/log", h.HandleLog)
}

type scopeRequest struct {
	Scope string `json:"scope"`
}

type dirtyRequest struct {
	Scope     string `json:"scope"`
	Container string `json:"container"`
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrUnknownScope):
		return fiber.StatusNotFound
	case errors.Is(err, inventory.ErrUnknownContainer):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// queryScope parses the scope query parameter. ok is false when it is absent.
func queryScope(c *fiber.Ctx) (scope inventory.ScopeID, ok bool, err error) {
	raw := c.Query("scope")
	if raw == "" {
		return inventory.ScopeID{}, false, nil
	}
	scope, err = inventory.ParseScopeID(raw)
	return scope, err == nil, err
}

// requireScope parses the mandatory scope query parameter.
func requireScope(c *fiber.Ctx) (inventory.ScopeID, error) {
	scope, ok, err := queryScope(c)
	if err != nil {
		return scope, err
	}
	if !ok {
		return scope, errors.New("scope is required")
	}
	return scope, nil
}

// HandleScopes lists known scopes.
func (h *Handler) HandleScopes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"scopes": h.service.Scopes()})
}

// HandleRegister registers a scope.
func (h *Handler) HandleRegister(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req scopeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	scope, err := inventory.ParseScopeID(req.Scope)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.Register(scope); err != nil {
		l.Warn("Scope registration rejected", zap.String("scope", req.Scope), zap.Error(err))
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "registered", "scope": scope})
}

// HandleSuspend suspends a scope.
func (h *Handler) HandleSuspend(c *fiber.Ctx) error {
	scope, err := inventory.ParseScopeID(c.Params("scope"))
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.Suspend(scope); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "suspended", "scope": scope})
}

// HandleCount returns the aggregate count of one item.
func (h *Handler) HandleCount(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Query("item"), 10, 32)
	if err != nil || id == 0 {
		return badRequest(c, errors.New("item must be a positive item id"))
	}
	flags, err := strconv.ParseUint(c.Query("flags", "0"), 10, 8)
	if err != nil {
		return badRequest(c, errors.New("flags must be between 0 and 255"))
	}
	item := inventory.ItemIdentity{ItemID: uint32(id), HQ: c.QueryBool("hq", false), Flags: uint8(flags)}

	scope, ok, err := queryScope(c)
	if err != nil {
		return badRequest(c, err)
	}
	resp := fiber.Map{"item": item}
	if ok {
		resp["scope"] = scope
		resp["count"] = h.service.Count(item, &scope)
	} else {
		resp["count"] = h.service.Count(item, nil)
	}
	return c.JSON(resp)
}

// HandleTotals returns every item count of a scope.
func (h *Handler) HandleTotals(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(fiber.Map{"scope": scope, "totals": h.service.Totals(scope)})
}

// HandleSnapshot returns the current slots of a scope.
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return badRequest(c, err)
	}
	view, err := h.service.Snapshot(scope)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(view)
}

// HandleDirty requests an out-of-cycle refresh.
func (h *Handler) HandleDirty(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req dirtyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	scope, err := inventory.ParseScopeID(req.Scope)
	if err != nil {
		return badRequest(c, err)
	}
	kind, err := inventory.ParseContainerKind(req.Container)
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.MarkDirty(scope, kind); err != nil {
		l.Debug("Dirty request rejected", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}

// HandleLog returns the recent batches of a scope.
func (h *Handler) HandleLog(c *fiber.Ctx) error {
	scope, err := requireScope(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(fiber.Map{"scope": scope, "batches": h.service.Log(scope)})
}
