package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/api/dto"
	"github.com/deskops/helpdesk-admin/internal/client"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/slice"
	"github.com/deskops/helpdesk-admin/internal/store"
	apperrors "github.com/deskops/helpdesk-admin/pkg/util/errorutil"
)

// ResourcesHandler exposes every store slice over HTTP.
type ResourcesHandler struct {
	store *store.Store
}

// NewResourcesHandler constructs handler.
func NewResourcesHandler(st *store.Store) *ResourcesHandler {
	return &ResourcesHandler{store: st}
}

// List GET /api/resources.
func (h *ResourcesHandler) List(c *fiber.Ctx) error {
	resources := h.store.Resources()
	items := make([]dto.ResourceSummary, 0, len(resources))
	for _, res := range resources {
		sl, err := h.store.Slice(res.Name)
		if err != nil {
			return err
		}
		items = append(items, dto.NewResourceSummary(res, sl.Snapshot()))
	}
	return c.JSON(fiber.Map{"data": items})
}

// State GET /api/resources/:name.
func (h *ResourcesHandler) State(c *fiber.Ctx) error {
	sl, err := h.slice(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceStateResponse(sl.Resource().Name, sl.Snapshot())})
}

// Get GET /api/resources/:name/:id serves from the local list.
func (h *ResourcesHandler) Get(c *fiber.Ctx) error {
	sl, err := h.slice(c)
	if err != nil {
		return err
	}
	rec, ok := sl.Find(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound(sl.Resource().Entity, map[string]any{"id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": rec})
}

// Fetch POST /api/resources/:name/fetch.
func (h *ResourcesHandler) Fetch(c *fiber.Ctx) error {
	sl, err := h.slice(c)
	if err != nil {
		return err
	}
	var req dto.FetchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := sl.FetchAll(c.UserContext(), store.Filter(req.IncludeInactive, req.Filters)); err != nil {
		if errors.Is(err, slice.ErrStaleResponse) {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.NewResourceStateResponse(sl.Resource().Name, sl.Snapshot())})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceStateResponse(sl.Resource().Name, sl.Snapshot())})
}

// Create POST /api/resources/:name.
func (h *ResourcesHandler) Create(c *fiber.Ctx) error {
	sl, err := h.mutableSlice(c)
	if err != nil {
		return err
	}
	body, err := parseRecord(c)
	if err != nil {
		return err
	}
	rec, err := sl.Create(c.UserContext(), body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": rec})
}

// Update PUT /api/resources/:name/:id.
func (h *ResourcesHandler) Update(c *fiber.Ctx) error {
	sl, err := h.mutableSlice(c)
	if err != nil {
		return err
	}
	body, err := parseRecord(c)
	if err != nil {
		return err
	}
	rec, err := sl.Update(c.UserContext(), c.Params("id"), body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec, "matched": rec != nil})
}

// Delete DELETE /api/resources/:name/:id.
func (h *ResourcesHandler) Delete(c *fiber.Ctx) error {
	sl, err := h.mutableSlice(c)
	if err != nil {
		return err
	}
	if err := sl.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearError DELETE /api/resources/:name/error.
func (h *ResourcesHandler) ClearError(c *fiber.Ctx) error {
	sl, err := h.slice(c)
	if err != nil {
		return err
	}
	sl.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ResourcesHandler) slice(c *fiber.Ctx) (*slice.Slice, error) {
	name := strings.TrimSpace(c.Params("name"))
	sl, err := h.store.Slice(name)
	if err != nil {
		if errors.Is(err, store.ErrUnknownResource) {
			return nil, apperrors.NewNotFound("resource "+name, nil)
		}
		return nil, err
	}
	return sl, nil
}

func (h *ResourcesHandler) mutableSlice(c *fiber.Ctx) (*slice.Slice, error) {
	sl, err := h.slice(c)
	if err != nil {
		return nil, err
	}
	if sl.Resource().ReadOnly {
		return nil, apperrors.NewDomainError("READ_ONLY", client.ErrReadOnly.Error(), fiber.StatusMethodNotAllowed, map[string]any{"resource": sl.Resource().Name})
	}
	return sl, nil
}

func parseRecord(c *fiber.Ctx) (domain.Record, error) {
	var body domain.Record
	if err := c.BodyParser(&body); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	if body == nil {
		body = domain.Record{}
	}
	return body, nil
}
