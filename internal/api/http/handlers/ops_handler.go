package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/api/dto"
	"github.com/deskops/helpdesk-admin/internal/observability"
	"github.com/deskops/helpdesk-admin/internal/service"
	apperrors "github.com/deskops/helpdesk-admin/pkg/util/errorutil"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// OpsHandler serves the mutation journal and in-process metrics.
type OpsHandler struct {
	journal *service.JournalService
	metrics *observability.Metrics
}

// NewOpsHandler constructs handler.
func NewOpsHandler(journal *service.JournalService, metrics *observability.Metrics) *OpsHandler {
	return &OpsHandler{journal: journal, metrics: metrics}
}

// Journal GET /api/journal?resource=&limit=.
func (h *OpsHandler) Journal(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultJournalLimit)
	if limit <= 0 || limit > maxJournalLimit {
		return apperrors.NewValidationError("limit out of range", map[string]any{"max": maxJournalLimit})
	}
	entries, err := h.journal.List(c.UserContext(), c.Query("resource"), limit)
	if err != nil {
		if errors.Is(err, service.ErrJournalDisabled) {
			return apperrors.NewDomainError("JOURNAL_DISABLED", err.Error(), fiber.StatusServiceUnavailable, nil)
		}
		return err
	}
	items := make([]dto.JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewJournalEntryResponse(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Metrics GET /api/metrics.
func (h *OpsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
