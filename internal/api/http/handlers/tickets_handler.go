package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/api/dto"
	"github.com/deskops/helpdesk-admin/internal/client"
	"github.com/deskops/helpdesk-admin/internal/domain"
	"github.com/deskops/helpdesk-admin/internal/store"
	apperrors "github.com/deskops/helpdesk-admin/pkg/util/errorutil"
)

const maxAttachmentBytes = 10 << 20

// TicketsHandler relays multipart ticket submissions and system toggles.
type TicketsHandler struct {
	store *store.Store
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(st *store.Store) *TicketsHandler {
	return &TicketsHandler{store: st}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	fields, files, err := readMultipart(c)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return apperrors.NewValidationError("ticket fields required", nil)
	}
	rec, err := h.store.CreateTicket(c.UserContext(), fields, files)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": rec})
}

// Reply POST /api/tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	fields, files, err := readMultipart(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(asString(fields["message"])) == "" && len(files) == 0 {
		return apperrors.NewValidationError("message or attachment required", nil)
	}
	rec, err := h.store.ReplyTicket(c.UserContext(), c.Params("id"), fields, files)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec, "matched": rec != nil})
}

// SetSystemStatus PATCH /api/systems/:id/status.
func (h *TicketsHandler) SetSystemStatus(c *fiber.Ctx) error {
	var req dto.SystemStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.IsActive == nil {
		return apperrors.NewValidationError("is_active required", nil)
	}
	rec, err := h.store.SetSystemStatus(c.UserContext(), c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rec, "matched": rec != nil})
}

func readMultipart(c *fiber.Ctx) (domain.Record, []client.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, apperrors.NewValidationError("multipart form required", nil)
	}
	fields := domain.Record{}
	for key, values := range form.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	var files []client.File
	for field, headers := range form.File {
		for _, fh := range headers {
			file, err := readPart(field, fh)
			if err != nil {
				return nil, nil, err
			}
			files = append(files, file)
		}
	}
	return fields, files, nil
}

func readPart(field string, fh *multipart.FileHeader) (client.File, error) {
	if fh.Size > maxAttachmentBytes {
		return client.File{}, apperrors.NewValidationError("attachment too large", map[string]any{"file": fh.Filename})
	}
	f, err := fh.Open()
	if err != nil {
		return client.File{}, apperrors.NewInternalError(err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return client.File{}, apperrors.NewInternalError(err)
	}
	return client.File{
		Field:       field,
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     bytes.NewReader(content),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
