package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/deskops/helpdesk-admin/internal/domain"
)

const (
	ticketCreatePath = "/ticket/create"
	ticketReplyPath  = "/ticket/%s/reply"
)

// TicketService lists tickets through the admin endpoint and creates or replies
// to tickets through multipart ticket endpoints.
type TicketService struct {
	*ResourceService
}

// NewTicketService builds the service.
func NewTicketService(c *Client, res domain.Resource) *TicketService {
	return &TicketService{ResourceService: NewResourceService(c, res)}
}

// Create submits a ticket without attachments.
func (s *TicketService) Create(ctx context.Context, payload domain.Record) (any, error) {
	return s.CreateWithAttachments(ctx, payload, nil)
}

// CreateWithAttachments submits a ticket as multipart form data.
func (s *TicketService) CreateWithAttachments(ctx context.Context, payload domain.Record, files []File) (any, error) {
	fields, err := FormFields(payload)
	if err != nil {
		return nil, err
	}
	return s.client.PostMultipart(ctx, ticketCreatePath, MultipartForm{Fields: fields, Files: files})
}

// Reply posts a reply with optional attachments to ticket id.
func (s *TicketService) Reply(ctx context.Context, id string, payload domain.Record, files []File) (any, error) {
	fields, err := FormFields(payload)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf(ticketReplyPath, url.PathEscape(strings.TrimSpace(id)))
	return s.client.PostMultipart(ctx, path, MultipartForm{Fields: fields, Files: files})
}

// FormFields flattens a record into multipart string fields. Nested values are
// JSON encoded and nil values skipped.
func FormFields(rec domain.Record) (map[string]string, error) {
	fields := make(map[string]string, len(rec))
	for key, value := range rec {
		switch typed := value.(type) {
		case nil:
			continue
		case string:
			fields[key] = typed
		case json.Number:
			fields[key] = typed.String()
		case bool:
			fields[key] = strconv.FormatBool(typed)
		case int:
			fields[key] = strconv.Itoa(typed)
		case int64:
			fields[key] = strconv.FormatInt(typed, 10)
		case float64:
			fields[key] = strconv.FormatFloat(typed, 'f', -1, 64)
		default:
			encoded, err := json.Marshal(typed)
			if err != nil {
				return nil, fmt.Errorf("encode field %s: %w", key, err)
			}
			fields[key] = string(encoded)
		}
	}
	return fields, nil
}
