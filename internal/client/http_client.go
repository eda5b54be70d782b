// Package client talks to the admin REST backend: one credentialed HTTP
// wrapper plus thin per-resource services returning decoded bodies verbatim.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/helpdesk-admin/internal/config"
)

const maxResponseBytes = 10 << 20

// Client issues credentialed JSON and multipart requests against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// File is one multipart attachment.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

// MultipartForm is the body of a multipart request.
type MultipartForm struct {
	Fields map[string]string
	Files  []File
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// StatusCode returns the HTTP status.
func (e *HTTPError) StatusCode() int { return e.Status }

// ResponseBody returns the decoded error body.
func (e *HTTPError) ResponseBody() any { return e.Body }

// New builds a client with a cookie jar so the backend session travels with
// every request. A preset session cookie is installed when configured.
func New(cfg config.BackendConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "http://localhost:5000/api"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if cfg.SessionValue != "" {
		name := cfg.SessionCookie
		if name == "" {
			name = "token"
		}
		jar.SetCookies(baseURL, []*http.Cookie{{Name: name, Value: cfg.SessionValue, Path: "/"}})
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		logger:  logger,
	}, nil
}

// Get issues GET path?query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.send(ctx, http.MethodGet, endpoint, nil, "")
}

// Post issues a JSON POST.
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

// Put issues a JSON PUT.
func (c *Client) Put(ctx context.Context, path string, body any) (any, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// Patch issues a JSON PATCH.
func (c *Client) Patch(ctx context.Context, path string, body any) (any, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (any, error) {
	return c.send(ctx, http.MethodDelete, path, nil, "")
}

// PostMultipart issues a multipart/form-data POST.
func (c *Client) PostMultipart(ctx context.Context, path string, form MultipartForm) (any, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range form.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", key, err)
		}
	}
	for _, file := range form.Files {
		field := file.Field
		if field == "" {
			field = "attachments"
		}
		part, err := createFilePart(writer, field, file)
		if err != nil {
			return nil, fmt.Errorf("create form file %s: %w", file.Name, err)
		}
		if file.Content != nil {
			if _, err := io.Copy(part, file.Content); err != nil {
				return nil, fmt.Errorf("copy form file %s: %w", file.Name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, path, &buf, writer.FormDataContentType())
}

func createFilePart(writer *multipart.Writer, field string, file File) (io.Writer, error) {
	if file.ContentType == "" {
		return writer.CreateFormFile(field, file.Name)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", file.ContentType)
	return writer.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	return c.send(ctx, method, path, reader, "application/json")
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (any, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request error", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("backend response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(started)))

	decoded := decodeBody(raw)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{Method: method, Path: path, Status: res.StatusCode, Body: decoded}
	}
	return decoded, nil
}

// decodeBody decodes JSON keeping numbers exact; non-JSON bodies come back as text.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(trimmed)
	}
	return out
}
