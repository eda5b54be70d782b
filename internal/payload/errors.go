package payload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorPayload is the display-ready form of any failure surfaced by a slice.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"status,omitempty"`
	Details any    `json:"details,omitempty"`
	err     error
}

func (e *ErrorPayload) Error() string {
	return e.Message
}

func (e *ErrorPayload) Unwrap() error {
	return e.err
}

// Error codes assigned by NormalizeError.
const (
	CodeTransport    = "TRANSPORT_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeCancelled    = "CANCELLED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeUnrecognized = "UNRECOGNIZED_RESPONSE"
)

// ResponseError is implemented by transport errors that carry an HTTP response.
type ResponseError interface {
	error
	StatusCode() int
	ResponseBody() any
}

// NewErrorPayload wraps err with an explicit message and code.
func NewErrorPayload(code, message string, err error) *ErrorPayload {
	if strings.TrimSpace(message) == "" {
		message = "request failed"
	}
	return &ErrorPayload{Code: code, Message: message, err: err}
}

// NormalizeError converts any failure into an ErrorPayload with a non-empty message.
func NormalizeError(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	var existing *ErrorPayload
	if errors.As(err, &existing) {
		return existing
	}

	var respErr ResponseError
	if errors.As(err, &respErr) {
		return fromResponse(respErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorPayload(CodeTimeout, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return NewErrorPayload(CodeCancelled, "request cancelled", err)
	case errors.Is(err, ErrUnrecognizedShape):
		return NewErrorPayload(CodeUnrecognized, err.Error(), err)
	}
	return NewErrorPayload(CodeTransport, err.Error(), err)
}

func fromResponse(respErr ResponseError) *ErrorPayload {
	status := respErr.StatusCode()
	out := &ErrorPayload{Code: CodeUpstream, Status: status, err: respErr}

	body, _ := respErr.ResponseBody().(map[string]any)
	out.Message = messageFromBody(body)
	if code, ok := nestedError(body)["code"].(string); ok && code != "" {
		out.Code = code
	}
	if details, ok := body["errors"]; ok {
		out.Details = details
	} else if details, ok := nestedError(body)["details"]; ok {
		out.Details = details
	}

	if out.Message == "" {
		if text, ok := respErr.ResponseBody().(string); ok && strings.TrimSpace(text) != "" {
			out.Message = strings.TrimSpace(text)
		} else if statusText := http.StatusText(status); statusText != "" {
			out.Message = fmt.Sprintf("request failed with status %d (%s)", status, statusText)
		} else {
			out.Message = fmt.Sprintf("request failed with status %d", status)
		}
	}
	return out
}

func messageFromBody(body map[string]any) string {
	if body == nil {
		return ""
	}
	if msg := trimmedString(body["message"]); msg != "" {
		return msg
	}
	if msg := trimmedString(body["error"]); msg != "" {
		return msg
	}
	if msg := trimmedString(nestedError(body)["message"]); msg != "" {
		return msg
	}
	if list, ok := body["errors"].([]any); ok && len(list) > 0 {
		switch first := list[0].(type) {
		case string:
			return strings.TrimSpace(first)
		case map[string]any:
			return trimmedString(first["message"])
		}
	}
	return ""
}

func nestedError(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	nested, _ := body["error"].(map[string]any)
	return nested
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
