package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotAuthenticated means a call needed a token and none was held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired means the server rejected the token with 401.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork wraps transport failures; nothing is retried.
	ErrNetwork = errors.New("network error")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrNotFound          = errors.New("not found in cache")
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the server. Body is the response text
// exactly as received; Message is the most specific human-readable part of it.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func readAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := string(raw)
	return &APIError{
		Status:  resp.StatusCode,
		Message: errorMessage(raw, resp.StatusCode),
		Body:    body,
	}
}

// errorMessage understands the {"error": ...} envelope of our services and the
// {"detail": ...} / {"non_field_errors": [...]} shapes older backends used.
func errorMessage(raw []byte, status int) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return http.StatusText(status)
	}

	var obj map[string]json.RawMessage
	if trimmed[0] == '{' && json.Unmarshal(trimmed, &obj) == nil {
		for _, key := range []string{"error", "detail", "message", "non_field_errors"} {
			if msg := firstString(obj[key]); msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(trimmed))
}

func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

func networkError(method, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
}
