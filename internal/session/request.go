package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Do is the single authenticated entry point. It attaches the bearer token
// and owns the global failure policy: no token or a 401 logs the session
// out. Every other status is returned to the caller untouched, and the
// caller must close the body.
func (c *Cache) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		c.invalidate(ctx, "", ErrNotAuthenticated)
		return nil, ErrNotAuthenticated
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, networkError(method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.log.Info("request rejected with 401", zap.String("method", method), zap.String("path", path))
		c.invalidate(ctx, token, ErrSessionExpired)
		return nil, ErrSessionExpired
	}
	return resp, nil
}

func (c *Cache) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// call performs an authenticated request and decodes a 2xx body into out
// (when out is non-nil). Non-2xx answers become *APIError.
func (c *Cache) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// listEnvelope accepts a bare JSON array as well as the {"records": [...]},
// paginated {"results": [...]} and {"data": [...]} wrappers. An object
// carrying none of those keys is an error, not an empty list.
type listEnvelope[T any] []T

var errNoList = errors.New("response object has no records, results or data list")

func (l *listEnvelope[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(b, &env); err != nil {
			return err
		}
		for _, key := range []string{"records", "results", "data"} {
			if raw, ok := env[key]; ok {
				return l.rows(raw)
			}
		}
		return errNoList
	}
	return l.rows(b)
}

func (l *listEnvelope[T]) rows(b []byte) error {
	var rows []T
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	if rows == nil {
		rows = []T{}
	}
	*l = rows
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
