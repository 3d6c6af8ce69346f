package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ShreeMohan/internal/model"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access      string      `json:"access"`
	AccessToken string      `json:"access_token"`
	Refresh     string      `json:"refresh"`
	User        *model.User `json:"user"`
}

type verifyResponse struct {
	User *model.User `json:"user"`
}

// Login exchanges credentials for tokens. Session state changes only on
// success; a rejected or failed attempt leaves whatever session existed.
// On success the three collections are reloaded before Login returns.
func (c *Cache) Login(ctx context.Context, username, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.LoginPath, credentials{Username: username, Password: password})
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return networkError(http.MethodPost, c.cfg.LoginPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	access := lr.Access
	if access == "" {
		access = lr.AccessToken
	}
	if access == "" {
		return &APIError{Status: resp.StatusCode, Message: "login response carried no access token"}
	}

	c.mu.Lock()
	c.state = Authenticated
	c.token, c.refresh, c.user = access, lr.Refresh, lr.User
	c.products, c.orders, c.sales = nil, nil, nil
	c.epoch++
	c.mu.Unlock()

	if err := c.tokens.Save(ctx, Tokens{Access: access, Refresh: lr.Refresh}); err != nil {
		c.log.Warn("persist tokens failed", zap.Error(err))
	}

	c.log.Info("logged in", zap.String("username", username))
	c.publish(Event{Kind: SessionStarted, User: lr.User})

	c.Reload(ctx)
	return nil
}

// VerifySessionOnStartup revalidates a persisted token. It does its work only
// on the first call; later calls return immediately.
func (c *Cache) VerifySessionOnStartup(ctx context.Context) {
	c.startup.Do(func() { c.verify(ctx) })
}

func (c *Cache) verify(ctx context.Context) {
	stored, err := c.tokens.Load(ctx)
	if err != nil {
		c.log.Warn("load persisted tokens failed", zap.Error(err))
		c.Logout(ctx)
		return
	}
	if stored.Access == "" {
		return
	}

	c.mu.Lock()
	c.state = Verifying
	c.token, c.refresh = stored.Access, stored.Refresh
	c.epoch++
	c.mu.Unlock()

	user, err := c.fetchVerifiedUser(ctx, stored.Access)
	if err != nil {
		c.log.Info("stored session rejected", zap.Error(err))
		c.invalidate(ctx, stored.Access, ErrSessionExpired)
		return
	}

	c.mu.Lock()
	if c.token != stored.Access {
		// logged out or replaced while verifying
		c.mu.Unlock()
		return
	}
	c.state = Authenticated
	c.user = user
	c.mu.Unlock()

	c.publish(Event{Kind: SessionStarted, User: user})
	c.Reload(ctx)
}

func (c *Cache) fetchVerifiedUser(ctx context.Context, token string) (*model.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.cfg.VerifyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, networkError(http.MethodGet, c.cfg.VerifyPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return vr.User, nil
}
