package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ShreeMohan/internal/model"
	"ShreeMohan/pkg/kit"
)

const msgBadCredentials = "Invalid username or password"

type Server struct {
	Log   *zap.Logger
	Store UserStore
	JWT   *TokenMaker
}

type loginReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Access  string     `json:"access"`
	Refresh string     `json:"refresh,omitempty"`
	User    model.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.TrimSpace(req.Email)
	}
	if username == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "username and password are required", nil)
		return
	}

	u, err := s.Store.Verify(r.Context(), username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		kit.WriteError(w, r, http.StatusUnauthorized, msgBadCredentials, nil)
		return
	}
	if err != nil {
		s.Log.Error("verify credentials", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	access, refresh, err := s.JWT.Pair(u)
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, loginResp{Access: access, Refresh: refresh, User: u.Public()})
}

// handleVerify answers whether the bearer token still names a live user.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || tok == "" {
		kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
		return
	}

	claims, err := s.JWT.Parse(tok)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", nil)
		return
	}

	u, err := s.Store.Get(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		kit.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", nil)
		return
	}
	if err != nil {
		s.Log.Error("load user", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "user": u.Public()})
}

type refreshReq struct {
	Refresh string `json:"refresh"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.Refresh == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "refresh token is required", nil)
		return
	}

	claims, err := s.JWT.ParseRefresh(req.Refresh)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", nil)
		return
	}

	u, err := s.Store.Get(r.Context(), claims.UserID)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", nil)
		return
	}

	access, err := s.JWT.Access(u)
	if err != nil {
		s.Log.Error("token issue", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}
