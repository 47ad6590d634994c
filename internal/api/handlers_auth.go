package api

import (
	"net/http"

	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Auth Handlers ==========

// tokenResponse is the body returned by every token-issuing endpoint
func (s *RESTServer) tokenResponse(user *models.User, pair *auth.TokenPair) map[string]interface{} {
	return map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
		"user": map[string]interface{}{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
		},
	}
}

// HandleRegister handles account creation
func (s *RESTServer) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email" validate:"required,email"`
		Password    string `json:"password" validate:"required,min=6"`
		DisplayName string `json:"display_name" validate:"max=100"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := s.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if err == auth.ErrEmailTaken {
			s.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.respondDataError(w, err)
		return
	}

	// Fresh accounts get the starter portfolio.
	seedCtx := auth.WithClaims(r.Context(), &auth.Claims{UserID: user.ID})
	if err := s.data.InitializeDefaultData(seedCtx); err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, s.tokenResponse(user, pair))
}

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch err {
		case auth.ErrInvalidCredentials:
			s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		case auth.ErrAccountDisabled:
			s.respondError(w, http.StatusForbidden, "account is disabled")
		default:
			s.respondDataError(w, err)
		}
		return
	}

	// Start the synchronized cache session for this user.
	if err := s.data.OnLogin(r.Context(), user.ID.String()); err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, s.tokenResponse(user, pair))
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.respondJSON(w, http.StatusOK, s.tokenResponse(user, pair))
}

// HandleLogout handles user logout: refresh tokens die and the cache
// session is torn down.
func (s *RESTServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := s.auth.Logout(r.Context(), claims.UserID); err != nil {
		s.respondDataError(w, err)
		return
	}
	s.data.OnLogout(claims.UserID.String())

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// HandleGetCurrentUser gets the authenticated user's profile
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}
