package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type registerRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *registerRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type loginRequest struct {
	TraderID string `json:"trader_id" validate:"required"`
}

func (r *loginRequest) Normalize() {
	r.TraderID = strings.ToUpper(strings.TrimSpace(r.TraderID))
}

// loginResponse carries a token only once the trader is approved.
type loginResponse struct {
	TraderID string `json:"trader_id"`
	Approved bool   `json:"approved"`
	Token    string `json:"token,omitempty"`
}

// handleTraderRegister handles POST /api/traders/register.
func (s *Server) handleTraderRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	trader, err := s.app.AccessService.Register(r.Context(), req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, trader)
}

// handleTraderLogin handles POST /api/traders/login.
func (s *Server) handleTraderLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	trader, token, err := s.app.AccessService.Login(r.Context(), req.TraderID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, loginResponse{
		TraderID: trader.TraderID,
		Approved: trader.Approved,
		Token:    token,
	})
}

// handleTraderStatus handles GET /api/traders/status.
func (s *Server) handleTraderStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}

	trader, err := s.app.AccessService.Status(r.Context(), access.TraderID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, trader)
}

// handleTraderLogout handles POST /api/traders/logout. The account is
// removed and the trader's live session, if any, is closed.
func (s *Server) handleTraderLogout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}

	if err := s.app.AccessService.Logout(r.Context(), access.TraderID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.app.AnalysisService.StopLive(access.TraderID)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// routeTraders dispatches /api/traders/{id}/...
func (s *Server) routeTraders(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/approve") {
		s.handleTraderApprove(w, r, PathParam(r, "/api/traders/", "/approve"))
		return
	}
	WriteError(w, http.StatusNotFound, "Not found")
}

// handleTraderApprove handles POST /api/traders/{id}/approve. It requires
// the configured admin key in X-Admin-Key.
func (s *Server) handleTraderApprove(w http.ResponseWriter, r *http.Request, traderID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAdminKey(w, r) {
		return
	}
	if traderID == "" {
		WriteError(w, http.StatusBadRequest, "trader id is required")
		return
	}

	trader, err := s.app.AccessService.Approve(r.Context(), traderID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("trader_id", trader.TraderID).Msg("Trader approved via admin endpoint")
	WriteJSON(w, http.StatusOK, trader)
}

func (s *Server) requireAdminKey(w http.ResponseWriter, r *http.Request) bool {
	expected := s.app.Config.Auth.AdminKey
	if expected == "" {
		WriteError(w, http.StatusForbidden, "Admin endpoints are disabled: no admin key configured")
		return false
	}
	provided := r.Header.Get("X-Admin-Key")
	if provided == "" {
		WriteError(w, http.StatusUnauthorized, "Admin key required")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		WriteError(w, http.StatusForbidden, "Invalid admin key")
		return false
	}
	return true
}
