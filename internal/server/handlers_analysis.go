package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/chartsage/internal/models"
)

// analysisRequest is the POST /api/analysis body. An empty mode runs in the
// desk's current mode.
type analysisRequest struct {
	Mode  string `json:"mode" validate:"omitempty,oneof=FOREX BINARY LIVE SCAN"`
	Image string `json:"image"`
}

func (r *analysisRequest) Normalize() {
	r.Mode = strings.ToUpper(strings.TrimSpace(r.Mode))
}

// modeRequest is the PUT /api/mode body.
type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=FOREX BINARY LIVE SCAN"`
}

func (r *modeRequest) Normalize() {
	r.Mode = strings.ToUpper(strings.TrimSpace(r.Mode))
}

// handleAnalysis handles POST /api/analysis.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}

	var req analysisRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.app.AnalysisService.Analyze(r.Context(), access, models.AnalysisRequest{
		Mode:  models.TradeMode(req.Mode),
		Image: req.Image,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleMode handles PUT /api/mode. Switching closes any live session and
// supersedes an in-flight request.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}
	if !access.Approved {
		s.writeServiceError(w, r, models.ErrNotApproved)
		return
	}

	var req modeRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	if err := s.app.AnalysisService.SetMode(access.TraderID, models.TradeMode(req.Mode)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.app.AnalysisService.Status(access.TraderID))
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}
	if !access.Approved {
		s.writeServiceError(w, r, models.ErrNotApproved)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": s.app.AnalysisService.History(access.TraderID),
	})
}

// handleDesk handles GET /api/desk.
func (s *Server) handleDesk(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	access, ok := requireTrader(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.AnalysisService.Status(access.TraderID))
}

// handleMarketStatus handles GET /api/market/status.
func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.AnalysisService.MarketStatus())
}
