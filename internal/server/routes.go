package server

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/models"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)
	mux.Handle("/metrics", promhttp.HandlerFor(s.app.Registry, promhttp.HandlerOpts{}))

	// Traders
	mux.HandleFunc("/api/traders/register", s.handleTraderRegister)
	mux.HandleFunc("/api/traders/login", s.handleTraderLogin)
	mux.HandleFunc("/api/traders/status", s.handleTraderStatus)
	mux.HandleFunc("/api/traders/logout", s.handleTraderLogout)
	mux.HandleFunc("/api/traders/", s.routeTraders)

	// Analysis desk
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/mode", s.handleMode)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/desk", s.handleDesk)
	mux.HandleFunc("/api/market/status", s.handleMarketStatus)
	mux.HandleFunc("/api/live", s.handleLive)

	// MCP
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(traderContextFunc),
	))
}

// traderContextFunc carries the bearer-resolved trader into tool handlers.
func traderContextFunc(ctx context.Context, r *http.Request) context.Context {
	if tc := common.TraderContextFromContext(r.Context()); tc != nil {
		return common.WithTraderContext(ctx, tc)
	}
	return ctx
}

// requireTrader returns the caller's access or writes a 401 challenge.
func requireTrader(w http.ResponseWriter, r *http.Request) (models.Access, bool) {
	tc := common.TraderContextFromContext(r.Context())
	if tc == nil || tc.TraderID == "" {
		writeBearerChallenge(w, "invalid_request", "bearer token required")
		return models.Access{}, false
	}
	return models.Access{TraderID: tc.TraderID, Approved: tc.Approved}, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}
