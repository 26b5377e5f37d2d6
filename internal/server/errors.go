package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/models"
)

// errorStatus maps a pipeline or access error to its HTTP status and code.
// Order matters: a malformed model answer is also an analysis failure.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrMalformedResponse, http.StatusBadGateway, "malformed_response"},
	{models.ErrAnalysisFailed, http.StatusBadGateway, "analysis_failed"},
	{models.ErrNotApproved, http.StatusForbidden, "not_approved"},
	{models.ErrMissingInput, http.StatusBadRequest, "missing_input"},
	{models.ErrLiveMode, http.StatusBadRequest, "live_mode"},
	{models.ErrWrongMode, http.StatusBadRequest, "wrong_mode"},
	{models.ErrAnalysisInProgress, http.StatusConflict, "analysis_in_progress"},
	{models.ErrSuperseded, http.StatusConflict, "superseded"},
	{models.ErrLiveActive, http.StatusConflict, "live_active"},
	{models.ErrMarketClosed, http.StatusConflict, "market_closed"},
	{models.ErrTraderNotFound, http.StatusNotFound, "trader_not_found"},
}

// statusForError returns the HTTP status and code for err.
func statusForError(err error) (int, string) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError writes err with the mapped status. The message is the
// error text so clients can show the cause verbatim.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	event := s.logger.Warn()
	if status >= 500 {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("path", r.URL.Path).
		Str("code", code).
		Str("trader_id", common.ResolveTraderID(r.Context())).
		Msg("Request failed")
	WriteErrorWithCode(w, status, err.Error(), code)
}
