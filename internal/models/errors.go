package models

import "errors"

// Pipeline error taxonomy. Callers match with errors.Is.
var (
	ErrMissingInput       = errors.New("missing input: an image is required for this mode")
	ErrMarketClosed       = errors.New("market closed: the scanner is unavailable on weekends")
	ErrMalformedResponse  = errors.New("malformed response: model output is not valid JSON")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrNotApproved        = errors.New("access not approved")
	ErrAnalysisInProgress = errors.New("an analysis is already running")
	ErrSuperseded         = errors.New("request superseded by a newer action")
	ErrLiveMode           = errors.New("LIVE mode streams through a live session, not the analysis pipeline")
	ErrLiveActive         = errors.New("a live session is already active")
	ErrWrongMode          = errors.New("operation not available in the current mode")
	ErrTraderNotFound     = errors.New("trader not found")
)
