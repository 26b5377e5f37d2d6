package models

import "time"

// Access is the capability check handed to the orchestrator on every call.
type Access struct {
	TraderID string
	Approved bool
}

// AnalysisRequest is the immutable input to one pipeline run.
// Image is a data URI or bare base64 payload; it is empty for SCAN.
type AnalysisRequest struct {
	Mode  TradeMode `json:"mode"`
	Image string    `json:"image,omitempty"`
}

// ChartSignal is the validated form of the model's structured answer.
type ChartSignal struct {
	Signal  Signal `json:"signal" validate:"required,oneof=BUY SELL"`
	Entry   string `json:"entry" validate:"required"`
	Market  string `json:"market"`
	Warning string `json:"warning,omitempty"`
}

// AnalysisResult is the pipeline output. Fields are only ever added to it
// after construction.
type AnalysisResult struct {
	RequestID         string    `json:"request_id"`
	Signal            Signal    `json:"signal"`
	EntrySuggestion   string    `json:"entry_suggestion"`
	Market            string    `json:"market"`
	Warning           string    `json:"warning,omitempty"`
	GroundingLinks    []string  `json:"grounding_links"`
	ContinuationImage string    `json:"continuation_image,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Mode              TradeMode `json:"mode"`
	InputImage        string    `json:"input_image,omitempty"`
}

// DeskStatus is a snapshot of a trader's desk.
type DeskStatus struct {
	TraderID     string    `json:"trader_id"`
	Mode         TradeMode `json:"mode"`
	State        RunState  `json:"state"`
	RequestID    string    `json:"request_id,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	LiveActive   bool      `json:"live_active"`
	HistoryCount int       `json:"history_count"`
}

// MarketStatus reports whether the scanner may run.
type MarketStatus struct {
	Open      bool      `json:"open"`
	Condition string    `json:"condition"` // "open" or "closed"
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
