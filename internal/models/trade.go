// Package models defines data structures for chartsage
package models

import (
	"fmt"
	"strings"
)

// TradeMode selects how a desk interprets user input.
type TradeMode string

const (
	ModeForex  TradeMode = "FOREX"
	ModeBinary TradeMode = "BINARY" // fixed-time options
	ModeLive   TradeMode = "LIVE"   // real-time screen narration
	ModeScan   TradeMode = "SCAN"   // autonomous market scan, no chart input
)

// TradeModes lists every mode in display order.
var TradeModes = []TradeMode{ModeBinary, ModeForex, ModeLive, ModeScan}

// ParseTradeMode normalises s and returns the matching mode.
func ParseTradeMode(s string) (TradeMode, error) {
	m := TradeMode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModeForex, ModeBinary, ModeLive, ModeScan:
		return m, nil
	}
	return "", fmt.Errorf("unknown trade mode %q", s)
}

// RequiresChart reports whether the mode analyses a user-supplied chart image.
func (m TradeMode) RequiresChart() bool {
	return m == ModeForex || m == ModeBinary
}

// Signal is the directional recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

// IsValid reports whether s is BUY or SELL.
func (s Signal) IsValid() bool {
	return s == SignalBuy || s == SignalSell
}

// RunState is the lifecycle of a single analysis request.
type RunState string

const (
	StateIdle      RunState = "IDLE"
	StateRunning   RunState = "RUNNING"
	StateSucceeded RunState = "SUCCEEDED"
	StateFailed    RunState = "FAILED"
)
