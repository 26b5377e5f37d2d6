// Package interfaces defines service contracts for chartsage
package interfaces

import (
	"context"

	"github.com/bobmcallan/chartsage/internal/models"
)

// ChartAnalyzer issues the schema-constrained chart analysis request.
// The returned map is untrusted model output.
type ChartAnalyzer interface {
	AnalyzeChart(ctx context.Context, image string, mode models.TradeMode) (map[string]any, error)
}

// ContextEnricher gathers grounding links for a market. Callers treat it as best-effort.
type ContextEnricher interface {
	EnrichContext(ctx context.Context, market string) ([]string, error)
}

// ContinuationProjector draws the anticipated price path onto a chart.
// An empty string with a nil error means the model returned no image.
type ContinuationProjector interface {
	ProjectContinuation(ctx context.Context, image string, signal models.Signal, market string) (string, error)
}

// MarketScanner asks the model to originate a setup without a chart.
type MarketScanner interface {
	ScanMarket(ctx context.Context) (map[string]any, error)
}

// LiveConnector opens real-time sessions.
type LiveConnector interface {
	ConnectLive(ctx context.Context, callbacks models.LiveCallbacks) (LiveSession, error)
}

// LiveSession is a held-open real-time channel. Close is idempotent.
type LiveSession interface {
	SendFrame(frame models.LiveFrame) error
	Close() error
	Done() <-chan struct{}
}

// GeminiClient is the full set of model capabilities.
type GeminiClient interface {
	ChartAnalyzer
	ContextEnricher
	ContinuationProjector
	MarketScanner
	LiveConnector
}
