// Package analysis orchestrates chart analysis, market scans and live
// sessions for each trader desk.
package analysis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// Service implements AnalysisService. Desks are created on first use and
// share the model client.
type Service struct {
	client  interfaces.GeminiClient
	config  common.AnalysisConfig
	logger  *common.Logger
	metrics *Recorder
	tracer  trace.Tracer
	now     Clock

	mu    sync.Mutex
	desks map[string]*desk
}

// Option configures the service
type Option func(*Service)

// WithClock overrides the wall clock used by the weekend gate.
func WithClock(now Clock) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the Prometheus recorder.
func WithMetrics(r *Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService creates a new analysis service
func NewService(client interfaces.GeminiClient, config common.AnalysisConfig, logger *common.Logger, opts ...Option) *Service {
	if config.HistorySize <= 0 {
		config.HistorySize = DefaultHistorySize
	}
	if config.DefaultMarket == "" {
		config.DefaultMarket = "SPOT"
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := &Service{
		client:  client,
		config:  config,
		logger:  logger,
		metrics: NewRecorder(nil),
		tracer:  otel.Tracer(common.TracerName),
		now:     time.Now,
		desks:   make(map[string]*desk),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// desk returns the trader's desk, creating it on first use.
func (s *Service) desk(traderID string) *desk {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.desks[traderID]
	if !ok {
		d = newDesk(traderID, s.config.HistorySize)
		s.desks[traderID] = d
	}
	return d
}

// Analyze runs one request through the trader's desk.
func (s *Service) Analyze(ctx context.Context, access models.Access, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if !access.Approved {
		return nil, models.ErrNotApproved
	}
	if req.Mode != "" {
		mode, err := models.ParseTradeMode(string(req.Mode))
		if err != nil {
			return nil, err
		}
		req.Mode = mode
	}
	return s.desk(access.TraderID).analyze(ctx, s, req)
}

// SetMode switches the desk mode. Any in-flight request is superseded and
// any live session is closed.
func (s *Service) SetMode(traderID string, mode models.TradeMode) error {
	parsed, err := models.ParseTradeMode(string(mode))
	if err != nil {
		return err
	}
	s.desk(traderID).setMode(s, parsed)
	return nil
}

// History returns the desk's results, newest first.
func (s *Service) History(traderID string) []models.AnalysisResult {
	return s.desk(traderID).historySnapshot()
}

// Status snapshots the trader's desk.
func (s *Service) Status(traderID string) models.DeskStatus {
	return s.desk(traderID).status()
}

// StartLive opens a live session for a desk in LIVE mode.
func (s *Service) StartLive(ctx context.Context, access models.Access, callbacks models.LiveCallbacks) (interfaces.LiveSession, error) {
	if !access.Approved {
		return nil, models.ErrNotApproved
	}
	return s.desk(access.TraderID).startLive(ctx, s, callbacks)
}

// StopLive closes the desk's live session, if any.
func (s *Service) StopLive(traderID string) error {
	s.desk(traderID).stopLive(s)
	return nil
}

// MarketStatus reports whether the scanner is available now.
func (s *Service) MarketStatus() models.MarketStatus {
	return marketStatusAt(s.now())
}

// Close cancels in-flight requests and closes every live session.
func (s *Service) Close() {
	s.mu.Lock()
	desks := make([]*desk, 0, len(s.desks))
	for _, d := range s.desks {
		desks = append(desks, d)
	}
	s.mu.Unlock()

	for _, d := range desks {
		d.teardown(s)
	}
	s.logger.Info().Int("desks", len(desks)).Msg("Analysis service closed")
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
