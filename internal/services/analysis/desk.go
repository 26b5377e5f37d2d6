package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// desk holds one trader's mode, request state, history and live session.
// At most one request is RUNNING; requestID identifies it so a completion
// that lost a race with a mode switch can be recognised and dropped.
type desk struct {
	traderID string

	mu        sync.Mutex
	mode      models.TradeMode
	state     models.RunState
	requestID string
	lastError string
	cancel    context.CancelFunc
	history   *history

	live         interfaces.LiveSession
	liveStarting bool
	liveGen      uint64
}

func newDesk(traderID string, historySize int) *desk {
	return &desk{
		traderID: traderID,
		mode:     models.ModeBinary,
		state:    models.StateIdle,
		history:  newHistory(historySize),
	}
}

func (d *desk) analyze(ctx context.Context, s *Service, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	d.mu.Lock()
	if req.Mode == "" {
		req.Mode = d.mode
	}
	if req.Mode == models.ModeLive {
		d.mu.Unlock()
		s.metrics.RecordRun(string(req.Mode), "rejected")
		return nil, models.ErrLiveMode
	}
	if d.state == models.StateRunning {
		d.mu.Unlock()
		s.metrics.RecordRun(string(req.Mode), "rejected")
		return nil, models.ErrAnalysisInProgress
	}

	var stale interfaces.LiveSession
	if req.Mode != d.mode {
		stale = d.switchModeLocked(req.Mode)
	}

	requestID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	d.requestID = requestID
	d.state = models.StateRunning
	d.lastError = ""
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	s.closeLive(stale)

	runCtx, span := s.tracer.Start(runCtx, "analysis.Analyze", trace.WithAttributes(
		attribute.String("trader_id", d.traderID),
		attribute.String("request_id", requestID),
		attribute.String("mode", string(req.Mode)),
	))
	defer span.End()

	s.logger.Info().
		Str("trader_id", d.traderID).
		Str("request_id", requestID).
		Str("mode", string(req.Mode)).
		Msg("Analysis started")

	start := time.Now()
	result, err := s.run(runCtx, requestID, req)
	return d.complete(s, span, requestID, req.Mode, result, err, time.Since(start))
}

// complete applies the outcome if requestID is still current.
func (d *desk) complete(s *Service, span trace.Span, requestID string, mode models.TradeMode, result *models.AnalysisResult, err error, elapsed time.Duration) (*models.AnalysisResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.requestID != requestID {
		s.metrics.RecordRun(string(mode), "superseded")
		span.SetStatus(codes.Error, models.ErrSuperseded.Error())
		s.logger.Info().
			Str("trader_id", d.traderID).
			Str("request_id", requestID).
			Dur("duration", elapsed).
			Msg("Analysis superseded, result discarded")
		return nil, models.ErrSuperseded
	}
	d.cancel = nil

	if err != nil {
		d.state = models.StateFailed
		d.lastError = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordRun(string(mode), "failed")

		event := s.logger.Warn()
		if !isUserError(err) {
			event = s.logger.Error()
		}
		event.Err(err).
			Str("trader_id", d.traderID).
			Str("request_id", requestID).
			Str("mode", string(mode)).
			Dur("duration", elapsed).
			Msg("Analysis failed")
		return nil, err
	}

	d.state = models.StateSucceeded
	d.history.add(*result)
	s.metrics.RecordRun(string(mode), "succeeded")
	s.logger.Info().
		Str("trader_id", d.traderID).
		Str("request_id", requestID).
		Str("mode", string(mode)).
		Str("signal", string(result.Signal)).
		Str("market", result.Market).
		Int("links", len(result.GroundingLinks)).
		Bool("projection", result.ContinuationImage != "").
		Dur("duration", elapsed).
		Msg("Analysis succeeded")

	out := *result
	return &out, nil
}

// isUserError reports failures caused by the request rather than the model.
func isUserError(err error) bool {
	return errors.Is(err, models.ErrMissingInput) || errors.Is(err, models.ErrMarketClosed)
}

// switchModeLocked sets the mode, supersedes any running request and
// detaches the live session for the caller to close outside the lock.
func (d *desk) switchModeLocked(mode models.TradeMode) interfaces.LiveSession {
	d.mode = mode
	d.supersedeLocked()
	return d.detachLiveLocked()
}

func (d *desk) supersedeLocked() {
	if d.state != models.StateRunning {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.requestID = ""
	d.state = models.StateIdle
}

func (d *desk) detachLiveLocked() interfaces.LiveSession {
	d.liveGen++
	stale := d.live
	d.live = nil
	return stale
}

func (d *desk) setMode(s *Service, mode models.TradeMode) {
	d.mu.Lock()
	if mode == d.mode {
		d.mu.Unlock()
		return
	}
	previous := d.mode
	stale := d.switchModeLocked(mode)
	d.mu.Unlock()

	s.closeLive(stale)
	s.logger.Info().
		Str("trader_id", d.traderID).
		Str("from", string(previous)).
		Str("mode", string(mode)).
		Msg("Desk mode switched")
}

func (d *desk) startLive(ctx context.Context, s *Service, callbacks models.LiveCallbacks) (interfaces.LiveSession, error) {
	d.mu.Lock()
	if d.mode != models.ModeLive {
		d.mu.Unlock()
		return nil, models.ErrWrongMode
	}
	if d.live != nil || d.liveStarting {
		d.mu.Unlock()
		return nil, models.ErrLiveActive
	}
	d.liveStarting = true
	d.liveGen++
	gen := d.liveGen
	d.mu.Unlock()

	s.metrics.LiveOpened()
	session, err := s.client.ConnectLive(ctx, d.liveCallbacks(s, gen, callbacks))

	d.mu.Lock()
	d.liveStarting = false
	if err != nil {
		d.mu.Unlock()
		s.metrics.LiveClosed()
		s.logger.Warn().Err(err).Str("trader_id", d.traderID).Msg("Live session failed to open")
		return nil, err
	}
	if gen != d.liveGen {
		// Mode switched or stop requested while dialing
		d.mu.Unlock()
		_ = session.Close()
		return nil, models.ErrSuperseded
	}
	select {
	case <-session.Done():
		d.mu.Unlock()
		return nil, errors.New("live session ended during setup")
	default:
	}
	d.live = session
	d.mu.Unlock()

	s.logger.Info().Str("trader_id", d.traderID).Msg("Live session attached to desk")
	return session, nil
}

// liveCallbacks wraps the caller's sink so the desk forgets a session that
// ends on its own.
func (d *desk) liveCallbacks(s *Service, gen uint64, cb models.LiveCallbacks) models.LiveCallbacks {
	wrapped := cb
	wrapped.OnClose = func() {
		d.mu.Lock()
		if d.liveGen == gen {
			d.live = nil
		}
		d.mu.Unlock()
		s.metrics.LiveClosed()
		if cb.OnClose != nil {
			cb.OnClose()
		}
	}
	return wrapped
}

func (d *desk) stopLive(s *Service) {
	d.mu.Lock()
	stale := d.detachLiveLocked()
	d.mu.Unlock()
	s.closeLive(stale)
}

func (d *desk) teardown(s *Service) {
	d.mu.Lock()
	d.supersedeLocked()
	stale := d.detachLiveLocked()
	d.mu.Unlock()
	s.closeLive(stale)
}

func (d *desk) historySnapshot() []models.AnalysisResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.snapshot()
}

func (d *desk) status() models.DeskStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return models.DeskStatus{
		TraderID:     d.traderID,
		Mode:         d.mode,
		State:        d.state,
		RequestID:    d.requestID,
		LastError:    d.lastError,
		LiveActive:   d.live != nil,
		HistoryCount: d.history.len(),
	}
}

func (s *Service) closeLive(session interfaces.LiveSession) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Live session close")
	}
}
