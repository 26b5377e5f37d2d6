package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bobmcallan/chartsage/internal/models"
)

// Pipeline stage names, used for spans, metrics and log fields.
const (
	stageAnalyze    = "analyze"
	stageScan       = "scan"
	stageProjection = "projection"
	stageEnrichment = "enrichment"
)

func (s *Service) run(ctx context.Context, requestID string, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	switch {
	case req.Mode == models.ModeScan:
		return s.runScan(ctx, requestID)
	case req.Mode.RequiresChart():
		return s.runChart(ctx, requestID, req)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrWrongMode, req.Mode)
	}
}

// runScan originates a setup without a chart. It is gated on the weekend
// rule before any network call and is never enriched.
func (s *Service) runScan(ctx context.Context, requestID string) (*models.AnalysisResult, error) {
	if !IsMarketOpen(s.now()) {
		return nil, models.ErrMarketClosed
	}

	raw, err := timed(ctx, s, stageScan, s.client.ScanMarket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAnalysisFailed, err)
	}

	sig, err := decodeSignal(raw, s.config.DefaultMarket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAnalysisFailed, err)
	}

	return s.newResult(requestID, models.ModeScan, sig), nil
}

// runChart analyses the chart, then runs projection and enrichment side by
// side. Neither side call can fail the request.
func (s *Service) runChart(ctx context.Context, requestID string, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, models.ErrMissingInput
	}

	raw, err := timed(ctx, s, stageAnalyze, func(ctx context.Context) (map[string]any, error) {
		return s.client.AnalyzeChart(ctx, req.Image, req.Mode)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAnalysisFailed, err)
	}

	sig, err := decodeSignal(raw, s.config.DefaultMarket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAnalysisFailed, err)
	}

	result := s.newResult(requestID, req.Mode, sig)
	result.InputImage = req.Image

	var (
		wg    sync.WaitGroup
		image string
		links []string
	)
	s.bestEffort(&wg, requestID, stageProjection, func() {
		image = s.project(ctx, requestID, req.Image, sig)
	})
	if s.config.Enrichment {
		s.bestEffort(&wg, requestID, stageEnrichment, func() {
			links = s.enrich(ctx, requestID, sig.Market)
		})
	}
	wg.Wait()

	result.ContinuationImage = image
	if links != nil {
		result.GroundingLinks = links
	}
	return result, nil
}

func (s *Service) newResult(requestID string, mode models.TradeMode, sig models.ChartSignal) *models.AnalysisResult {
	return &models.AnalysisResult{
		RequestID:       requestID,
		Signal:          sig.Signal,
		EntrySuggestion: sig.Entry,
		Market:          sig.Market,
		Warning:         sig.Warning,
		GroundingLinks:  []string{},
		Timestamp:       s.now().UTC(),
		Mode:            mode,
	}
}

func (s *Service) project(ctx context.Context, requestID, image string, sig models.ChartSignal) string {
	ctx, cancel := context.WithTimeout(ctx, s.config.GetProjectionTimeout())
	defer cancel()

	img, err := timed(ctx, s, stageProjection, func(ctx context.Context) (string, error) {
		return s.client.ProjectContinuation(ctx, image, sig.Signal, sig.Market)
	})
	if err != nil {
		s.sideFailure(requestID, stageProjection, sig.Market, err)
		return ""
	}
	return img
}

func (s *Service) enrich(ctx context.Context, requestID, market string) []string {
	ctx, cancel := context.WithTimeout(ctx, s.config.GetEnrichmentTimeout())
	defer cancel()

	links, err := timed(ctx, s, stageEnrichment, func(ctx context.Context) ([]string, error) {
		return s.client.EnrichContext(ctx, market)
	})
	if err != nil {
		s.sideFailure(requestID, stageEnrichment, market, err)
		return nil
	}
	return links
}

func (s *Service) sideFailure(requestID, stage, market string, err error) {
	s.metrics.RecordSideFailure(stage)
	s.logger.Warn().
		Err(err).
		Str("request_id", requestID).
		Str("stage", stage).
		Str("market", market).
		Msg("Best-effort stage failed, continuing without it")
}

// bestEffort runs fn on its own goroutine. A panic is logged and treated as
// an absent result.
func (s *Service) bestEffort(wg *sync.WaitGroup, requestID, stage string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.metrics.RecordSideFailure(stage)
				s.logger.Error().
					Str("request_id", requestID).
					Str("stage", stage).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in best-effort stage")
			}
		}()
		fn()
	}()
}

// timed wraps one model call in a span and a latency observation.
func timed[T any](ctx context.Context, s *Service, stage string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "analysis."+stage, trace.WithAttributes(attribute.String("stage", stage)))
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	elapsed := time.Since(start)
	s.metrics.RecordStage(stage, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logger.Debug().
		Str("stage", stage).
		Dur("duration", elapsed).
		Bool("ok", err == nil).
		Msg("Pipeline stage finished")
	return v, err
}
