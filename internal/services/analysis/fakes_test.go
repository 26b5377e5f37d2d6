package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

const testImage = "data:image/png;base64,iVBORw0KGgo="

var (
	monday   = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	saturday = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	sunday   = time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
)

var approved = models.Access{TraderID: "TRADER-TEST0001", Approved: true}

// fakeClient records calls and delegates to optional behaviour funcs.
type fakeClient struct {
	mu           sync.Mutex
	analyzeCalls int
	enrichCalls  int
	projectCalls int
	scanCalls    int
	liveCalls    int
	sessions     []*fakeSession

	analyze func(ctx context.Context, image string, mode models.TradeMode) (map[string]any, error)
	enrich  func(ctx context.Context, market string) ([]string, error)
	project func(ctx context.Context, image string, signal models.Signal, market string) (string, error)
	scan    func(ctx context.Context) (map[string]any, error)
	connect func(ctx context.Context) error
}

func (f *fakeClient) AnalyzeChart(ctx context.Context, image string, mode models.TradeMode) (map[string]any, error) {
	f.mu.Lock()
	f.analyzeCalls++
	fn := f.analyze
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, image, mode)
	}
	return map[string]any{"signal": "BUY", "entry": "Next M5 candle", "market": "EUR/USD"}, nil
}

func (f *fakeClient) EnrichContext(ctx context.Context, market string) ([]string, error) {
	f.mu.Lock()
	f.enrichCalls++
	fn := f.enrich
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, market)
	}
	return []string{"https://news.example/" + market}, nil
}

func (f *fakeClient) ProjectContinuation(ctx context.Context, image string, signal models.Signal, market string) (string, error) {
	f.mu.Lock()
	f.projectCalls++
	fn := f.project
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, image, signal, market)
	}
	return "data:image/png;base64,cHJvamVjdGlvbg==", nil
}

func (f *fakeClient) ScanMarket(ctx context.Context) (map[string]any, error) {
	f.mu.Lock()
	f.scanCalls++
	fn := f.scan
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return map[string]any{"signal": "SELL", "entry": "Below 1.2650", "market": "GBP/USD", "warning": "BoE minutes"}, nil
}

func (f *fakeClient) ConnectLive(ctx context.Context, callbacks models.LiveCallbacks) (interfaces.LiveSession, error) {
	f.mu.Lock()
	f.liveCalls++
	fn := f.connect
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx); err != nil {
			return nil, err
		}
	}
	s := &fakeSession{callbacks: callbacks, done: make(chan struct{})}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	if callbacks.OnOpen != nil {
		callbacks.OnOpen()
	}
	return s, nil
}

func (f *fakeClient) calls() (analyze, enrich, project, scan int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls, f.enrichCalls, f.projectCalls, f.scanCalls
}

func (f *fakeClient) totalCalls() int {
	a, e, p, s := f.calls()
	f.mu.Lock()
	defer f.mu.Unlock()
	return a + e + p + s + f.liveCalls
}

func (f *fakeClient) session(i int) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

type fakeSession struct {
	callbacks models.LiveCallbacks
	once      sync.Once
	mu        sync.Mutex
	closes    int
	frames    []models.LiveFrame
	done      chan struct{}
}

func (s *fakeSession) SendFrame(frame models.LiveFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.end()
	return nil
}

// remoteEnd simulates the server ending the session.
func (s *fakeSession) remoteEnd() {
	s.end()
}

func (s *fakeSession) end() {
	first := false
	s.once.Do(func() {
		first = true
		close(s.done)
	})
	if first && s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func newTestService(client *fakeClient, now time.Time, opts ...Option) *Service {
	cfg := common.AnalysisConfig{
		HistorySize:       10,
		Enrichment:        true,
		EnrichmentTimeout: "2s",
		ProjectionTimeout: "2s",
		DefaultMarket:     "SPOT",
	}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewService(client, cfg, common.NewSilentLogger(), opts...)
}
