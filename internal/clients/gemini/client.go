// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
)

const (
	DefaultAnalysisModel = "gemini-3-flash-preview"
	DefaultImageModel    = "gemini-2.5-flash-image"
	DefaultLiveModel     = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice         = "Puck"
	DefaultTimeout       = 90 * time.Second
)

// generator is the subset of *genai.Models the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// liveDialer opens a real-time connection for the given model.
type liveDialer func(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveConn, error)

// Client implements the GeminiClient interface
type Client struct {
	models        generator
	dial          liveDialer
	analysisModel string
	imageModel    string
	liveModel     string
	voice         string
	timeout       time.Duration
	limiter       *rate.Limiter
	logger        *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithAnalysisModel sets the model used for analysis, enrichment and scans
func WithAnalysisModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.analysisModel = model
		}
	}
}

// WithImageModel sets the image-generating model used for projections
func WithImageModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithLiveModel sets the real-time model
func WithLiveModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.liveModel = model
		}
	}
}

// WithVoice sets the prebuilt voice for live sessions
func WithVoice(voice string) ClientOption {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithTimeout bounds each generate call
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets requests per second across all generate calls
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	dial := func(ctx context.Context, model string, config *genai.LiveConnectConfig) (liveConn, error) {
		session, err := genaiClient.Live.Connect(ctx, model, config)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	return newClient(genaiClient.Models, dial, opts...), nil
}

func newClient(models generator, dial liveDialer, opts ...ClientOption) *Client {
	c := &Client{
		models:        models,
		dial:          dial,
		analysisModel: DefaultAnalysisModel,
		imageModel:    DefaultImageModel,
		liveModel:     DefaultLiveModel,
		voice:         DefaultVoice,
		timeout:       DefaultTimeout,
		logger:        common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// generate waits on the rate limiter and issues one bounded generate call.
func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.models.GenerateContent(ctx, model, contents, config)
	c.logger.Debug().
		Str("model", model).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Gemini generate")
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty response from %s", model)
	}
	return result, nil
}

// extractTextFromResponse concatenates the text parts of the first candidate
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

// Ensure Client implements GeminiClient
var _ interfaces.GeminiClient = (*Client)(nil)
