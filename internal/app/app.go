// Package app wires configuration, storage, the model client and services
// into the shared core used by cmd/chartsage-server and cmd/chartsage.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bobmcallan/chartsage/internal/clients/gemini"
	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
	"github.com/bobmcallan/chartsage/internal/services/access"
	"github.com/bobmcallan/chartsage/internal/services/analysis"
	"github.com/bobmcallan/chartsage/internal/storage/traderdb"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	TraderStore     interfaces.TraderStore
	GeminiClient    interfaces.GeminiClient
	AnalysisService interfaces.AnalysisService
	AccessService   interfaces.AccessService
	MCPServer       *server.MCPServer
	Registry        *prometheus.Registry
	StartupTime     time.Time

	shutdownTracing func(context.Context) error
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, CHARTSAGE_CONFIG, the binary
// directory, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("CHARTSAGE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "chartsage.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/chartsage.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every dependency.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	binDir := getBinaryDir()
	if config.Storage.Traders.Path != "" && !filepath.IsAbs(config.Storage.Traders.Path) {
		config.Storage.Traders.Path = filepath.Join(binDir, config.Storage.Traders.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	if missing := config.ValidateRequired(); len(missing) > 0 {
		if config.IsProduction() {
			return nil, fmt.Errorf("missing required configuration: %v", missing)
		}
		logger.Warn().Strs("keys", missing).Msg("Required configuration not set, using development defaults")
	}

	shutdownTracing, err := common.InitTracing(config.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store, err := traderdb.NewStore(logger, config.Storage.Traders.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var client interfaces.GeminiClient = unconfiguredClient{}
	geminiCfg := config.Clients.Gemini
	if geminiCfg.APIKey != "" {
		gc, err := gemini.NewClient(context.Background(), geminiCfg.APIKey,
			gemini.WithLogger(logger),
			gemini.WithAnalysisModel(geminiCfg.AnalysisModel),
			gemini.WithImageModel(geminiCfg.ImageModel),
			gemini.WithLiveModel(geminiCfg.LiveModel),
			gemini.WithVoice(geminiCfg.Voice),
			gemini.WithTimeout(geminiCfg.GetTimeout()),
			gemini.WithRateLimit(geminiCfg.RateLimit),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			client = gc
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - analysis will be unavailable")
	}

	a := New(config, logger, client, store)
	a.StartupTime = startupStart
	a.shutdownTracing = shutdownTracing

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// New assembles an App from already-built dependencies.
func New(config *common.Config, logger *common.Logger, client interfaces.GeminiClient, store interfaces.TraderStore) *App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	analysisService := analysis.NewService(client, config.Analysis, logger,
		analysis.WithMetrics(analysis.NewRecorder(registry)),
	)
	accessService := access.NewService(store, config.Auth, logger)

	mcpServer := server.NewMCPServer(
		"chartsage",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:          config,
		Logger:          logger,
		TraderStore:     store,
		GeminiClient:    client,
		AnalysisService: analysisService,
		AccessService:   accessService,
		MCPServer:       mcpServer,
		Registry:        registry,
		StartupTime:     time.Now(),
	}
	a.registerTools()
	return a
}

// Close releases all resources held by the App.
// Shutdown order: desks (live sessions), storage, tracing.
func (a *App) Close() {
	if a.AnalysisService != nil {
		a.AnalysisService.Close()
		a.AnalysisService = nil
	}
	if a.TraderStore != nil {
		if err := a.TraderStore.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Trader store close failed")
		}
		a.TraderStore = nil
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Tracing shutdown failed")
		}
		a.shutdownTracing = nil
	}
}

// errGeminiUnconfigured is returned by every model call when no API key is set.
var errGeminiUnconfigured = errors.New("gemini API key not configured")

// unconfiguredClient stands in when no API key is set.
type unconfiguredClient struct{}

func (unconfiguredClient) AnalyzeChart(context.Context, string, models.TradeMode) (map[string]any, error) {
	return nil, errGeminiUnconfigured
}

func (unconfiguredClient) EnrichContext(context.Context, string) ([]string, error) {
	return nil, errGeminiUnconfigured
}

func (unconfiguredClient) ProjectContinuation(context.Context, string, models.Signal, string) (string, error) {
	return "", errGeminiUnconfigured
}

func (unconfiguredClient) ScanMarket(context.Context) (map[string]any, error) {
	return nil, errGeminiUnconfigured
}

func (unconfiguredClient) ConnectLive(context.Context, models.LiveCallbacks) (interfaces.LiveSession, error) {
	return nil, errGeminiUnconfigured
}
