package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// registerTools adds every chartsage tool to the MCP server.
func (a *App) registerTools() {
	s := a.MCPServer
	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeChartTool(), handleAnalyzeChart(a.AnalysisService, a.AccessService, a.Logger))
	s.AddTool(createScanMarketTool(), handleScanMarket(a.AnalysisService, a.AccessService, a.Logger))
	s.AddTool(createGetHistoryTool(), handleGetHistory(a.AnalysisService, a.AccessService))
	s.AddTool(createMarketStatusTool(), handleMarketStatus(a.AnalysisService))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the chartsage server version and status. Use this to verify connectivity."),
	)
}

func createAnalyzeChartTool() mcp.Tool {
	return mcp.NewTool("analyze_chart",
		mcp.WithDescription("Analyse a trading chart screenshot and return a BUY or SELL signal with an entry trigger, market-moving news links and a projected continuation image."),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("Chart image as a data URI (data:image/png;base64,...) or bare base64"),
		),
		mcp.WithString("mode",
			mcp.Description("Trade mode: BINARY (default) or FOREX"),
		),
	)
}

func createScanMarketTool() mcp.Tool {
	return mcp.NewTool("scan_market",
		mcp.WithDescription("Ask the analyst to originate a setup from current market conditions. Unavailable on weekends (UTC)."),
	)
}

func createGetHistoryTool() mcp.Tool {
	return mcp.NewTool("get_history",
		mcp.WithDescription("List the most recent analysis results for the calling trader, newest first."),
	)
}

func createMarketStatusTool() mcp.Tool {
	return mcp.NewTool("market_status",
		mcp.WithDescription("Report whether the market scanner is currently available."),
	)
}

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Chartsage MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// resolveAccess looks up the calling trader's capability. Tools without an
// authenticated trader are refused.
func resolveAccess(ctx context.Context, accessService interfaces.AccessService) (models.Access, error) {
	traderID := common.ResolveTraderID(ctx)
	if traderID == "" {
		return models.Access{}, errors.New("authentication required: send a bearer token")
	}
	return accessService.Access(ctx, traderID), nil
}

func handleAnalyzeChart(analysisService interfaces.AnalysisService, accessService interfaces.AccessService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		image, err := request.RequireString("image")
		if err != nil || image == "" {
			return errorResult("Error: image parameter is required"), nil
		}
		mode := request.GetString("mode", string(models.ModeBinary))

		access, err := resolveAccess(ctx, accessService)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := analysisService.Analyze(ctx, access, models.AnalysisRequest{
			Mode:  models.TradeMode(mode),
			Image: image,
		})
		if err != nil {
			logger.Warn().Err(err).Str("trader", access.TraderID).Msg("analyze_chart failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}
		return textResult(formatAnalysisResult(result)), nil
	}
}

func handleScanMarket(analysisService interfaces.AnalysisService, accessService interfaces.AccessService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access, err := resolveAccess(ctx, accessService)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := analysisService.Analyze(ctx, access, models.AnalysisRequest{Mode: models.ModeScan})
		if err != nil {
			logger.Warn().Err(err).Str("trader", access.TraderID).Msg("scan_market failed")
			return errorResult(fmt.Sprintf("Scan error: %v", err)), nil
		}
		return textResult(formatAnalysisResult(result)), nil
	}
}

func handleGetHistory(analysisService interfaces.AnalysisService, accessService interfaces.AccessService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access, err := resolveAccess(ctx, accessService)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		if !access.Approved {
			return errorResult(models.ErrNotApproved.Error()), nil
		}
		return textResult(formatHistory(analysisService.History(access.TraderID))), nil
	}
}

func handleMarketStatus(analysisService interfaces.AnalysisService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(formatMarketStatus(analysisService.MarketStatus())), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
