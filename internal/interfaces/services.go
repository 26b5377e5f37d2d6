// Package interfaces defines service contracts for chartsage
package interfaces

import (
	"context"

	"github.com/bobmcallan/chartsage/internal/models"
)

// AnalysisService routes trader actions to their desks.
type AnalysisService interface {
	// Analyze runs one request/response pipeline for the trader.
	Analyze(ctx context.Context, access models.Access, req models.AnalysisRequest) (*models.AnalysisResult, error)

	// SetMode switches the trader's desk mode, closing any live session.
	SetMode(traderID string, mode models.TradeMode) error

	// History returns the trader's results, newest first.
	History(traderID string) []models.AnalysisResult

	// Status snapshots the trader's desk.
	Status(traderID string) models.DeskStatus

	// StartLive opens the trader's live session.
	StartLive(ctx context.Context, access models.Access, callbacks models.LiveCallbacks) (LiveSession, error)

	// StopLive closes the trader's live session if one is open.
	StopLive(traderID string) error

	// MarketStatus reports whether the scanner is available now.
	MarketStatus() models.MarketStatus

	// Close tears down every desk.
	Close()
}

// AccessService is the trader access gate.
type AccessService interface {
	Register(ctx context.Context, email string) (*models.Trader, error)
	Login(ctx context.Context, traderID string) (*models.Trader, string, error)
	Approve(ctx context.Context, traderID string) (*models.Trader, error)
	Status(ctx context.Context, traderID string) (*models.Trader, error)
	Logout(ctx context.Context, traderID string) error
	IssueToken(trader *models.Trader) (string, error)
	VerifyToken(token string) (string, error)
	Access(ctx context.Context, traderID string) models.Access
}
