// Package interfaces defines service contracts for chartsage
package interfaces

import (
	"context"

	"github.com/bobmcallan/chartsage/internal/models"
)

// TraderStore persists access-gate accounts.
type TraderStore interface {
	GetTrader(ctx context.Context, traderID string) (*models.Trader, error)
	FindByEmail(ctx context.Context, email string) (*models.Trader, error)
	SaveTrader(ctx context.Context, trader *models.Trader) error
	DeleteTrader(ctx context.Context, traderID string) error
	ListTraders(ctx context.Context) ([]*models.Trader, error)
	Close() error
}
