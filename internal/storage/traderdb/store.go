// Package traderdb implements TraderStore using BadgerHold.
package traderdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// Store implements interfaces.TraderStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens (or creates) the trader database at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trader db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open trader db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("TraderDB opened")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) GetTrader(_ context.Context, traderID string) (*models.Trader, error) {
	var trader models.Trader
	if err := s.db.Get(traderID, &trader); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: '%s'", models.ErrTraderNotFound, traderID)
		}
		return nil, fmt.Errorf("failed to get trader '%s': %w", traderID, err)
	}
	return &trader, nil
}

// FindByEmail returns the trader registered with email, matched case-insensitively.
func (s *Store) FindByEmail(_ context.Context, email string) (*models.Trader, error) {
	var traders []models.Trader
	if err := s.db.Find(&traders, badgerhold.Where("Email").Eq(strings.ToLower(strings.TrimSpace(email)))); err != nil {
		return nil, fmt.Errorf("failed to find trader by email: %w", err)
	}
	if len(traders) == 0 {
		return nil, fmt.Errorf("%w: no trader for %s", models.ErrTraderNotFound, email)
	}
	return &traders[0], nil
}

// SaveTrader upserts trader, keeping the original CreatedAt.
func (s *Store) SaveTrader(_ context.Context, trader *models.Trader) error {
	if trader.TraderID == "" {
		return fmt.Errorf("trader id is required")
	}
	trader.Email = strings.ToLower(strings.TrimSpace(trader.Email))

	now := time.Now()
	var existing models.Trader
	if err := s.db.Get(trader.TraderID, &existing); err == nil {
		trader.CreatedAt = existing.CreatedAt
	} else if trader.CreatedAt.IsZero() {
		trader.CreatedAt = now
	}
	trader.ModifiedAt = now

	if err := s.db.Upsert(trader.TraderID, trader); err != nil {
		return fmt.Errorf("failed to save trader '%s': %w", trader.TraderID, err)
	}
	s.logger.Debug().Str("trader_id", trader.TraderID).Bool("approved", trader.Approved).Msg("Trader saved")
	return nil
}

func (s *Store) DeleteTrader(_ context.Context, traderID string) error {
	if err := s.db.Delete(traderID, models.Trader{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete trader '%s': %w", traderID, err)
	}
	s.logger.Debug().Str("trader_id", traderID).Msg("Trader deleted")
	return nil
}

// ListTraders returns every trader ordered by id.
func (s *Store) ListTraders(_ context.Context) ([]*models.Trader, error) {
	var traders []models.Trader
	if err := s.db.Find(&traders, nil); err != nil {
		return nil, fmt.Errorf("failed to list traders: %w", err)
	}
	sort.Slice(traders, func(i, j int) bool { return traders[i].TraderID < traders[j].TraderID })

	result := make([]*models.Trader, len(traders))
	for i := range traders {
		result[i] = &traders[i]
	}
	return result, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ interfaces.TraderStore = (*Store)(nil)
