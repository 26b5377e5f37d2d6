// Package access implements the trader access gate: registration, approval,
// login and bearer tokens.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/interfaces"
	"github.com/bobmcallan/chartsage/internal/models"
)

// TraderIDPrefix starts every generated trader id.
const TraderIDPrefix = "TRADER-"

const tokenIssuer = "chartsage"

var validate = validator.New()

// Service implements AccessService
type Service struct {
	store     interfaces.TraderStore
	config    common.AuthConfig
	whitelist map[string]bool
	logger    *common.Logger
	newID     func() string
}

// NewService creates a new access service
func NewService(store interfaces.TraderStore, config common.AuthConfig, logger *common.Logger) *Service {
	whitelist := make(map[string]bool, len(config.Whitelist))
	for _, id := range config.Whitelist {
		if id = normalizeID(id); id != "" {
			whitelist[id] = true
		}
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		store:     store,
		config:    config,
		whitelist: whitelist,
		logger:    logger,
		newID:     generateTraderID,
	}
}

// generateTraderID returns TRADER- followed by eight upper-case hex digits.
func generateTraderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return TraderIDPrefix + strings.ToUpper(raw[:8])
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Register creates a pending trader for email. Registering an email twice
// returns the existing trader.
func (s *Service) Register(ctx context.Context, email string) (*models.Trader, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	if existing, err := s.store.FindByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, models.ErrTraderNotFound) {
		return nil, err
	}

	var id string
	for attempt := 0; attempt < 5; attempt++ {
		candidate := s.newID()
		if _, err := s.store.GetTrader(ctx, candidate); errors.Is(err, models.ErrTraderNotFound) {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, fmt.Errorf("could not allocate a trader id")
	}

	trader := &models.Trader{TraderID: id, Email: email}
	if err := s.store.SaveTrader(ctx, trader); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trader_id", id).Msg("Trader registered, pending approval")
	return trader, nil
}

// Login checks the trader's approval. A whitelisted id is approved (and
// persisted) on first login. The token is empty while approval is pending.
func (s *Service) Login(ctx context.Context, traderID string) (*models.Trader, string, error) {
	id := normalizeID(traderID)
	whitelisted := s.whitelist[id]

	trader, err := s.store.GetTrader(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrTraderNotFound) && whitelisted:
		trader = &models.Trader{TraderID: id}
	default:
		return nil, "", err
	}

	if whitelisted && !trader.Approved {
		trader.Approved = true
		if err := s.store.SaveTrader(ctx, trader); err != nil {
			return nil, "", err
		}
		s.logger.Info().Str("trader_id", id).Msg("Whitelisted trader approved on login")
	}

	if !trader.Approved {
		s.logger.Info().Str("trader_id", id).Msg("Login pending approval")
		return trader, "", nil
	}

	token, err := s.IssueToken(trader)
	if err != nil {
		return nil, "", err
	}
	return trader, token, nil
}

// Approve grants access to an existing trader.
func (s *Service) Approve(ctx context.Context, traderID string) (*models.Trader, error) {
	trader, err := s.store.GetTrader(ctx, normalizeID(traderID))
	if err != nil {
		return nil, err
	}
	if trader.Approved {
		return trader, nil
	}
	trader.Approved = true
	if err := s.store.SaveTrader(ctx, trader); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trader_id", trader.TraderID).Msg("Trader approved")
	return trader, nil
}

// Status returns the stored trader.
func (s *Service) Status(ctx context.Context, traderID string) (*models.Trader, error) {
	return s.store.GetTrader(ctx, normalizeID(traderID))
}

// Logout forgets the trader.
func (s *Service) Logout(ctx context.Context, traderID string) error {
	id := normalizeID(traderID)
	if err := s.store.DeleteTrader(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("trader_id", id).Msg("Trader logged out")
	return nil
}

// IssueToken signs an HMAC-SHA256 bearer token for trader.
func (s *Service) IssueToken(trader *models.Trader) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      trader.TraderID,
		"approved": trader.Approved,
		"iss":      tokenIssuer,
		"iat":      now.Unix(),
		"exp":      now.Add(s.config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyToken validates a bearer token and returns its trader id.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// Access resolves the current approval for traderID. Approval is read from
// the store on every call so revocation takes effect immediately.
func (s *Service) Access(ctx context.Context, traderID string) models.Access {
	id := normalizeID(traderID)
	result := models.Access{TraderID: id, Approved: s.whitelist[id]}
	if result.Approved || id == "" {
		return result
	}
	trader, err := s.store.GetTrader(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrTraderNotFound) {
			s.logger.Warn().Err(err).Str("trader_id", id).Msg("Approval lookup failed")
		}
		return result
	}
	result.Approved = trader.Approved
	return result
}

var _ interfaces.AccessService = (*Service)(nil)
