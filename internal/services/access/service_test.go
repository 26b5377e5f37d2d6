package access

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/chartsage/internal/common"
	"github.com/bobmcallan/chartsage/internal/models"
	"github.com/bobmcallan/chartsage/internal/storage/traderdb"
)

const testSecret = "test-secret-for-access-gate"

func newTestService(t *testing.T, whitelist ...string) *Service {
	t.Helper()
	store, err := traderdb.NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(store, common.AuthConfig{
		JWTSecret:   testSecret,
		TokenExpiry: "1h",
		Whitelist:   whitelist,
	}, common.NewSilentLogger())
}

func TestGenerateTraderID(t *testing.T) {
	id := generateTraderID()
	require.True(t, strings.HasPrefix(id, TraderIDPrefix))
	suffix := strings.TrimPrefix(id, TraderIDPrefix)
	assert.Len(t, suffix, 8)
	assert.Equal(t, strings.ToUpper(suffix), suffix)
	assert.NotEqual(t, id, generateTraderID())
}

func TestRegister_CreatesPendingTrader(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	trader, err := svc.Register(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(trader.TraderID, TraderIDPrefix))
	assert.Equal(t, "ana@example.com", trader.Email)
	assert.False(t, trader.Approved)

	again, err := svc.Register(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, trader.TraderID, again.TraderID, "an email registers once")
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestService(t)
	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := svc.Register(context.Background(), email)
		assert.Error(t, err, email)
	}
}

func TestRegister_RetriesIDCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ids := []string{"TRADER-AAAAAAAA", "TRADER-AAAAAAAA", "TRADER-BBBBBBBB"}
	svc.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first, err := svc.Register(ctx, "one@example.com")
	require.NoError(t, err)
	second, err := svc.Register(ctx, "two@example.com")
	require.NoError(t, err)

	assert.Equal(t, "TRADER-AAAAAAAA", first.TraderID)
	assert.Equal(t, "TRADER-BBBBBBBB", second.TraderID)
}

func TestLogin_PendingThenApproved(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	trader, err := svc.Register(ctx, "pending@example.com")
	require.NoError(t, err)

	got, token, err := svc.Login(ctx, trader.TraderID)
	require.NoError(t, err)
	assert.False(t, got.Approved)
	assert.Empty(t, token)
	assert.False(t, svc.Access(ctx, trader.TraderID).Approved)

	_, err = svc.Approve(ctx, strings.ToLower(trader.TraderID))
	require.NoError(t, err)

	got, token, err = svc.Login(ctx, " "+strings.ToLower(trader.TraderID)+" ")
	require.NoError(t, err)
	assert.True(t, got.Approved)
	require.NotEmpty(t, token)

	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, trader.TraderID, sub)
	assert.True(t, svc.Access(ctx, sub).Approved)
}

func TestLogin_UnknownTrader(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Login(context.Background(), "TRADER-NOPE0000")
	assert.ErrorIs(t, err, models.ErrTraderNotFound)
}

func TestLogin_WhitelistPersistsApproval(t *testing.T) {
	svc := newTestService(t, "trader-eko8nsso")
	ctx := context.Background()

	trader, token, err := svc.Login(ctx, "TRADER-EKO8NSSO")
	require.NoError(t, err)
	assert.True(t, trader.Approved)
	assert.NotEmpty(t, token)

	stored, err := svc.Status(ctx, "TRADER-EKO8NSSO")
	require.NoError(t, err)
	assert.True(t, stored.Approved, "whitelist approval is persisted")
}

func TestLogout_RevokesAccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	trader, err := svc.Register(ctx, "gone@example.com")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, trader.TraderID)
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, trader.TraderID)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, trader.TraderID))

	// The token still verifies but the gate no longer approves the trader
	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.False(t, svc.Access(ctx, sub).Approved)

	_, err = svc.Status(ctx, trader.TraderID)
	assert.ErrorIs(t, err, models.ErrTraderNotFound)
}

func TestApprove_UnknownTrader(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Approve(context.Background(), "TRADER-MISSING0")
	assert.ErrorIs(t, err, models.ErrTraderNotFound)
}

func TestVerifyToken_Rejects(t *testing.T) {
	svc := newTestService(t)
	trader := &models.Trader{TraderID: "TRADER-TOKEN001", Approved: true}

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	now := time.Now()

	good, err := svc.IssueToken(trader)
	require.NoError(t, err)
	_, err = svc.VerifyToken(good)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": sign(jwt.MapClaims{"sub": trader.TraderID, "iss": tokenIssuer, "exp": now.Add(time.Hour).Unix()}, "other-secret"),
		"expired":      sign(jwt.MapClaims{"sub": trader.TraderID, "iss": tokenIssuer, "exp": now.Add(-time.Hour).Unix()}, testSecret),
		"wrong issuer": sign(jwt.MapClaims{"sub": trader.TraderID, "iss": "someone-else", "exp": now.Add(time.Hour).Unix()}, testSecret),
		"no expiry":    sign(jwt.MapClaims{"sub": trader.TraderID, "iss": tokenIssuer}, testSecret),
		"no subject":   sign(jwt.MapClaims{"iss": tokenIssuer, "exp": now.Add(time.Hour).Unix()}, testSecret),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(token)
			assert.Error(t, err)
		})
	}
}

func TestAccess_EmptyID(t *testing.T) {
	svc := newTestService(t)
	access := svc.Access(context.Background(), "")
	assert.False(t, access.Approved)
}
