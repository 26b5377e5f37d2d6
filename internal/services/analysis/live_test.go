package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/chartsage/internal/models"
)

func liveService(t *testing.T, client *fakeClient) *Service {
	t.Helper()
	svc := newTestService(client, monday)
	require.NoError(t, svc.SetMode(approved.TraderID, models.ModeLive))
	return svc
}

func TestStartLive_RequiresApprovalAndMode(t *testing.T) {
	client := &fakeClient{}
	svc := newTestService(client, monday)

	_, err := svc.StartLive(context.Background(), models.Access{TraderID: approved.TraderID}, models.LiveCallbacks{})
	assert.ErrorIs(t, err, models.ErrNotApproved)

	_, err = svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	assert.ErrorIs(t, err, models.ErrWrongMode)
	assert.Zero(t, client.totalCalls())
}

func TestStartLive_OneSessionPerDesk(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)

	opened := 0
	session, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{OnOpen: func() { opened++ }})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 1, opened)
	assert.True(t, svc.Status(approved.TraderID).LiveActive)

	_, err = svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	assert.ErrorIs(t, err, models.ErrLiveActive)
}

func TestLive_ModeSwitchClosesSession(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)

	closed := 0
	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{OnClose: func() { closed++ }})
	require.NoError(t, err)

	require.NoError(t, svc.SetMode(approved.TraderID, models.ModeForex))
	assert.Equal(t, 1, client.session(0).closeCount())
	assert.Equal(t, 1, closed)
	assert.False(t, svc.Status(approved.TraderID).LiveActive)
}

func TestLive_AnalyzeInChartModeClosesSession(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), approved, models.AnalysisRequest{Mode: models.ModeForex, Image: testImage})
	require.NoError(t, err)
	assert.Equal(t, 1, client.session(0).closeCount())
	assert.False(t, svc.Status(approved.TraderID).LiveActive)
}

func TestLive_StopIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)

	require.NoError(t, svc.StopLive(approved.TraderID), "stopping with no session is a no-op")

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)

	require.NoError(t, svc.StopLive(approved.TraderID))
	require.NoError(t, svc.StopLive(approved.TraderID))
	assert.Equal(t, 1, client.session(0).closeCount())

	// A new session may be opened after a stop
	_, err = svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)
	assert.True(t, svc.Status(approved.TraderID).LiveActive)
}

func TestLive_RemoteEndReleasesDesk(t *testing.T) {
	client := &fakeClient{}
	reg := prometheus.NewRegistry()
	metrics := NewRecorder(reg)
	svc := newTestService(client, monday, WithMetrics(metrics))
	require.NoError(t, svc.SetMode(approved.TraderID, models.ModeLive))

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.liveSessions))

	client.session(0).remoteEnd()
	assert.False(t, svc.Status(approved.TraderID).LiveActive)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.liveSessions))

	_, err = svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)
}

func TestLive_ConnectFailure(t *testing.T) {
	boom := errors.New("handshake refused")
	client := &fakeClient{connect: func(context.Context) error { return boom }}
	svc := liveService(t, client)

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, svc.Status(approved.TraderID).LiveActive)

	client.connect = nil
	_, err = svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err, "a failed connect must not leave the desk reserved")
}

func TestLive_SwitchDuringConnectDiscardsSession(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)
	client.connect = func(context.Context) error {
		// Runs while the desk is between reservation and attach
		return svc.SetMode(approved.TraderID, models.ModeBinary)
	}

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	assert.ErrorIs(t, err, models.ErrSuperseded)
	assert.Equal(t, 1, client.session(0).closeCount())
	assert.False(t, svc.Status(approved.TraderID).LiveActive)
}

func TestClose_TearsDownEveryDesk(t *testing.T) {
	client := &fakeClient{}
	svc := liveService(t, client)
	other := models.Access{TraderID: "TRADER-OTHER001", Approved: true}
	require.NoError(t, svc.SetMode(other.TraderID, models.ModeLive))

	_, err := svc.StartLive(context.Background(), approved, models.LiveCallbacks{})
	require.NoError(t, err)
	_, err = svc.StartLive(context.Background(), other, models.LiveCallbacks{})
	require.NoError(t, err)

	svc.Close()
	svc.Close()
	assert.Equal(t, 1, client.session(0).closeCount())
	assert.Equal(t, 1, client.session(1).closeCount())
	assert.False(t, svc.Status(approved.TraderID).LiveActive)
	assert.False(t, svc.Status(other.TraderID).LiveActive)
}
