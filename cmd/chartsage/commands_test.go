package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

// runCLI executes the root command against serverURL and returns stdout.
func runCLI(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

const resultJSON = `{"request_id":"r-1","signal":"SELL","entry_suggestion":"Retest of 1.2650","market":"GBP/USD","grounding_links":["https://news.example/boe"],"timestamp":"2026-10-19T09:30:00Z","mode":"FOREX"}`

func TestAnalyzeCmd_SendsImageAndPrintsResult(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analysis", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resultJSON))
	}))
	defer ts.Close()

	path := writeFile(t, "chart.png", pngBytes)
	out, err := runCLI(t, ts.URL, "--token", "tok-1", "analyze", "--mode", "FOREX", path)
	require.NoError(t, err)

	assert.Equal(t, "FOREX", got["mode"])
	assert.True(t, strings.HasPrefix(got["image"], "data:image/png;base64,"))
	assert.Contains(t, out, "SELL  GBP/USD")
	assert.Contains(t, out, "Retest of 1.2650")
	assert.Contains(t, out, "https://news.example/boe")
}

func TestAnalyzeCmd_JSONOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultJSON))
	}))
	defer ts.Close()

	out, err := runCLI(t, ts.URL, "--json", "analyze", writeFile(t, "chart.png", pngBytes))
	require.NoError(t, err)
	assert.JSONEq(t, resultJSON, out)
}

func TestAnalyzeCmd_RejectsNonImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer ts.Close()

	_, err := runCLI(t, ts.URL, "analyze", writeFile(t, "notes.txt", []byte("just text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not look like an image")
}

func TestScanCmd_SurfacesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "SCAN", body["mode"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"market closed: the scanner is unavailable on weekends","code":"market_closed"}`))
	}))
	defer ts.Close()

	_, err := runCLI(t, ts.URL, "scan")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "market_closed", apiErr.Code)
}

func TestModeCmd_ValidatesLocally(t *testing.T) {
	_, err := runCLI(t, "http://127.0.0.1:0", "mode", "crypto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trade mode")
}

func TestTraderLogin_PrintsExportWhenApproved(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["trader_id"] == "TRADER-AAAA0000" {
			w.Write([]byte(`{"trader_id":"TRADER-AAAA0000","approved":true,"token":"jwt-xyz"}`))
			return
		}
		w.Write([]byte(`{"trader_id":"` + body["trader_id"] + `","approved":false}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, ts.URL, "trader", "login", "TRADER-AAAA0000")
	require.NoError(t, err)
	assert.Equal(t, "export CHARTSAGE_TOKEN=jwt-xyz\n", out)

	out, err = runCLI(t, ts.URL, "trader", "login", "TRADER-BBBB0000")
	require.NoError(t, err)
	assert.Contains(t, out, "awaiting approval")
}

func TestTraderApprove_SendsAdminKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/traders/TRADER-AAAA0000/approve", r.URL.Path)
		assert.Equal(t, "k-1", r.Header.Get("X-Admin-Key"))
		w.Write([]byte(`{"trader_id":"TRADER-AAAA0000","email":"a@example.com","approved":true}`))
	}))
	defer ts.Close()

	t.Setenv("CHARTSAGE_AUTH_ADMIN_KEY", "")
	_, err := runCLI(t, ts.URL, "trader", "approve", "trader-aaaa0000")
	require.Error(t, err)

	out, err := runCLI(t, ts.URL, "--admin-key", "k-1", "trader", "approve", "trader-aaaa0000")
	require.NoError(t, err)
	assert.Contains(t, out, "TRADER-AAAA0000  a@example.com  approved")
}

func TestHistoryCmd_Empty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer ts.Close()

	out, err := runCLI(t, ts.URL, "history")
	require.NoError(t, err)
	assert.Equal(t, "No analyses yet.\n", out)
}

func TestVersionCmd_ServerUnreachable(t *testing.T) {
	out, err := runCLI(t, "http://127.0.0.1:1", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chartsage dev")
	assert.Contains(t, out, "server: unreachable")
}
