package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioProxy_ForwardsWithBearer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "notifications/") {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}` + "\n"))
	}))
	defer ts.Close()

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		"",
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	}, "\n"))
	var out bytes.Buffer

	p := &stdioProxy{serverURL: ts.URL, token: "tok-1"}
	require.NoError(t, p.RunWithIO(in, &out))
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`+"\n", out.String())
}

func TestStdioProxy_ServerErrorBecomesRPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	var out bytes.Buffer
	p := &stdioProxy{serverURL: ts.URL}
	require.NoError(t, p.RunWithIO(strings.NewReader(`{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`), &out))

	var resp struct {
		ID    string `json:"id"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "abc", resp.ID)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "500")
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "7", string(extractID([]byte(`{"id":7}`))))
	assert.Equal(t, "null", string(extractID([]byte(`{"method":"x"}`))))
	assert.Equal(t, "null", string(extractID([]byte(`not json`))))
}
