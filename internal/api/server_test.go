package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/PunchCam/internal/config"
	"github.com/bryanchriswhite/PunchCam/internal/pipeline"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewServer(pipeline.NewStats("s1"), nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(NewServer(pipeline.NewStats("session-42"), nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap pipeline.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "session-42", snap.SessionID)
	assert.Zero(t, snap.Captured)
}

func TestStatsRejectsWrites(t *testing.T) {
	srv := httptest.NewServer(NewServer(pipeline.NewStats(""), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/stats", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownRouteNotFound(t *testing.T) {
	srv := httptest.NewServer(NewServer(pipeline.NewStats(""), nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfig(t *testing.T) {
	t.Run("without manager", func(t *testing.T) {
		srv := httptest.NewServer(NewServer(pipeline.NewStats(""), nil).Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/config")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("with manager", func(t *testing.T) {
		mgr, err := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
		require.NoError(t, err)
		srv := httptest.NewServer(NewServer(pipeline.NewStats(""), mgr).Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/api/config")
		require.NoError(t, err)
		defer resp.Body.Close()

		var cfg config.Config
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
		assert.Equal(t, config.Defaults().Camera.Device, cfg.Camera.Device)
	})
}

func TestStatsStream(t *testing.T) {
	s := NewServer(pipeline.NewStats("stream"), nil)
	s.interval = 10 * time.Millisecond
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 3; i++ {
		var snap pipeline.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		assert.Equal(t, "stream", snap.SessionID)
	}
}
