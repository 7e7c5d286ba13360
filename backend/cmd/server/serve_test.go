package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery3d/backend/internal/adapter/in/ws"
	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/frameloop"
	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/telemetry"
)

func TestStatsHandler(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	tm := telemetry.NewManager(quiet)
	ticker := frameloop.NewTicker(60, quiet)
	manager := gallery.NewManager(demo.DefaultRegistry(), ticker, gallery.Options{Telemetry: tm, Logger: quiet})

	_, err := manager.Get(demo.HolaMundoName)
	require.NoError(t, err)
	ticker.Step(16 * time.Millisecond)

	adapter := ws.NewWSAdapter(manager, ws.DefaultStreamSettings(), quiet)
	rec := httptest.NewRecorder()
	statsHandler(ticker, tm, adapter)(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Loop      frameloop.Stats         `json:"loop"`
		Clients   int                     `json:"clients"`
		Telemetry []telemetry.FrameSample `json:"telemetry"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 60, body.Loop.TargetFPS)
	assert.Contains(t, body.Loop.Systems, "gallery/"+demo.HolaMundoName)
	assert.Zero(t, body.Clients)
	assert.NotEmpty(t, body.Telemetry, "кадры демо попадают в телеметрию")
}

func TestStartLoop_ReadyAfterRunning(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	ticker := frameloop.NewTicker(60, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runningAtReady bool
	require.NoError(t, startLoop(ctx, ticker, func() {
		runningAtReady = ticker.IsRunning()
	}))
	defer ticker.Stop()

	assert.True(t, runningAtReady, "готовность объявляется только при работающем цикле")
}

func TestBuildCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	cmd := newBuildCmd()
	cmd.SetArgs([]string{"--out", out})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(out, "index.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, demo.SistemaSolarName+".html"))
	assert.NoError(t, err)
}
