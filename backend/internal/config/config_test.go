package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 33*time.Millisecond, cfg.Stream.Interval())
	assert.Equal(t, 2*time.Second, cfg.Stream.PingInterval())
	assert.Equal(t, 2000, cfg.Demos.Options().TrailLength)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
http_addr = ":9000"

[stream]
interval_ms = 50

[demos]
trail_length = 500
shovel_assembled = true
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr, "не указанные ключи берутся из значений по умолчанию")
	assert.Equal(t, 50*time.Millisecond, cfg.Stream.Interval())
	assert.Equal(t, 60, cfg.Loop.FPS)

	opts := cfg.Demos.Options()
	assert.Equal(t, 500, opts.TrailLength)
	assert.True(t, opts.ShovelAssembled)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
[loop]
fps = 30
gravity = -9.81
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gravity")
}

func TestParse_Validates(t *testing.T) {
	_, err := Parse([]byte(`
[loop]
fps = 0

[demos]
trail_length = 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop.fps")
	assert.Contains(t, err.Error(), "demos.trail_length")
}

func TestLoad_FileRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Site.AssetsDir = "/srv/models"
	cfg.Loop.EagerStart = true

	data, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "gallery.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlobalConfig(t *testing.T) {
	saved := Get()
	defer Set(saved)

	cfg := Default()
	cfg.Stream.IntervalMs = 100
	cfg.Site.OutDir = "public"
	Set(cfg)

	assert.Equal(t, 100, GetStream().IntervalMs)
	assert.Equal(t, "public", GetSite().OutDir)

	// Get возвращает копию
	c := Get()
	c.Server.HTTPAddr = ":1"
	assert.Equal(t, ":8080", Get().Server.HTTPAddr)
}
