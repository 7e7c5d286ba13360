package gallery

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/frameloop"
	"gallery3d/backend/internal/telemetry"
)

var quiet = log.New(io.Discard, "", 0)

func newTestManager(ticker *frameloop.Ticker) (*Manager, *telemetry.Manager) {
	tm := telemetry.NewManager(quiet)
	m := NewManager(demo.DefaultRegistry(), ticker, Options{
		Demo:      demo.Options{TrailLength: 20},
		Telemetry: tm,
		Logger:    quiet,
	})
	return m, tm
}

func TestManager_LazyRuntimes(t *testing.T) {
	m, _ := newTestManager(nil)

	assert.Empty(t, m.Runtimes())

	r1, err := m.Get(demo.SistemaSolarName)
	require.NoError(t, err)
	r2, err := m.Get(demo.SistemaSolarName)
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	_, err = m.Get("missing")
	assert.True(t, errors.Is(err, demo.ErrUnknownDemo))

	require.NoError(t, m.StartAll())
	rs := m.Runtimes()
	require.Len(t, rs, len(m.Names()))
	for i, r := range rs {
		assert.Equal(t, m.Names()[i], r.DemoName())
	}
}

func TestManager_RegistersOnTicker(t *testing.T) {
	ticker := frameloop.NewTicker(60, quiet)
	m, _ := newTestManager(ticker)

	r, err := m.Get(demo.HolaMundoName)
	require.NoError(t, err)
	first := r.Latest().Seq

	ticker.Step(16 * time.Millisecond)
	ticker.Step(16 * time.Millisecond)

	assert.Equal(t, first+2, r.Latest().Seq)
	assert.Contains(t, ticker.Stats().Systems, "gallery/"+demo.HolaMundoName)
}

func TestRuntime_FrameContainsSceneAndTrails(t *testing.T) {
	m, _ := newTestManager(nil)
	r, err := m.Get(demo.SistemaSolarName)
	require.NoError(t, err)

	f0 := r.Latest()
	require.NotNil(t, f0)
	assert.Equal(t, demo.SistemaSolarName, f0.Demo)
	assert.NotEmpty(t, f0.Nodes)
	assert.NotEmpty(t, f0.ActiveCamera)
	require.Len(t, f0.Trails, 3)
	assert.Equal(t, 0, f0.TrailPoints())

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Update(50*time.Millisecond))
	}

	f := r.Latest()
	assert.InDelta(t, 0.25, f.Time, 1e-9)
	for _, tr := range f.Trails {
		assert.Equal(t, 5, tr.Len)
		assert.Len(t, tr.Positions, 20*3)
		assert.Len(t, tr.Colors, 20*3)
	}

	// Старый кадр не меняется после следующих кадров
	assert.Equal(t, 0, f0.Trails[0].Len)
}

func TestRuntime_SubscribersGetLatestFrame(t *testing.T) {
	m, tm := newTestManager(nil)
	r, err := m.Get(demo.HolaMundoName)
	require.NoError(t, err)

	ch, cancel := r.Subscribe()
	defer cancel()
	assert.Equal(t, 1, r.Subscribers())

	// Начальный кадр доступен сразу
	initial := <-ch
	assert.Equal(t, r.Latest(), initial)

	// Медленный подписчик: три кадра подряд без чтения
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Update(16*time.Millisecond))
	}

	got := <-ch
	assert.Equal(t, r.Latest().Seq, got.Seq)
	select {
	case extra := <-ch:
		t.Fatalf("лишний кадр в канале: %d", extra.Seq)
	default:
	}
	assert.Equal(t, 2, tm.Counters()[demo.HolaMundoName+"_"+telemetry.EventDropped])

	cancel()
	_, ok := <-ch
	assert.False(t, ok, "канал закрывается после отписки")
	assert.Equal(t, 0, r.Subscribers())
	cancel()
}

func TestRuntime_CommandsAppliedOnNextFrame(t *testing.T) {
	m, _ := newTestManager(nil)
	r, err := m.Get(demo.SistemaSolarName)
	require.NoError(t, err)
	before := r.Latest().ActiveCamera

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var cmdErr, badErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		cmdErr = r.Command(ctx, demo.CommandToggleCamera)
	}()
	go func() {
		defer wg.Done()
		badErr = r.Command(ctx, "fly")
	}()

	require.Eventually(t, func() bool { return len(r.commands) == 2 }, time.Second, time.Millisecond)
	require.NoError(t, r.Update(16*time.Millisecond))
	wg.Wait()

	assert.NoError(t, cmdErr)
	assert.True(t, errors.Is(badErr, demo.ErrUnknownCommand))
	assert.NotEqual(t, before, r.Latest().ActiveCamera)
}

func TestRuntime_CommandRespectsContext(t *testing.T) {
	m, _ := newTestManager(nil)
	r, err := m.Get(demo.TemplateName)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Кадров нет, команда не дождется применения
	err = r.Command(ctx, demo.CommandToggleCamera)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRuntime_DescribeTracksStructuralChanges(t *testing.T) {
	m, _ := newTestManager(nil)
	r, err := m.Get(demo.PalaMecanicaName)
	require.NoError(t, err)

	nodes, v0 := r.Describe()
	require.NotEmpty(t, nodes)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Command(ctx, demo.CommandAssemble) }()

	require.Eventually(t, func() bool { return len(r.commands) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, r.Update(16*time.Millisecond))
	require.NoError(t, <-done)

	_, v1 := r.Describe()
	assert.Greater(t, v1, v0)
	assert.Equal(t, v1, r.Latest().SceneVersion)
}

func TestInfoOf(t *testing.T) {
	m, _ := newTestManager(nil)
	r, err := m.Get(demo.SistemaSolarName)
	require.NoError(t, err)

	info := r.Info()
	assert.Equal(t, "Sistema Solar", info.Title)
	assert.Len(t, info.Cameras, 5)
	assert.Contains(t, info.Cameras, r.Latest().ActiveCameraName)
	assert.Equal(t, []string{"/assets/sistemaSolar/sistemaSolar.glb"}, info.Assets)
	assert.Equal(t, "#000000", info.ClearColor)
}
