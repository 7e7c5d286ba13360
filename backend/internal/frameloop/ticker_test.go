package frameloop

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

type recordingSystem struct {
	name     string
	priority int
	calls    *[]string
	mu       *sync.Mutex
	err      error
	panicMsg string
	deltas   []time.Duration
}

func (s *recordingSystem) Update(dt time.Duration) error {
	s.mu.Lock()
	*s.calls = append(*s.calls, s.name)
	s.deltas = append(s.deltas, dt)
	s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func (s *recordingSystem) Name() string  { return s.name }
func (s *recordingSystem) Priority() int { return s.priority }

func newTestTicker() *Ticker {
	return NewTicker(60, log.New(io.Discard, "", 0))
}

func TestTicker_SystemsRunInPriorityOrder(t *testing.T) {
	ticker := newTestTicker()

	var calls []string
	var mu sync.Mutex
	ticker.RegisterSystem(&recordingSystem{name: "telemetry", priority: 100, calls: &calls, mu: &mu})
	ticker.RegisterSystem(&recordingSystem{name: "demo", priority: 10, calls: &calls, mu: &mu})
	ticker.RegisterSystem(&recordingSystem{name: "commands", priority: 0, calls: &calls, mu: &mu})

	ticker.Step(16 * time.Millisecond)

	expected := []string{"commands", "demo", "telemetry"}
	if len(calls) != len(expected) {
		t.Fatalf("Ожидали %d вызовов, получили %d", len(expected), len(calls))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Вызов %d: ожидали %s, получили %s", i, expected[i], calls[i])
		}
	}
}

func TestTicker_RecoversFromPanicsAndCountsErrors(t *testing.T) {
	ticker := newTestTicker()

	var calls []string
	var mu sync.Mutex
	ticker.RegisterSystem(&recordingSystem{name: "broken", priority: 0, calls: &calls, mu: &mu, panicMsg: "boom"})
	ticker.RegisterSystem(&recordingSystem{name: "failing", priority: 1, calls: &calls, mu: &mu, err: errors.New("fail")})
	ticker.RegisterSystem(&recordingSystem{name: "healthy", priority: 2, calls: &calls, mu: &mu})

	ticker.Step(time.Millisecond)
	ticker.Step(time.Millisecond)

	stats := ticker.Stats()
	if stats.FrameCount != 2 {
		t.Errorf("Ожидали 2 кадра, получили %d", stats.FrameCount)
	}
	if stats.Systems["broken"].Errors != 2 {
		t.Errorf("Ожидали 2 ошибки в broken, получили %d", stats.Systems["broken"].Errors)
	}
	if stats.Systems["failing"].Errors != 2 {
		t.Errorf("Ожидали 2 ошибки в failing, получили %d", stats.Systems["failing"].Errors)
	}
	if stats.Systems["healthy"].TotalExecutions != 2 {
		t.Errorf("healthy должна выполниться 2 раза, выполнилась %d", stats.Systems["healthy"].TotalExecutions)
	}
	if len(calls) != 6 {
		t.Errorf("Ожидали 6 вызовов, получили %d", len(calls))
	}
}

func TestTicker_RunsUntilStopped(t *testing.T) {
	ticker := NewTicker(200, log.New(io.Discard, "", 0))

	var calls []string
	var mu sync.Mutex
	sys := &recordingSystem{name: "demo", calls: &calls, mu: &mu}
	ticker.RegisterSystem(sys)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ticker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ticker.FrameCount() < 5 {
		select {
		case <-deadline:
			t.Fatal("Цикл не выполнил 5 кадров за 2 секунды")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if ticker.IsRunning() {
		t.Error("Цикл должен быть остановлен")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, dt := range sys.deltas {
		if dt <= 0 {
			t.Errorf("Длительность кадра должна быть положительной, получили %v", dt)
		}
	}
}

func TestTicker_PauseStopsFrames(t *testing.T) {
	ticker := NewTicker(200, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ticker.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer ticker.Stop()

	ticker.Pause(true)
	time.Sleep(30 * time.Millisecond)
	before := ticker.FrameCount()
	time.Sleep(50 * time.Millisecond)
	after := ticker.FrameCount()

	if after != before {
		t.Errorf("На паузе кадры не должны выполняться: было %d, стало %d", before, after)
	}
	if !ticker.Stats().IsPaused {
		t.Error("Stats должен сообщать о паузе")
	}

	ticker.Pause(false)
	deadline := time.After(2 * time.Second)
	for ticker.FrameCount() == after {
		select {
		case <-deadline:
			t.Fatal("Цикл не возобновился после паузы")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
