package gallery

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/scene"
	"gallery3d/backend/internal/telemetry"
)

const defaultCommandBuffer = 64

type command struct {
	name  string
	reply chan error
}

// Runtime исполняет одно демо в цикле кадров. Анимация, команды и снимки
// выполняются только внутри Update, поэтому у сцены один писатель.
type Runtime struct {
	demo     demo.Demo
	scene    *scene.Scene
	priority int

	mu      sync.Mutex
	elapsed time.Duration
	seq     uint64

	commands chan command
	latest   atomic.Pointer[Frame]

	subsMu sync.Mutex
	subs   map[chan *Frame]struct{}

	telemetry *telemetry.Manager
	logger    *log.Logger
}

// NewRuntime собирает сцену демо и публикует первый кадр
func NewRuntime(d demo.Demo, priority int, tm *telemetry.Manager, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.Default()
	}
	if tm == nil {
		tm = telemetry.Global
	}

	r := &Runtime{
		demo:      d,
		scene:     scene.New(),
		priority:  priority,
		commands:  make(chan command, defaultCommandBuffer),
		subs:      make(map[chan *Frame]struct{}),
		telemetry: tm,
		logger:    logger,
	}

	if err := d.Setup(r.scene); err != nil {
		return nil, fmt.Errorf("setup %s: %w", d.Name(), err)
	}

	r.mu.Lock()
	f := r.buildFrame()
	r.mu.Unlock()
	r.publish(f)

	r.logger.Printf("[Gallery] Демо %s запущено: %d узлов", d.Name(), len(f.Nodes))
	return r, nil
}

// Name реализует frameloop.FrameSystem
func (r *Runtime) Name() string { return "gallery/" + r.demo.Name() }

// Priority реализует frameloop.FrameSystem
func (r *Runtime) Priority() int { return r.priority }

// DemoName возвращает имя демо
func (r *Runtime) DemoName() string { return r.demo.Name() }

// Info возвращает описание демо
func (r *Runtime) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return InfoOf(r.demo)
}

// Update применяет накопленные команды, выполняет кадр анимации
// и публикует новый снимок
func (r *Runtime) Update(dt time.Duration) error {
	r.applyCommands()

	r.mu.Lock()
	r.demo.Animate(dt)
	r.elapsed += dt
	f := r.buildFrame()
	r.mu.Unlock()

	r.publish(f)
	return nil
}

func (r *Runtime) applyCommands() {
	for {
		select {
		case c := <-r.commands:
			r.mu.Lock()
			err := r.demo.HandleCommand(c.name)
			r.mu.Unlock()

			if err != nil {
				r.telemetry.LogEvent(r.demo.Name(), telemetry.EventCommandErr)
				r.logger.Printf("[Gallery] %s: ошибка команды %q: %v", r.demo.Name(), c.name, err)
			} else {
				r.telemetry.LogEvent(r.demo.Name(), telemetry.EventCommand)
			}
			c.reply <- err
		default:
			return
		}
	}
}

// Command ставит команду в очередь и ждет, пока следующий кадр ее применит
func (r *Runtime) Command(ctx context.Context, name string) error {
	c := command{name: name, reply: make(chan error, 1)}

	select {
	case r.commands <- c:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildFrame вызывается под r.mu
func (r *Runtime) buildFrame() *Frame {
	start := time.Now()
	r.seq++

	f := &Frame{
		Demo:         r.demo.Name(),
		Seq:          r.seq,
		Time:         r.elapsed.Seconds(),
		ServerTime:   start.UnixMilli(),
		SceneVersion: r.scene.Version(),
		Nodes:        r.scene.Snapshot(),
		Trails:       trailStates(r.demo.Trails()),
	}
	if cam := r.demo.ActiveCamera(); cam != nil {
		f.ActiveCamera = cam.ID
		f.ActiveCameraName = cam.Name
	}

	r.telemetry.LogFrame(telemetry.FrameSample{
		Timestamp:    f.ServerTime,
		Demo:         f.Demo,
		Seq:          f.Seq,
		Nodes:        len(f.Nodes),
		TrailPoints:  f.TrailPoints(),
		BuildMicros:  time.Since(start).Microseconds(),
		Subscribers:  r.Subscribers(),
		SceneVersion: f.SceneVersion,
	})
	return f
}

// Describe возвращает полное описание сцены и ее версию
func (r *Runtime) Describe() ([]scene.NodeDescriptor, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scene.Describe(), r.scene.Version()
}

// Latest возвращает последний опубликованный кадр
func (r *Runtime) Latest() *Frame {
	return r.latest.Load()
}

// Subscribe возвращает канал кадров. В канале всегда лежит не больше одного
// кадра: медленный подписчик пропускает промежуточные, цикл не блокируется.
// Вызов cancel закрывает канал.
func (r *Runtime) Subscribe() (<-chan *Frame, func()) {
	ch := make(chan *Frame, 1)

	r.subsMu.Lock()
	r.subs[ch] = struct{}{}
	if f := r.latest.Load(); f != nil {
		ch <- f
	}
	r.subsMu.Unlock()

	r.telemetry.LogEvent(r.demo.Name(), telemetry.EventSubscribe)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subsMu.Lock()
			delete(r.subs, ch)
			close(ch)
			r.subsMu.Unlock()
			r.telemetry.LogEvent(r.demo.Name(), telemetry.EventUnsubscribe)
		})
	}
	return ch, cancel
}

// Subscribers возвращает число подписчиков
func (r *Runtime) Subscribers() int {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	return len(r.subs)
}

func (r *Runtime) publish(f *Frame) {
	r.latest.Store(f)

	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for ch := range r.subs {
		select {
		case ch <- f:
			continue
		default:
		}

		// Выбрасываем непрочитанный кадр, оставляем новый
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
		r.telemetry.LogEvent(r.demo.Name(), telemetry.EventDropped)
	}
}
