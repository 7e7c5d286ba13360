package frameloop

import (
	"context"
	"log"
	"sync"
	"time"
)

// FrameSystem интерфейс для всех систем, которые обновляются каждый кадр
type FrameSystem interface {
	Update(deltaTime time.Duration) error
	Name() string
	Priority() int // Приоритет выполнения (меньше = раньше)
}

// Ticker основной цикл анимации: заменяет requestAnimationFrame браузера
// и вызывает зарегистрированные системы с фиксированной частотой
type Ticker struct {
	// Конфигурация
	targetFPS     int
	frameDuration time.Duration
	maxFrameTime  time.Duration

	// Состояние
	mu            sync.RWMutex
	isRunning     bool
	isPaused      bool
	frameCount    uint64
	startTime     time.Time
	lastFrameTime time.Time

	// Системы
	systems      []FrameSystem
	systemsMutex sync.RWMutex

	perfMonitor *PerformanceMonitor

	// Управление
	cancel    context.CancelFunc
	done      chan struct{}
	pauseChan chan bool

	// Метрики
	averageFrameTime time.Duration
	maxObservedFrame time.Duration
	skippedFrames    uint64

	logger           *log.Logger
	warningThreshold time.Duration
}

// NewTicker создает цикл анимации с заданной частотой кадров
func NewTicker(targetFPS int, logger *log.Logger) *Ticker {
	if targetFPS <= 0 {
		targetFPS = 60
	}

	if logger == nil {
		logger = log.Default()
	}

	frameDuration := time.Second / time.Duration(targetFPS)

	return &Ticker{
		targetFPS:        targetFPS,
		frameDuration:    frameDuration,
		maxFrameTime:     frameDuration * 2, // Максимум в 2 раза больше целевого времени
		systems:          make([]FrameSystem, 0),
		perfMonitor:      NewPerformanceMonitor(120, frameDuration/4),
		pauseChan:        make(chan bool, 1),
		logger:           logger,
		warningThreshold: frameDuration / 2,
	}
}

// Run запускает цикл и блокируется до отмены ctx
func (t *Ticker) Run(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	t.Stop()
	return nil
}

// Start запускает цикл анимации в отдельной горутине
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.isRunning = true
	t.startTime = time.Now()
	t.lastFrameTime = t.startTime

	t.logger.Printf("[Ticker] Запуск цикла анимации: %d FPS (кадр каждые %v)", t.targetFPS, t.frameDuration)

	go t.loop(loopCtx, t.done)
	return nil
}

// Stop останавливает цикл и ждет завершения текущего кадра
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	cancel, done := t.cancel, t.done
	frames := t.frameCount
	t.mu.Unlock()

	cancel()
	<-done

	t.logger.Printf("[Ticker] Остановка цикла анимации (выполнено кадров: %d)", frames)
}

// Pause приостанавливает или возобновляет выполнение систем
func (t *Ticker) Pause(pause bool) {
	t.mu.Lock()
	t.isPaused = pause
	t.mu.Unlock()

	// Оставляем в канале только последнее состояние
	select {
	case <-t.pauseChan:
	default:
	}
	t.pauseChan <- pause
}

// RegisterSystem добавляет систему в цикл с сохранением порядка приоритетов
func (t *Ticker) RegisterSystem(system FrameSystem) {
	t.systemsMutex.Lock()
	defer t.systemsMutex.Unlock()

	t.systems = append(t.systems, system)

	for i := len(t.systems) - 1; i > 0; i-- {
		if t.systems[i].Priority() < t.systems[i-1].Priority() {
			t.systems[i], t.systems[i-1] = t.systems[i-1], t.systems[i]
		} else {
			break
		}
	}

	t.perfMonitor.initSystemMetrics(system.Name())

	t.logger.Printf("[Ticker] Зарегистрирована система: %s (приоритет: %d)", system.Name(), system.Priority())
}

func (t *Ticker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pause := <-t.pauseChan:
			for pause {
				select {
				case <-ctx.Done():
					return
				case pause = <-t.pauseChan:
				}
			}
			// После паузы не считаем простой одним длинным кадром
			t.mu.Lock()
			t.lastFrameTime = time.Now()
			t.mu.Unlock()

		case frameTime := <-ticker.C:
			t.executeFrame(frameTime)
		}
	}
}

// Step синхронно выполняет один кадр с заданной длительностью.
// Используется в тестах и при экспорте без запущенного цикла.
func (t *Ticker) Step(deltaTime time.Duration) {
	t.mu.Lock()
	t.frameCount++
	t.mu.Unlock()

	t.executeAllSystems(deltaTime)
}

func (t *Ticker) executeFrame(frameTime time.Time) {
	frameStart := time.Now()

	t.mu.Lock()
	deltaTime := frameTime.Sub(t.lastFrameTime)
	if deltaTime > t.frameDuration*2 {
		t.skippedFrames++
		t.logger.Printf("[Ticker] ПРЕДУПРЕЖДЕНИЕ: Большая задержка между кадрами: %v (ожидалось: %v)",
			deltaTime, t.frameDuration)
	}
	t.frameCount++
	t.lastFrameTime = frameTime
	t.mu.Unlock()

	t.executeAllSystems(deltaTime)

	total := time.Since(frameStart)
	t.updateFrameMetrics(total)
	t.checkPerformance(total)
}

func (t *Ticker) executeAllSystems(deltaTime time.Duration) {
	t.systemsMutex.RLock()
	systems := make([]FrameSystem, len(t.systems))
	copy(systems, t.systems)
	t.systemsMutex.RUnlock()

	for _, system := range systems {
		t.executeSystem(system, deltaTime)
	}
}

// executeSystem выполняет одну систему с замером времени
func (t *Ticker) executeSystem(system FrameSystem, deltaTime time.Duration) {
	start := time.Now()
	name := system.Name()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("[Ticker] КРИТИЧЕСКАЯ ОШИБКА в системе %s: %v", name, r)
			t.perfMonitor.recordError(name)
		}
	}()

	err := system.Update(deltaTime)

	t.perfMonitor.recordExecution(name, time.Since(start))

	if err != nil {
		t.logger.Printf("[Ticker] Ошибка в системе %s: %v", name, err)
		t.perfMonitor.recordError(name)
	}
}

func (t *Ticker) updateFrameMetrics(frameTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if frameTime > t.maxObservedFrame {
		t.maxObservedFrame = frameTime
	}

	// Простое скользящее среднее
	if t.averageFrameTime == 0 {
		t.averageFrameTime = frameTime
	} else {
		t.averageFrameTime = (t.averageFrameTime*9 + frameTime) / 10
	}
}

func (t *Ticker) checkPerformance(frameTime time.Duration) {
	if frameTime > t.maxFrameTime {
		t.logger.Printf("[Ticker] КРИТИЧЕСКОЕ ПРЕДУПРЕЖДЕНИЕ: Кадр превысил максимальное время! %v > %v (цель: %v)",
			frameTime, t.maxFrameTime, t.frameDuration)
	} else if frameTime > t.warningThreshold {
		t.logger.Printf("[Ticker] ПРЕДУПРЕЖДЕНИЕ: Медленный кадр: %v (цель: %v)", frameTime, t.frameDuration)
	}
}

// Stats - статистика цикла анимации
type Stats struct {
	TargetFPS        int                      `json:"target_fps"`
	ActualFPS        float64                  `json:"actual_fps"`
	FrameCount       uint64                   `json:"frame_count"`
	UptimeSeconds    float64                  `json:"uptime_seconds"`
	AverageFrameTime time.Duration            `json:"average_frame_time"`
	MaxObservedFrame time.Duration            `json:"max_observed_frame"`
	SkippedFrames    uint64                   `json:"skipped_frames"`
	IsRunning        bool                     `json:"is_running"`
	IsPaused         bool                     `json:"is_paused"`
	Systems          map[string]SystemMetrics `json:"systems"`
}

// Stats возвращает статистику цикла анимации
func (t *Ticker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := Stats{
		TargetFPS:        t.targetFPS,
		FrameCount:       t.frameCount,
		AverageFrameTime: t.averageFrameTime,
		MaxObservedFrame: t.maxObservedFrame,
		SkippedFrames:    t.skippedFrames,
		IsRunning:        t.isRunning,
		IsPaused:         t.isPaused,
		Systems:          t.perfMonitor.Snapshot(),
	}
	if !t.startTime.IsZero() {
		uptime := time.Since(t.startTime)
		st.UptimeSeconds = uptime.Seconds()
		if uptime > 0 {
			st.ActualFPS = float64(t.frameCount) / uptime.Seconds()
		}
	}
	return st
}

// FrameCount возвращает количество выполненных кадров
func (t *Ticker) FrameCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frameCount
}

// IsRunning сообщает, запущен ли цикл
func (t *Ticker) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isRunning
}
