package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"
)

// Счетчики событий
const (
	EventFrame       = "frame"
	EventCommand     = "command"
	EventCommandErr  = "command_error"
	EventDropped     = "dropped"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// FrameSample - сводка одного кадра демо
type FrameSample struct {
	Timestamp    int64  `json:"timestamp"` // Время в миллисекундах
	Demo         string `json:"demo"`
	Seq          uint64 `json:"seq"`
	Nodes        int    `json:"nodes"`
	TrailPoints  int    `json:"trail_points"`
	BuildMicros  int64  `json:"build_us"` // Время сборки снимка
	Subscribers  int    `json:"subscribers"`
	SceneVersion uint64 `json:"scene_version"`
}

// Manager управляет сбором и выводом телеметрии кадров
type Manager struct {
	enabled    bool
	data       []FrameSample
	mutex      sync.RWMutex
	maxEntries int

	// Счетчики для статистики, ключ "<демо>_<событие>"
	counters      map[string]int
	lastPrint     time.Time
	printInterval time.Duration

	logger *log.Logger
}

// NewManager создает новый менеджер телеметрии
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		enabled:       true,
		data:          make([]FrameSample, 0),
		maxEntries:    200, // Храним последние 200 записей
		counters:      make(map[string]int),
		lastPrint:     time.Now(),
		printInterval: 10 * time.Second,
		logger:        logger,
	}
}

// SetPrintInterval задает период вывода сводки
func (tm *Manager) SetPrintInterval(d time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.printInterval = d
}

// LogFrame записывает сводку кадра
func (tm *Manager) LogFrame(sample FrameSample) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	if sample.Timestamp == 0 {
		sample.Timestamp = time.Now().UnixMilli()
	}
	tm.data = append(tm.data, sample)

	// Ограничиваем размер буфера
	if len(tm.data) > tm.maxEntries {
		tm.data = tm.data[len(tm.data)-tm.maxEntries:]
	}

	tm.counters[sample.Demo+"_"+EventFrame]++
}

// LogEvent увеличивает счетчик события демо
func (tm *Manager) LogEvent(demo, event string) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}
	tm.counters[demo+"_"+event]++
}

// Counters возвращает копию счетчиков с момента последней сводки
func (tm *Manager) Counters() map[string]int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make(map[string]int, len(tm.counters))
	for k, v := range tm.counters {
		out[k] = v
	}
	return out
}

// Samples возвращает копию последних записей
func (tm *Manager) Samples() []FrameSample {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	out := make([]FrameSample, len(tm.data))
	copy(out, tm.data)
	return out
}

// PrintSummary выводит сводку телеметрии не чаще printInterval
func (tm *Manager) PrintSummary() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if !tm.enabled {
		return
	}

	now := time.Now()
	if now.Sub(tm.lastPrint) < tm.printInterval {
		return
	}

	tm.logger.Println("[Telemetry] ===== ТЕЛЕМЕТРИЯ КАДРОВ =====")
	tm.logger.Printf("[Telemetry] Всего записей: %d", len(tm.data))

	keys := make([]string, 0, len(tm.counters))
	for key := range tm.counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tm.logger.Printf("[Telemetry] %s: %d", key, tm.counters[key])
	}

	tm.printRecentFrames()

	// Сброс счетчиков
	tm.counters = make(map[string]int)
	tm.lastPrint = now
}

// printRecentFrames выводит последний кадр каждого демо
func (tm *Manager) printRecentFrames() {
	latest := make(map[string]FrameSample)
	for i := len(tm.data) - 1; i >= 0; i-- {
		entry := tm.data[i]
		if _, exists := latest[entry.Demo]; !exists {
			latest[entry.Demo] = entry
		}
	}

	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := latest[name]
		tm.logger.Printf("[Telemetry] %s [%s]: кадр %d, узлов %d, точек следов %d, сборка %d мкс, подписчиков %d",
			name, time.UnixMilli(s.Timestamp).Format("15:04:05.000"),
			s.Seq, s.Nodes, s.TrailPoints, s.BuildMicros, s.Subscribers)
	}
}

// GetTelemetryJSON возвращает телеметрию в JSON формате
func (tm *Manager) GetTelemetryJSON() (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	jsonData, err := json.MarshalIndent(tm.data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// SetEnabled включает/выключает телеметрию
func (tm *Manager) SetEnabled(enabled bool) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.enabled = enabled
	tm.logger.Printf("[Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// Clear очищает все данные телеметрии
func (tm *Manager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.data = make([]FrameSample, 0)
	tm.counters = make(map[string]int)
}

// SummarySystem печатает сводку из цикла кадров
type SummarySystem struct {
	manager *Manager
}

// NewSummarySystem создает систему вывода сводки
func NewSummarySystem(m *Manager) *SummarySystem {
	return &SummarySystem{manager: m}
}

func (s *SummarySystem) Update(time.Duration) error {
	s.manager.PrintSummary()
	return nil
}

func (s *SummarySystem) Name() string  { return "telemetry" }
func (s *SummarySystem) Priority() int { return 1000 }

// Global - общий экземпляр телеметрии
var Global = NewManager(nil)
