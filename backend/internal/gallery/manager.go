package gallery

import (
	"fmt"
	"log"
	"sync"

	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/frameloop"
	"gallery3d/backend/internal/telemetry"
)

// Базовый приоритет систем демо в цикле кадров
const runtimePriorityBase = 100

// Options - настройки менеджера
type Options struct {
	Demo      demo.Options
	Telemetry *telemetry.Manager
	Logger    *log.Logger
}

// Manager держит по одному Runtime на демо и регистрирует их в цикле кадров
type Manager struct {
	registry *demo.Registry
	ticker   *frameloop.Ticker
	opts     Options
	logger   *log.Logger

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

// NewManager создает менеджер. ticker может быть nil: тогда кадры
// нужно продвигать вручную через Runtime.Update.
func NewManager(registry *demo.Registry, ticker *frameloop.Ticker, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Global
	}
	return &Manager{
		registry: registry,
		ticker:   ticker,
		opts:     opts,
		logger:   opts.Logger,
		runtimes: make(map[string]*Runtime),
	}
}

// Names возвращает имена всех зарегистрированных демо
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// Registry возвращает реестр демо
func (m *Manager) Registry() *demo.Registry {
	return m.registry
}

// Get возвращает Runtime демо, запуская его при первом обращении
func (m *Manager) Get(name string) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.runtimes[name]; ok {
		return r, nil
	}

	d, err := m.registry.New(name, m.opts.Demo)
	if err != nil {
		return nil, err
	}

	priority := runtimePriorityBase
	for i, n := range m.registry.Names() {
		if n == name {
			priority += i
			break
		}
	}

	r, err := NewRuntime(d, priority, m.opts.Telemetry, m.logger)
	if err != nil {
		return nil, fmt.Errorf("gallery: %w", err)
	}
	m.runtimes[name] = r

	if m.ticker != nil {
		m.ticker.RegisterSystem(r)
	}
	return r, nil
}

// Lookup возвращает уже запущенный Runtime, не запуская демо
func (m *Manager) Lookup(name string) (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runtimes[name]
	return r, ok
}

// StartAll запускает все демо сразу
func (m *Manager) StartAll() error {
	for _, name := range m.registry.Names() {
		if _, err := m.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// Runtimes возвращает запущенные демо в порядке реестра
func (m *Manager) Runtimes() []*Runtime {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Runtime
	for _, name := range m.registry.Names() {
		if r, ok := m.runtimes[name]; ok {
			out = append(out, r)
		}
	}
	return out
}
