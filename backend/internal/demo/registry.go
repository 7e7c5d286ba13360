package demo

import (
	"fmt"
	"sync"
)

// Options - настройки демо, приходящие из конфигурации
type Options struct {
	TrailLength     int  // длина следов в солнечной системе
	ShovelAssembled bool // собирать ли экскаватор сразу
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		TrailLength: 2000,
	}
}

// Constructor создает новый экземпляр демо
type Constructor func(opts Options) Demo

// Registry хранит конструкторы демо в порядке регистрации
type Registry struct {
	mu           sync.RWMutex
	names        []string
	constructors map[string]Constructor
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// DefaultRegistry возвращает реестр со всеми демо галереи
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TemplateName, NewTemplate)
	r.Register(HolaMundoName, NewHolaMundo)
	r.Register(EjercicioHolaMundoName, NewEjercicioHolaMundo)
	r.Register(BufferGeometryName, NewBufferGeometry)
	r.Register(PalaMecanicaName, NewPalaMecanica)
	r.Register(SistemaSolarName, NewSistemaSolar)
	return r
}

// Register добавляет конструктор. Повторная регистрация заменяет конструктор,
// сохраняя исходный порядок.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; !exists {
		r.names = append(r.names, name)
	}
	r.constructors[name] = c
}

// Names возвращает имена демо в порядке регистрации
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// New создает демо по имени
func (r *Registry) New(name string, opts Options) (Demo, error) {
	r.mu.RLock()
	c, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDemo, name)
	}
	return c(opts), nil
}
