package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gallery3d/backend/internal/demo"
)

// ServerConfig содержит адреса сервисов
type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"`
	GRPCAddr string `toml:"grpc_addr"` // пустая строка отключает gRPC
}

// LoopConfig содержит настройки цикла кадров
type LoopConfig struct {
	FPS                 int  `toml:"fps"`
	EagerStart          bool `toml:"eager_start"` // запускать все демо сразу
	TelemetryIntervalMs int  `toml:"telemetry_interval_ms"`
}

// StreamConfig содержит настройки потока кадров клиентам
type StreamConfig struct {
	IntervalMs      int `toml:"interval_ms"`
	TrailIntervalMs int `toml:"trail_interval_ms"` // буферы следов большие, шлем их реже
	PingIntervalMs  int `toml:"ping_interval_ms"`
}

// SiteConfig содержит настройки статического сайта
type SiteConfig struct {
	AssetsDir string `toml:"assets_dir"`
	OutDir    string `toml:"out_dir"`
	ThreeURL  string `toml:"three_url"`
	Watch     bool   `toml:"watch"`
}

// DemosConfig содержит настройки демо
type DemosConfig struct {
	TrailLength     int  `toml:"trail_length"`
	ShovelAssembled bool `toml:"shovel_assembled"`
}

// Config объединяет все настройки
type Config struct {
	Server ServerConfig `toml:"server"`
	Loop   LoopConfig   `toml:"loop"`
	Stream StreamConfig `toml:"stream"`
	Site   SiteConfig   `toml:"site"`
	Demos  DemosConfig  `toml:"demos"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
		},
		Loop: LoopConfig{
			FPS:                 60,
			TelemetryIntervalMs: 10000,
		},
		Stream: StreamConfig{
			IntervalMs:      33,
			TrailIntervalMs: 100,
			PingIntervalMs:  2000,
		},
		Site: SiteConfig{
			AssetsDir: "assets",
			OutDir:    "dist",
			ThreeURL:  "https://unpkg.com/three@0.160.0/build/three.module.js",
			Watch:     true,
		},
		Demos: DemosConfig{
			TrailLength: demo.DefaultOptions().TrailLength,
		},
	}
}

// Load читает TOML файл поверх значений по умолчанию
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("чтение конфигурации: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает TOML поверх значений по умолчанию. Неизвестные ключи - ошибка.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("неизвестные ключи конфигурации:\n%s", strict.String())
		}
		return Config{}, fmt.Errorf("разбор конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет значения
func (c Config) Validate() error {
	var errs []error
	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.http_addr не задан"))
	}
	if c.Loop.FPS <= 0 || c.Loop.FPS > 240 {
		errs = append(errs, fmt.Errorf("loop.fps вне диапазона 1..240: %d", c.Loop.FPS))
	}
	if c.Stream.IntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("stream.interval_ms должен быть положительным: %d", c.Stream.IntervalMs))
	}
	if c.Stream.TrailIntervalMs < c.Stream.IntervalMs {
		errs = append(errs, fmt.Errorf("stream.trail_interval_ms (%d) меньше stream.interval_ms (%d)",
			c.Stream.TrailIntervalMs, c.Stream.IntervalMs))
	}
	if c.Stream.PingIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("stream.ping_interval_ms должен быть положительным: %d", c.Stream.PingIntervalMs))
	}
	if c.Demos.TrailLength < 1 {
		errs = append(errs, fmt.Errorf("demos.trail_length должен быть не меньше 1: %d", c.Demos.TrailLength))
	}
	return errors.Join(errs...)
}

// Encode сериализует конфигурацию в TOML
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Interval возвращает период отправки кадров
func (s StreamConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// TrailInterval возвращает период отправки буферов следов
func (s StreamConfig) TrailInterval() time.Duration {
	return time.Duration(s.TrailIntervalMs) * time.Millisecond
}

// PingInterval возвращает период пинга клиентов
func (s StreamConfig) PingInterval() time.Duration {
	return time.Duration(s.PingIntervalMs) * time.Millisecond
}

// TelemetryInterval возвращает период вывода сводки телеметрии
func (l LoopConfig) TelemetryInterval() time.Duration {
	return time.Duration(l.TelemetryIntervalMs) * time.Millisecond
}

// Options возвращает настройки для конструкторов демо
func (d DemosConfig) Options() demo.Options {
	return demo.Options{
		TrailLength:     d.TrailLength,
		ShovelAssembled: d.ShovelAssembled,
	}
}

var (
	current     = Default()
	configMutex sync.RWMutex
)

// Get возвращает текущую конфигурацию
func Get() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return current
}

// Set устанавливает новую конфигурацию
func Set(cfg Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	current = cfg
}

// GetStream возвращает только настройки потока
func GetStream() StreamConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return current.Stream
}

// GetSite возвращает только настройки сайта
func GetSite() SiteConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return current.Site
}
