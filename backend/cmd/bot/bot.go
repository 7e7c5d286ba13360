package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Паттерны команд бота
const (
	PatternCamera = "camera" // переключает камеры
	PatternTrails = "trails" // сбрасывает следы
	PatternShovel = "shovel" // собирает и раскладывает экскаватор
	PatternRandom = "random" // любая из команд выше
	PatternIdle   = "idle"   // только смотрит поток
)

// Структуры сообщений (повторяют adapter/in/ws/message_types.go)
type CommandMessage struct {
	Type       string `json:"type"`
	Cmd        string `json:"cmd"`
	ClientTime int64  `json:"client_time"`
}

type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
}

// Bot подключается к демо, читает поток кадров и шлет команды
type Bot struct {
	ID           string
	ServerURL    string
	Demo         string
	Pattern      string
	Duration     time.Duration
	CommandRate  time.Duration
	PingInterval time.Duration

	conn    *websocket.Conn
	writeMu sync.Mutex // Мьютекс для синхронизации записи в WebSocket
	step    int

	Stats  BotStats
	logger *log.Logger
}

// BotStats содержит статистику работы бота
type BotStats struct {
	mu sync.RWMutex

	CommandsSent      int
	ResponsesReceived int
	CommandErrors     int
	FramesReceived    int
	Resends           int
	Pongs             int
	TotalRTT          time.Duration
	Errors            int
	StartTime         time.Time
}

// Snapshot - копия статистики без мьютекса
type Snapshot struct {
	CommandsSent      int
	ResponsesReceived int
	CommandErrors     int
	FramesReceived    int
	Resends           int
	Pongs             int
	AverageRTT        time.Duration
	Errors            int
	Uptime            time.Duration
}

// NewBot создает нового бота
func NewBot(id, serverURL, demo, pattern string, duration, commandRate time.Duration, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		ID:           id,
		ServerURL:    serverURL,
		Demo:         demo,
		Pattern:      pattern,
		Duration:     duration,
		CommandRate:  commandRate,
		PingInterval: time.Second,
		Stats:        BotStats{StartTime: time.Now()},
		logger:       logger,
	}
}

// Connect подключается к серверу
func (b *Bot) Connect(ctx context.Context) error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("неверный URL: %w", err)
	}
	if b.Demo != "" {
		q := u.Query()
		q.Set("demo", b.Demo)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения к %s: %w", u.String(), err)
	}
	b.conn = conn
	b.logger.Printf("[Bot %s] Подключен к %s", b.ID, u.String())
	return nil
}

// nextCommand выбирает команду по паттерну. Пустая строка - ничего не слать.
func (b *Bot) nextCommand() string {
	b.step++
	switch b.Pattern {
	case PatternCamera:
		return "c"
	case PatternTrails:
		return "reset_trails"
	case PatternShovel:
		if b.step%2 == 1 {
			return "assemble"
		}
		return "layout"
	case PatternRandom:
		cmds := []string{"c", "reset_trails", "assemble", "layout"}
		return cmds[rand.IntN(len(cmds))]
	default:
		return ""
	}
}

func (b *Bot) write(v interface{}) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return b.conn.WriteJSON(v)
}

// sendCommand отправляет очередную команду паттерна
func (b *Bot) sendCommand() error {
	cmd := b.nextCommand()
	if cmd == "" {
		return nil
	}
	if err := b.write(CommandMessage{Type: "cmd", Cmd: cmd, ClientTime: time.Now().UnixMilli()}); err != nil {
		return fmt.Errorf("ошибка отправки команды: %w", err)
	}

	b.Stats.mu.Lock()
	b.Stats.CommandsSent++
	b.Stats.mu.Unlock()
	return nil
}

// handleMessage обрабатывает входящие сообщения
func (b *Bot) handleMessage(data []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		b.logger.Printf("[Bot %s] Ошибка разбора сообщения: %v", b.ID, err)
		return
	}

	b.Stats.mu.Lock()
	defer b.Stats.mu.Unlock()

	switch msg["type"] {
	case "cmd_ack":
		b.Stats.ResponsesReceived++
	case "error":
		b.Stats.CommandErrors++
		b.logger.Printf("[Bot %s] Ошибка сервера: %v", b.ID, msg["message"])
	case "update":
		b.Stats.FramesReceived++
	case "clear":
		b.Stats.Resends++
	case "pong":
		if ct, ok := msg["client_time"].(float64); ok {
			b.Stats.Pongs++
			b.Stats.TotalRTT += time.Duration(time.Now().UnixMilli()-int64(ct)) * time.Millisecond
		}
	case "ping":
		go b.write(map[string]interface{}{"type": "pong", "server_time": msg["server_time"]})
	}
}

// Run подключается и работает Duration или до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer b.conn.Close()

	ctx, cancel := context.WithTimeout(ctx, b.Duration)
	defer cancel()

	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()

	// Чтение сообщений
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, data, err := b.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					b.logger.Printf("[Bot %s] Ошибка чтения сообщения: %v", b.ID, err)
					b.Stats.mu.Lock()
					b.Stats.Errors++
					b.Stats.mu.Unlock()
				}
				return
			}
			b.handleMessage(data)
		}
	}()

	commandTicker := time.NewTicker(b.CommandRate)
	defer commandTicker.Stop()
	pingTicker := time.NewTicker(b.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-readDone
			b.logger.Printf("[Bot %s] Завершение работы", b.ID)
			return nil
		case <-readDone:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("бот %s: соединение закрыто сервером", b.ID)
		case <-pingTicker.C:
			if err := b.write(PingMessage{Type: "ping", ClientTime: time.Now().UnixMilli()}); err != nil {
				b.logger.Printf("[Bot %s] Ошибка отправки ping: %v", b.ID, err)
			}
		case <-commandTicker.C:
			if err := b.sendCommand(); err != nil {
				b.logger.Printf("[Bot %s] %v", b.ID, err)
				b.Stats.mu.Lock()
				b.Stats.Errors++
				b.Stats.mu.Unlock()
			}
		}
	}
}

// Snapshot возвращает копию статистики
func (b *Bot) Snapshot() Snapshot {
	b.Stats.mu.RLock()
	defer b.Stats.mu.RUnlock()

	s := Snapshot{
		CommandsSent:      b.Stats.CommandsSent,
		ResponsesReceived: b.Stats.ResponsesReceived,
		CommandErrors:     b.Stats.CommandErrors,
		FramesReceived:    b.Stats.FramesReceived,
		Resends:           b.Stats.Resends,
		Pongs:             b.Stats.Pongs,
		Errors:            b.Stats.Errors,
		Uptime:            time.Since(b.Stats.StartTime),
	}
	if b.Stats.Pongs > 0 {
		s.AverageRTT = b.Stats.TotalRTT / time.Duration(b.Stats.Pongs)
	}
	return s
}

// PrintStats выводит статистику бота
func (b *Bot) PrintStats() {
	s := b.Snapshot()
	b.logger.Printf("[Bot %s] Статистика:", b.ID)
	b.logger.Printf("  Время работы: %v", s.Uptime)
	b.logger.Printf("  Кадров получено: %d (%.1f/сек)", s.FramesReceived, float64(s.FramesReceived)/s.Uptime.Seconds())
	b.logger.Printf("  Команд отправлено: %d, подтверждено: %d, отклонено: %d", s.CommandsSent, s.ResponsesReceived, s.CommandErrors)
	b.logger.Printf("  Пересборок сцены: %d", s.Resends)
	b.logger.Printf("  Средний RTT: %v", s.AverageRTT)
	b.logger.Printf("  Ошибок: %d", s.Errors)
}
