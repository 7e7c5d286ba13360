package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gallery3d/backend/internal/config"
	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/gallery"
)

const commandTimeout = 2 * time.Second

// StreamSettings задает частоту отправки данных клиенту
type StreamSettings struct {
	Interval      time.Duration // обновления преобразований
	TrailInterval time.Duration // буферы следов
	PingInterval  time.Duration
}

// DefaultStreamSettings берет значения из текущей конфигурации
func DefaultStreamSettings() StreamSettings {
	cfg := config.GetStream()
	return StreamSettings{
		Interval:      cfg.Interval(),
		TrailInterval: cfg.TrailInterval(),
		PingInterval:  cfg.PingInterval(),
	}
}

// HandlerFunc обрабатывает одно входящее сообщение
type HandlerFunc func(s *Session, message map[string]interface{}) error

// Session - одно WebSocket соединение, подписанное на демо
type Session struct {
	writer  *SafeWriter
	runtime *gallery.Runtime
	ctx     context.Context

	// Используются только горутиной отправки
	sceneVersion uint64
	lastTrails   time.Time
}

// WSAdapter адаптер для WebSocket соединений
type WSAdapter struct {
	upgrader websocket.Upgrader
	handlers map[string]HandlerFunc
	manager  *gallery.Manager
	stream   StreamSettings
	logger   *log.Logger

	clients   map[*Session]bool // Для хранения активных клиентов
	clientsMu sync.Mutex
}

// NewWSAdapter создает новый экземпляр WSAdapter
func NewWSAdapter(manager *gallery.Manager, stream StreamSettings, logger *log.Logger) *WSAdapter {
	if logger == nil {
		logger = log.Default()
	}
	def := DefaultStreamSettings()
	if stream.Interval <= 0 {
		stream.Interval = def.Interval
	}
	if stream.TrailInterval <= 0 {
		stream.TrailInterval = def.TrailInterval
	}
	if stream.PingInterval <= 0 {
		stream.PingInterval = def.PingInterval
	}

	a := &WSAdapter{
		manager: manager,
		stream:  stream,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]HandlerFunc),
		clients:  make(map[*Session]bool),
	}
	a.RegisterHandlers()
	return a
}

// Handle регистрирует обработчик для типа сообщения
func (a *WSAdapter) Handle(messageType string, h HandlerFunc) {
	a.handlers[messageType] = h
}

// RegisterHandlers регистрирует обработчики сообщений
func (a *WSAdapter) RegisterHandlers() {
	// Обработчик команд
	a.Handle(MessageTypeCommand, func(s *Session, message map[string]interface{}) error {
		cmd, ok := message["cmd"].(string)
		if !ok || cmd == "" {
			return fmt.Errorf("неверный формат команды: %v", message["cmd"])
		}
		clientTime, _ := message["client_time"].(float64)

		ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
		defer cancel()

		if err := s.runtime.Command(ctx, cmd); err != nil {
			if errors.Is(err, demo.ErrUnknownCommand) {
				return s.writer.SendJSON(NewErrorMessage(cmd, err))
			}
			return fmt.Errorf("команда %s: %w", cmd, err)
		}
		return s.writer.SendJSON(NewAckMessage(cmd, clientTime))
	})

	// Обработчик ping-сообщений
	a.Handle(MessageTypePing, func(s *Session, message map[string]interface{}) error {
		var clientTime float64
		if ct, ok := message["client_time"].(float64); ok {
			clientTime = ct
		} else if ct, ok := message["clientTime"].(float64); ok {
			clientTime = ct
		} else {
			clientTime = float64(GetCurrentServerTime())
		}
		return s.writer.SendJSON(NewPongMessage(clientTime))
	})

	// Ответ клиента на серверный пинг
	a.Handle(MessageTypePong, func(s *Session, message map[string]interface{}) error {
		if st, ok := message["server_time"].(float64); ok {
			rtt := GetCurrentServerTime() - int64(st)
			a.logger.Printf("[WSAdapter] %s: RTT %d мс", s.runtime.DemoName(), rtt)
		}
		return nil
	})
}

// HandleWS обрабатывает WebSocket соединения: /ws?demo=<имя>
func (a *WSAdapter) HandleWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("demo")
	if name == "" {
		if names := a.manager.Names(); len(names) > 0 {
			name = names[0]
		}
	}

	runtime, err := a.manager.Get(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, demo.ErrUnknownDemo) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Printf("[WSAdapter] Ошибка при установке WebSocket соединения: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	s := &Session{
		writer:  NewSafeWriter(conn),
		runtime: runtime,
		ctx:     ctx,
	}

	a.clientsMu.Lock()
	a.clients[s] = true
	a.clientsMu.Unlock()

	a.logger.Printf("[WSAdapter] Клиент %s подключен к демо %s", r.RemoteAddr, name)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()

		a.clientsMu.Lock()
		delete(a.clients, s)
		a.clientsMu.Unlock()
		conn.Close()
		a.logger.Printf("[WSAdapter] Клиент %s отключен", r.RemoteAddr)
	}()

	if err := s.writer.SendJSON(NewInfoMessage(runtime.Info(), a.manager.Names())); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка отправки info: %v", err)
		return
	}
	if err := a.sendScene(s, false); err != nil {
		a.logger.Printf("[WSAdapter] Ошибка отправки сцены: %v", err)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Закрытие соединения прерывает цикл чтения, если отправка упала
		defer s.writer.Close()
		a.streamFrames(s)
	}()

	// Обрабатываем входящие сообщения
	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Printf("[WSAdapter] Ошибка при чтении сообщения: %v", err)
			}
			return
		}

		messageType, ok := message["type"].(string)
		if !ok {
			a.logger.Printf("[WSAdapter] Получено сообщение без типа: %v", message)
			continue
		}

		handler, ok := a.handlers[messageType]
		if !ok {
			a.logger.Printf("[WSAdapter] Нет обработчика для типа сообщения: %s", messageType)
			_ = s.writer.SendJSON(NewErrorMessage("", fmt.Errorf("неизвестный тип сообщения: %s", messageType)))
			continue
		}

		if err := handler(s, message); err != nil {
			a.logger.Printf("[WSAdapter] Ошибка обработки сообщения типа %s: %v", messageType, err)
			_ = s.writer.SendJSON(NewErrorMessage("", err))
		}
	}
}

// sendScene отправляет описание каждого узла. resend - сначала попросить
// клиента удалить ранее созданные узлы.
func (a *WSAdapter) sendScene(s *Session, resend bool) error {
	nodes, version := s.runtime.Describe()

	if resend {
		if err := s.writer.SendJSON(NewClearMessage(version)); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		if err := s.writer.SendJSON(NewCreateMessage(n, version)); err != nil {
			return fmt.Errorf("узел %s: %w", n.ID, err)
		}
	}
	s.sceneVersion = version
	return nil
}

// streamFrames отправляет клиенту кадры не чаще Interval и пингует его
func (a *WSAdapter) streamFrames(s *Session) {
	frames, unsubscribe := s.runtime.Subscribe()
	defer unsubscribe()

	tick := time.NewTicker(a.stream.Interval)
	defer tick.Stop()
	ping := time.NewTicker(a.stream.PingInterval)
	defer ping.Stop()

	var pending *gallery.Frame
	for {
		select {
		case <-s.ctx.Done():
			return

		case f, ok := <-frames:
			if !ok {
				return
			}
			pending = f

		case <-tick.C:
			if pending == nil {
				continue
			}
			if err := a.sendFrame(s, pending); err != nil {
				a.logger.Printf("[WSAdapter] Ошибка отправки кадра: %v", err)
				return
			}
			pending = nil

		case <-ping.C:
			if err := s.writer.SendJSON(NewPingMessage()); err != nil {
				return
			}
		}
	}
}

func (a *WSAdapter) sendFrame(s *Session, f *gallery.Frame) error {
	if f.SceneVersion > s.sceneVersion {
		if err := a.sendScene(s, true); err != nil {
			return err
		}
	}

	withTrails := time.Since(s.lastTrails) >= a.stream.TrailInterval
	if withTrails {
		s.lastTrails = time.Now()
	}
	return s.writer.SendJSON(NewUpdateMessage(f, withTrails))
}

// ClientCount возвращает число подключенных клиентов
func (a *WSAdapter) ClientCount() int {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()
	return len(a.clients)
}

// CloseAll закрывает все соединения, например при остановке сервера
func (a *WSAdapter) CloseAll() {
	a.clientsMu.Lock()
	defer a.clientsMu.Unlock()

	for s := range a.clients {
		s.writer.Close()
	}
}
