// Команда viewer: терминальный клиент галереи. Подключается к серверу по
// WebSocket и рисует демо сверху в плоскости X-Z вместе со следами.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"gallery3d/backend/internal/adapter/in/ws"
)

const redrawInterval = 50 * time.Millisecond

// keyCommands - клавиши, которые отправляются серверу командами демо
var keyCommands = map[rune]string{
	'c': "c",
	'r': "reset_trails",
	'a': "assemble",
	'l': "layout",
}

func main() {
	var (
		server   string
		demoName string
	)

	cmd := &cobra.Command{
		Use:          "viewer",
		Short:        "Терминальный просмотр демо галереи",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, server, demoName)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "localhost:8080", "адрес HTTP сервера галереи")
	cmd.Flags().StringVarP(&demoName, "demo", "d", "sistemaSolar", "имя демо")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, server, demoName string) error {
	u := url.URL{Scheme: "ws", Host: server, Path: "/ws", RawQuery: url.Values{"demo": {demoName}}.Encode()}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("подключение к %s: %w (HTTP %d)", u.String(), err, resp.StatusCode)
		}
		return fmt.Errorf("подключение к %s: %w", u.String(), err)
	}
	writer := ws.NewSafeWriter(conn)
	defer writer.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	// Логи поверх экрана ломают отрисовку
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v := newView()
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(ctx, conn, writer, v)
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	send := func(msg map[string]interface{}) {
		msg["client_time"] = float64(ws.GetCurrentServerTime())
		_ = writer.WriteJSON(msg)
	}

	redraw := time.NewTicker(redrawInterval)
	defer redraw.Stop()
	ping := time.NewTicker(2 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-ping.C:
			send(map[string]interface{}{"type": ws.MessageTypePing})
		case <-redraw.C:
			v.draw(screen)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return nil
				}
				switch ev.Rune() {
				case '+', '=':
					v.setZoom(1.25)
				case '-':
					v.setZoom(0.8)
				default:
					if name, ok := keyCommands[ev.Rune()]; ok {
						send(map[string]interface{}{"type": ws.MessageTypeCommand, "cmd": name})
					}
				}
			}
		}
	}
}

// readLoop читает сообщения сервера, применяет их к модели и отвечает на пинги
func readLoop(ctx context.Context, conn *websocket.Conn, writer *ws.SafeWriter, v *view) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("соединение закрыто: %w", err)
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == ws.MessageTypePing {
			_ = writer.WriteJSON(map[string]interface{}{
				"type":        ws.MessageTypePong,
				"server_time": msg.ServerTime,
			})
			continue
		}
		v.apply(msg, float64(ws.GetCurrentServerTime()))
	}
}
