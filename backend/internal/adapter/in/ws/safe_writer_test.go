package ws

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gallery3d/backend/internal/scene"
)

// newEchoPair поднимает сервер, который пересылает прочитанные сообщения в канал
func newEchoPair(t *testing.T, expected int) (*websocket.Conn, <-chan []byte, func()) {
	t.Helper()

	received := make(chan []byte, expected)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		for i := 0; i < expected; i++ {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to connect to WebSocket server: %v", err)
	}

	return wsConn, received, func() {
		wsConn.Close()
		server.Close()
	}
}

func TestSafeWriter_WriteJSON_Concurrency(t *testing.T) {
	conn, received, cleanup := newEchoPair(t, 10)
	defer cleanup()

	writer := NewSafeWriter(conn)

	// Запускаем 10 горутин, каждая отправляет свое сообщение
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			time.Sleep(time.Duration(id) * time.Millisecond)

			msg := struct {
				ID  int    `json:"id"`
				Msg string `json:"msg"`
			}{ID: id, Msg: "Test message"}

			if err := writer.WriteJSON(msg); err != nil {
				t.Errorf("Error writing message: %v", err)
			}
		}(i)
	}
	wg.Wait()

	uniq := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		select {
		case msg := <-received:
			var decoded map[string]interface{}
			if err := json.Unmarshal(msg, &decoded); err != nil {
				t.Fatalf("Сообщение повреждено: %s", msg)
			}
			uniq[string(msg)] = struct{}{}
		case <-time.After(2 * time.Second):
			t.Fatalf("Получено только %d сообщений из 10", i)
		}
	}
	if len(uniq) != 10 {
		t.Errorf("Expected 10 unique messages, got %d", len(uniq))
	}
}

func TestSafeWriter_SanitizesNaN(t *testing.T) {
	conn, received, cleanup := newEchoPair(t, 1)
	defer cleanup()

	writer := NewSafeWriter(conn)

	shared := []float32{1, float32(math.NaN()), 3}
	msg := map[string]interface{}{
		"type": MessageTypeUpdate,
		"time": math.NaN(),
		"nodes": []interface{}{
			map[string]interface{}{
				"id":       "node_1",
				"position": []float64{math.Inf(1), 2, 3},
			},
		},
		"trails": []interface{}{
			map[string]interface{}{"positions": shared},
		},
	}

	if err := writer.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON вернул ошибку: %v", err)
	}

	var decoded struct {
		Time  float64 `json:"time"`
		Nodes []struct {
			Position []float64 `json:"position"`
		} `json:"nodes"`
		Trails []struct {
			Positions []float32 `json:"positions"`
		} `json:"trails"`
	}
	select {
	case raw := <-received:
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("Некорректный JSON: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Сообщение не получено")
	}

	if decoded.Time != 0 {
		t.Errorf("NaN должен стать 0, получили %v", decoded.Time)
	}
	if decoded.Nodes[0].Position[0] != 0 || decoded.Nodes[0].Position[1] != 2 {
		t.Errorf("Неверная позиция: %v", decoded.Nodes[0].Position)
	}
	if got := decoded.Trails[0].Positions; got[1] != 0 || got[2] != 3 {
		t.Errorf("Неверный буфер следа: %v", got)
	}
	if !math.IsNaN(float64(shared[1])) {
		t.Error("Исходный буфер следа не должен меняться")
	}
}

func TestSafeWriter_SanitizesStructs(t *testing.T) {
	conn, received, cleanup := newEchoPair(t, 2)
	defer cleanup()

	writer := NewSafeWriter(conn)

	node := scene.NodeDescriptor{
		NodeState: scene.NodeState{
			ID:       "node_7",
			Name:     "cube",
			Position: [3]float64{math.NaN(), 1, 2},
			Scale:    [3]float64{1, 1, 1},
		},
		Geometry: &scene.GeometryDescriptor{
			Type:     scene.GeometryBox,
			Width:    math.Inf(1),
			Vertices: []float32{float32(math.NaN()), 5},
		},
	}

	// Структура внутри map (create) и структура сама по себе
	if err := writer.WriteJSON(NewCreateMessage(node, 3)); err != nil {
		t.Fatalf("WriteJSON(create) вернул ошибку: %v", err)
	}
	if err := writer.WriteJSON(node); err != nil {
		t.Fatalf("WriteJSON(struct) вернул ошибку: %v", err)
	}

	var create struct {
		Type string               `json:"type"`
		Node scene.NodeDescriptor `json:"node"`
	}
	var plain scene.NodeDescriptor
	for i, target := range []interface{}{&create, &plain} {
		select {
		case raw := <-received:
			if err := json.Unmarshal(raw, target); err != nil {
				t.Fatalf("Некорректный JSON в сообщении %d: %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Сообщение %d не получено", i)
		}
	}

	for _, got := range []scene.NodeDescriptor{create.Node, plain} {
		if got.ID != "node_7" || got.Name != "cube" {
			t.Errorf("Потеряны поля узла: %+v", got.NodeState)
		}
		if got.Position != [3]float64{0, 1, 2} {
			t.Errorf("NaN в позиции должен стать 0, получили %v", got.Position)
		}
		if got.Geometry == nil || got.Geometry.Width != 0 || got.Geometry.Vertices[0] != 0 || got.Geometry.Vertices[1] != 5 {
			t.Errorf("Неверная геометрия: %+v", got.Geometry)
		}
	}
	if create.Type != MessageTypeCreate {
		t.Errorf("Ожидали тип create, получили %q", create.Type)
	}
	if !math.IsNaN(node.Position[0]) || !math.IsNaN(float64(node.Geometry.Vertices[0])) {
		t.Error("Исходный дескриптор не должен меняться")
	}
}

func TestSafeWriter_Close(t *testing.T) {
	conn, _, cleanup := newEchoPair(t, 1)
	defer cleanup()

	writer := NewSafeWriter(conn)
	if err := writer.Close(); err != nil {
		t.Errorf("Error closing connection: %v", err)
	}

	// Попытка записи в закрытое соединение должна вернуть ошибку
	if err := writer.WriteJSON("test"); err == nil {
		t.Error("Expected error when writing to closed connection, got nil")
	}
}
