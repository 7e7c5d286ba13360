package ws

import (
	"time"

	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/scene"
)

// Константы для WebSocket сообщений
const (
	// Типы сообщений
	MessageTypeInfo    = "info"    // Описание демо
	MessageTypeCreate  = "create"  // Полное описание узла сцены
	MessageTypeClear   = "clear"   // Структура сцены изменилась, клиент удаляет узлы
	MessageTypeUpdate  = "update"  // Преобразования, цвета, следы
	MessageTypePing    = "ping"    // Пинг для измерения задержки
	MessageTypePong    = "pong"    // Ответ на пинг
	MessageTypeCommand = "cmd"     // Команда от клиента
	MessageTypeAck     = "cmd_ack" // Подтверждение команды
	MessageTypeError   = "error"   // Ошибка обработки сообщения
)

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// NewPongMessage создает новое сообщение-ответ на пинг
func NewPongMessage(clientTime float64) map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypePong,
		"client_time": clientTime,
		"server_time": GetCurrentServerTime(),
	}
}

// NewPingMessage создает пинг от сервера
func NewPingMessage() map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypePing,
		"server_time": GetCurrentServerTime(),
	}
}

// NewAckMessage создает новое сообщение-подтверждение команды
func NewAckMessage(cmd string, clientTime float64) map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypeAck,
		"cmd":         cmd,
		"client_time": clientTime,
		"server_time": GetCurrentServerTime(),
	}
}

// NewErrorMessage создает сообщение об ошибке
func NewErrorMessage(cmd string, err error) map[string]interface{} {
	msg := map[string]interface{}{
		"type":        MessageTypeError,
		"message":     err.Error(),
		"server_time": GetCurrentServerTime(),
	}
	if cmd != "" {
		msg["cmd"] = cmd
	}
	return msg
}

// NewInfoMessage создает описание демо
func NewInfoMessage(info gallery.Info, demos []string) map[string]interface{} {
	return map[string]interface{}{
		"type":        MessageTypeInfo,
		"demo":        info,
		"demos":       demos,
		"server_time": GetCurrentServerTime(),
	}
}

// NewCreateMessage создает сообщение о создании узла
func NewCreateMessage(node scene.NodeDescriptor, sceneVersion uint64) map[string]interface{} {
	return map[string]interface{}{
		"type":          MessageTypeCreate,
		"id":            node.ID,
		"node":          node,
		"scene_version": sceneVersion,
		"server_time":   GetCurrentServerTime(),
	}
}

// NewClearMessage сообщает клиенту, что сцена будет отправлена заново
func NewClearMessage(sceneVersion uint64) map[string]interface{} {
	return map[string]interface{}{
		"type":          MessageTypeClear,
		"scene_version": sceneVersion,
		"server_time":   GetCurrentServerTime(),
	}
}

// NewUpdateMessage создает обновление кадра. Следы включаются, только если
// withTrails, потому что их буферы намного больше преобразований.
func NewUpdateMessage(f *gallery.Frame, withTrails bool) map[string]interface{} {
	nodes := make([]interface{}, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		nodes = append(nodes, nodeUpdate(n))
	}

	msg := map[string]interface{}{
		"type":               MessageTypeUpdate,
		"seq":                f.Seq,
		"time":               f.Time,
		"server_time":        f.ServerTime,
		"scene_version":      f.SceneVersion,
		"active_camera":      f.ActiveCamera,
		"active_camera_name": f.ActiveCameraName,
		"nodes":              nodes,
	}

	if withTrails && len(f.Trails) > 0 {
		trails := make([]interface{}, 0, len(f.Trails))
		for _, t := range f.Trails {
			trails = append(trails, map[string]interface{}{
				"id":        t.ID,
				"hue":       t.Hue,
				"len":       t.Len,
				"version":   t.Version,
				"positions": t.Positions,
				"colors":    t.Colors,
			})
		}
		msg["trails"] = trails
	}
	return msg
}

func nodeUpdate(n scene.NodeState) map[string]interface{} {
	m := map[string]interface{}{
		"id":       n.ID,
		"visible":  n.Visible,
		"position": n.Position[:],
		"rotation": n.Rotation[:],
		"scale":    n.Scale[:],
		"world":    n.World[:],
	}
	if n.Color != "" {
		m["color"] = n.Color
	}
	return m
}
