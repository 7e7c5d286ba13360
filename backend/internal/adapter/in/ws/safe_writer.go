package ws

import (
	"encoding/json"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		conn: conn,
	}
}

// WriteJSON потокобезопасно отправляет JSON данные через WebSocket
func (w *SafeWriter) WriteJSON(v interface{}) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		// Ошибка сериализации из-за NaN: обходим структуру и заменяем NaN на 0
		// Структуры (create, info) копируются через reflect с сохранением json-тегов
		var clean interface{}
		if mapData, ok := v.(map[string]interface{}); ok {
			sanitizeMapValues(mapData)
			clean = mapData
		} else {
			clean = sanitizeCopy(reflect.ValueOf(v)).Interface()
		}
		if jsonData, err = json.Marshal(clean); err != nil {
			return err
		}
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, jsonData)
}

// sanitizeMapValues рекурсивно обходит map и заменяет NaN и бесконечности на 0
func sanitizeMapValues(data map[string]interface{}) {
	for k, v := range data {
		data[k] = sanitizeValue(v)
	}
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if bad(val) {
			return 0.0
		}
	case float32:
		if bad(float64(val)) {
			return float32(0)
		}
	case map[string]interface{}:
		sanitizeMapValues(val)
	case []interface{}:
		for i, item := range val {
			val[i] = sanitizeValue(item)
		}
	case []float64:
		out := make([]float64, len(val))
		for i, f := range val {
			if !bad(f) {
				out[i] = f
			}
		}
		return out
	case []float32:
		// Буферы следов общие для всех подписчиков кадра, поэтому копируем
		out := make([]float32, len(val))
		for i, f := range val {
			if !bad(float64(f)) {
				out[i] = f
			}
		}
		return out
	case nil:
		return nil
	default:
		// структуры внутри map, например дескриптор узла в create
		return sanitizeCopy(reflect.ValueOf(v)).Interface()
	}
	return v
}

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// sanitizeCopy возвращает копию значения того же типа, где NaN и бесконечности заменены на 0.
// Исходное значение не меняется: дескрипторы и буферы могут быть общими.
func sanitizeCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if v.Type().Implements(marshalerType) {
		return v
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		if bad(v.Float()) {
			return reflect.Zero(v.Type())
		}
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(sanitizeCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(sanitizeCopy(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			// неэкспортируемые поля json не видит, оставляем как есть
			if !v.Type().Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(sanitizeCopy(v.Field(i)))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(sanitizeCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(sanitizeCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), sanitizeCopy(iter.Value()))
		}
		return out
	}
	return v
}

func bad(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}

// SendJSON отправляет JSON данные через WebSocket (алиас для WriteJSON)
func (w *SafeWriter) SendJSON(v interface{}) error {
	return w.WriteJSON(v)
}
