package gallery

import (
	"fmt"

	"gallery3d/backend/internal/demo"
	"gallery3d/backend/internal/scene"
)

// TrailState - копия буферов следа на момент кадра
type TrailState struct {
	ID        string    `json:"id"`
	Hue       float64   `json:"hue"`
	Len       int       `json:"len"`
	Version   uint64    `json:"version"`
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
}

// Frame - неизменяемый снимок демо после очередного кадра.
// Подписчики получают один и тот же указатель и не должны его менять.
type Frame struct {
	Demo         string  `json:"demo"`
	Seq          uint64  `json:"seq"`
	Time         float64 `json:"time"`        // секунды анимации
	ServerTime   int64   `json:"server_time"` // мс
	SceneVersion uint64  `json:"scene_version"`
	ActiveCamera string  `json:"active_camera,omitempty"`
	// Имя камеры не зависит от экземпляра сцены, в отличие от ID
	ActiveCameraName string            `json:"active_camera_name,omitempty"`
	Nodes            []scene.NodeState `json:"nodes"`
	Trails           []TrailState      `json:"trails,omitempty"`
}

// TrailPoints возвращает суммарное число точек во всех следах кадра
func (f *Frame) TrailPoints() int {
	n := 0
	for _, t := range f.Trails {
		n += t.Len
	}
	return n
}

// Info - описание демо для клиентов
type Info struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ClearColor  string   `json:"clear_color"`
	Assets      []string `json:"assets,omitempty"`
	Cameras     []string `json:"cameras,omitempty"` // имена камер, как в Frame.ActiveCameraName
}

// Preview собирает сцену демо на пустом графе, чтобы описание включало камеры
func Preview(d demo.Demo) (Info, error) {
	if err := d.Setup(scene.New()); err != nil {
		return Info{}, fmt.Errorf("setup %s: %w", d.Name(), err)
	}
	return InfoOf(d), nil
}

// InfoOf собирает описание демо без запуска
func InfoOf(d demo.Demo) Info {
	info := Info{
		Name:        d.Name(),
		Title:       d.Title(),
		Description: d.Description(),
		ClearColor:  d.ClearColor(),
		Assets:      d.Assets(),
	}
	for _, c := range d.Cameras() {
		info.Cameras = append(info.Cameras, c.Name)
	}
	return info
}

func trailStates(trails []*demo.TrackedTrail) []TrailState {
	if len(trails) == 0 {
		return nil
	}
	out := make([]TrailState, 0, len(trails))
	for _, tt := range trails {
		out = append(out, TrailState{
			ID:        tt.ID,
			Hue:       tt.Trail.Hue(),
			Len:       tt.Trail.Len(),
			Version:   tt.Trail.Version(),
			Positions: append([]float32(nil), tt.Trail.Positions()...),
			Colors:    append([]float32(nil), tt.Trail.Colors()...),
		})
	}
	return out
}
