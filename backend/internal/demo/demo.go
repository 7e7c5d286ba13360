package demo

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"gallery3d/backend/internal/scene"
	"gallery3d/backend/internal/trail"
)

var (
	ErrUnknownDemo    = errors.New("unknown demo")
	ErrUnknownCommand = errors.New("unknown command")
)

// Команды, общие для всех демо
const (
	CommandToggleCamera = "toggle_camera"
	CommandCameraKey    = "c" // клавиша переключения камеры
	CommandResetTrails  = "reset_trails"
)

// Demo - одна демонстрация галереи: собирает сцену и анимирует ее по кадрам
type Demo interface {
	Name() string
	Title() string
	Description() string // markdown
	Assets() []string    // пути к моделям, которые загружает клиент
	ClearColor() string

	// Setup вызывается один раз до первого кадра
	Setup(sc *scene.Scene) error
	// Animate выполняет один кадр анимации
	Animate(dt time.Duration)
	// HandleCommand применяет команду клиента
	HandleCommand(cmd string) error

	Cameras() []*scene.Node
	ActiveCamera() *scene.Node
	Trails() []*TrackedTrail
}

// TrackedTrail - след, привязанный к узлу сцены
type TrackedTrail struct {
	ID     string
	Target *scene.Node
	Trail  *trail.Trail
}

// Push добавляет в след текущую мировую позицию узла
func (tt *TrackedTrail) Push() {
	p := tt.Target.WorldPosition()
	tt.Trail.PushPosition(mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])})
}

// base содержит общее состояние демо: время, камеры и следы
type base struct {
	name        string
	title       string
	description string
	clearColor  string

	scene   *scene.Scene
	t       float64
	cameras []*scene.Node
	active  int
	trails  []*TrackedTrail
}

func (b *base) Name() string        { return b.name }
func (b *base) Title() string       { return b.title }
func (b *base) Description() string { return b.description }
func (b *base) Assets() []string    { return nil }

func (b *base) ClearColor() string {
	if b.clearColor == "" {
		return "#000000"
	}
	return b.clearColor
}

func (b *base) Cameras() []*scene.Node  { return b.cameras }
func (b *base) Trails() []*TrackedTrail { return b.trails }

func (b *base) ActiveCamera() *scene.Node {
	if len(b.cameras) == 0 {
		return nil
	}
	return b.cameras[b.active]
}

// Time возвращает внутреннее время демо
func (b *base) Time() float64 { return b.t }

// toggleCamera переключает активную камеру по кругу
func (b *base) toggleCamera() {
	if len(b.cameras) == 0 {
		return
	}
	b.active++
	if b.active >= len(b.cameras) {
		b.active = 0
	}
}

func (b *base) HandleCommand(cmd string) error {
	switch cmd {
	case CommandToggleCamera, CommandCameraKey:
		b.toggleCamera()
	case CommandResetTrails:
		for _, tt := range b.trails {
			tt.Trail.Reset()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return nil
}

// setupBase создает общую для всех демо глобальную камеру
func (b *base) setupBase(sc *scene.Scene, camPos [3]float64, far float64) {
	b.scene = sc

	// fov по умолчанию у перспективной камеры - 50
	cam := scene.NewPerspectiveCamera("camera", 50, 0.01, far)
	cam.SetPosition(camPos[0], camPos[1], camPos[2])
	cam.LookAt(mgl64.Vec3{})
	sc.Add(cam)
	b.cameras = append(b.cameras, cam)
}

// addHelpers добавляет свет, сетку и оси, общие для учебных демо
func addHelpers(sc *scene.Scene, gridSize float64, divisions int) {
	sc.Add(hemisphereLight())

	grid := scene.NewNode("grid", scene.KindGrid)
	grid.Helper = &scene.Helper{
		Size:      gridSize,
		Divisions: divisions,
		Color1:    scene.FromHex(0x444444),
		Color2:    scene.FromHex(0x888888),
	}
	sc.Add(grid)

	sc.Add(scene.NewAxes(1))
}

func hemisphereLight() *scene.Node {
	light := scene.NewNode("hemisphere", scene.KindLight)
	light.Light = &scene.Light{
		Type:        scene.LightHemisphere,
		Color:       scene.FromHex(0xffffff),
		GroundColor: scene.FromHex(0x444444),
		Intensity:   1,
	}
	return light
}
