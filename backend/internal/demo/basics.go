package demo

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"gallery3d/backend/internal/scene"
)

const (
	TemplateName           = "template"
	HolaMundoName          = "holaMundo"
	EjercicioHolaMundoName = "ejercicioHolaMundo"
	BufferGeometryName     = "bufferGeometry"

	// Шаг времени на кадр в учебных демо
	frameTimeStep = 0.006
)

// Template - пустая сцена-заготовка: свет, сетка и оси
type Template struct {
	base
}

func NewTemplate(Options) Demo {
	return &Template{base: base{
		name:  TemplateName,
		title: "Template",
		description: "Пустая сцена-заготовка для новых демо: полусферический свет, " +
			"сетка 8×8 и оси.",
	}}
}

func (d *Template) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{7, 7, 7}, 100)
	addHelpers(sc, 8, 8)
	return nil
}

func (d *Template) Animate(time.Duration) {
	d.t += frameTimeStep
}

// HolaMundo - куб, который летает по кругу, вращается и меняет цвет
type HolaMundo struct {
	base
	cube *scene.Node
}

func NewHolaMundo(Options) Demo {
	return &HolaMundo{base: base{
		name:  HolaMundoName,
		title: "Hola Mundo",
		description: "Куб движется по орбите радиусом 4, равномерно вращается вокруг " +
			"своей оси Y, а красный и синий каналы его цвета колеблются между 0 и 1.",
	}}
}

func newCube(color uint32) *scene.Node {
	cube := scene.NewNode("cube", scene.KindMesh)
	cube.Geometry = &scene.Geometry{Type: scene.GeometryBox, Width: 1, Height: 1, Depth: 1}
	cube.Material = &scene.Material{Type: "phong", Color: scene.FromHex(color)}
	return cube
}

func (d *HolaMundo) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{7, 7, 7}, 100)
	addHelpers(sc, 8, 8)

	d.cube = newCube(0xaa00ff)
	sc.Add(d.cube)
	return nil
}

func (d *HolaMundo) Animate(time.Duration) {
	d.t += frameTimeStep

	d.cube.SetPosition(4*math.Cos(d.t), 0, 4*math.Sin(d.t))

	// Постоянный поворот, без ускорения
	d.cube.RotateY(0.013)

	d.cube.Material.Color = CubeColor(d.t)
}

// CubeColor возвращает цвет куба в момент t: красный и синий
// каналы колеблются в противофазе, зеленый постоянен
func CubeColor(t float64) colorful.Color {
	s, c := math.Sincos(t)
	return colorful.Color{
		R: s/2 + 0.5,
		G: 0.3,
		B: c/2 + 0.5,
	}
}

// EjercicioHolaMundo - неподвижный куб в начале координат (заготовка упражнения)
type EjercicioHolaMundo struct {
	base
	cube *scene.Node
}

func NewEjercicioHolaMundo(Options) Demo {
	return &EjercicioHolaMundo{base: base{
		name:        EjercicioHolaMundoName,
		title:       "Ejercicio: Hola Mundo",
		description: "Упражнение: неподвижный пурпурный куб. Анимацию нужно дописать.",
	}}
}

func (d *EjercicioHolaMundo) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{7, 7, 7}, 100)
	addHelpers(sc, 8, 8)

	d.cube = newCube(0xff00ff)
	sc.Add(d.cube)
	return nil
}

func (d *EjercicioHolaMundo) Animate(time.Duration) {
	d.cube.SetPosition(0, 0, 0)
	d.cube.RotateY(0)
}

// BufferGeometry - квадрат 20×20, заданный явными вершинами и нормалями
type BufferGeometry struct {
	base
	plane *scene.Node
}

func NewBufferGeometry(Options) Demo {
	return &BufferGeometry{base: base{
		name:  BufferGeometryName,
		title: "Buffer Geometry",
		description: "Квадрат из двух треугольников, заданный буферами вершин и нормалей. " +
			"Верхняя левая и нижняя правая вершины повторяются, потому что каждая " +
			"вершина входит в треугольник отдельно.",
	}}
}

// PlaneVertices возвращает вершины квадрата 20×20 в плоскости XZ
func PlaneVertices() []float32 {
	return []float32{
		-10, 0, -10,
		10, 0, 10,
		10, 0, -10,

		10, 0, 10,
		-10, 0, -10,
		-10, 0, 10,
	}
}

func (d *BufferGeometry) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{7, 7, 7}, 100)
	addHelpers(sc, 8, 8)

	vertices := PlaneVertices()
	normals := make([]float32, len(vertices))
	for i := 0; i < len(normals); i += 3 {
		normals[i+1] = 1
	}

	d.plane = scene.NewNode("plane", scene.KindMesh)
	d.plane.Geometry = &scene.Geometry{
		Type:     scene.GeometryBuffer,
		Vertices: vertices,
		Normals:  normals,
	}
	d.plane.Material = &scene.Material{
		Type:      "phong",
		Color:     scene.FromHex(0x994400),
		Specular:  scene.FromHex(0x888888),
		Shininess: 16,
	}
	sc.Add(d.plane)
	return nil
}

func (d *BufferGeometry) Animate(time.Duration) {
	d.t += frameTimeStep
}
