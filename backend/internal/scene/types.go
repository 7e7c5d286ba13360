package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
)

// Kind определяет, чем является узел сцены на стороне клиента
type Kind string

const (
	KindGroup  Kind = "group"
	KindMesh   Kind = "mesh"
	KindModel  Kind = "model"  // модель, загружаемая клиентом по пути к ассету
	KindLight  Kind = "light"  // источник света
	KindCamera Kind = "camera" // перспективная камера
	KindGrid   Kind = "grid"   // сетка-помощник
	KindAxes   Kind = "axes"   // оси-помощник
)

// GeometryType - тип геометрии меша
type GeometryType string

const (
	GeometryBox    GeometryType = "box"
	GeometryBuffer GeometryType = "buffer"
)

// Geometry описывает геометрию меша
type Geometry struct {
	Type   GeometryType
	Width  float64
	Height float64
	Depth  float64

	// Для GeometryBuffer: плоские массивы по 3 float на вершину
	Vertices []float32
	Normals  []float32
}

// Material описывает материал меша
type Material struct {
	Type      string // "phong", "basic"
	Color     colorful.Color
	Specular  colorful.Color
	Shininess float64
}

// LightType - тип источника света
type LightType string

const (
	LightHemisphere  LightType = "hemisphere"
	LightPoint       LightType = "point"
	LightDirectional LightType = "directional"
)

// Light описывает источник света
type Light struct {
	Type        LightType
	Color       colorful.Color
	GroundColor colorful.Color // только для hemisphere
	Intensity   float64
}

// Camera описывает параметры перспективной камеры
type Camera struct {
	Fov  float64
	Near float64
	Far  float64
	Up   mgl64.Vec3
}

// Helper описывает параметры сетки или осей
type Helper struct {
	Size      float64
	Divisions int
	Color1    colorful.Color
	Color2    colorful.Color
}

// Hex преобразует цвет в строку вида #rrggbb
func Hex(c colorful.Color) string {
	return c.Clamped().Hex()
}

// FromHex разбирает цвет вида 0xrrggbb, записанный как целое число
func FromHex(v uint32) colorful.Color {
	return colorful.Color{
		R: float64((v>>16)&0xff) / 255,
		G: float64((v>>8)&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}
