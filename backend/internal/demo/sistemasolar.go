package demo

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"gallery3d/backend/internal/scene"
	"gallery3d/backend/internal/trail"
)

const (
	SistemaSolarName = "sistemaSolar"

	EarthRotationSpeed = 0.025
	EarthSunDistance   = 60
	MoonEarthDistance  = 20
	IssEarthDistance   = 10
	ApolloMoonDistance = 3

	earthTilt = 23 * math.Pi / 180
)

// Тона следов
const (
	EarthTrailHue = 0.15
	MoonTrailHue  = 0.45
	IssTrailHue   = 0.75
)

// SistemaSolar - Солнце, Земля с Луной, МКС и Аполлон на орбите Луны.
// Несколько камер привязаны к движущимся группам, за телами тянутся следы.
type SistemaSolar struct {
	base
	trailLength int

	sun            *scene.Node
	earth          *scene.Node
	moon           *scene.Node
	iss            *scene.Node
	apollo         *scene.Node
	earthMoonGroup *scene.Node
	moonGroup      *scene.Node
}

func NewSistemaSolar(opts Options) Demo {
	length := opts.TrailLength
	if length <= 0 {
		length = DefaultOptions().TrailLength
	}
	return &SistemaSolar{
		base: base{
			name:  SistemaSolarName,
			title: "Sistema Solar",
			description: "Земля вращается вокруг Солнца, Луна вокруг Земли, МКС и Аполлон " +
				"на своих орбитах. За Землей, Луной и МКС тянутся затухающие следы.\n\n" +
				"Клавиша `c` переключает камеры: общая, Земля, Луна, Аполлон, МКС.",
		},
		trailLength: length,
	}
}

func (d *SistemaSolar) Assets() []string {
	return []string{"/assets/" + SistemaSolarName + "/sistemaSolar.glb"}
}

func model(name, asset string) *scene.Node {
	n := scene.NewNode(name, scene.KindModel)
	n.Asset = asset
	return n
}

func (d *SistemaSolar) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{100, 100, 100}, 10000)

	sc.Add(hemisphereLight())

	sunLight := scene.NewNode("sunLight", scene.KindLight)
	sunLight.Light = &scene.Light{Type: scene.LightPoint, Color: scene.FromHex(0xff9933), Intensity: 1}
	sc.Add(sunLight)

	grid := scene.NewNode("grid", scene.KindGrid)
	grid.Helper = &scene.Helper{
		Size:      200,
		Divisions: 20,
		Color1:    scene.FromHex(0x666666),
		Color2:    scene.FromHex(0x333333),
	}
	sc.Add(grid)
	sc.Add(scene.NewAxes(1))

	// Все тела - узлы одной модели, клиент находит их по имени
	asset := d.Assets()[0]
	d.sun = model("sol", asset)
	d.apollo = model("apollo", asset)
	d.iss = model("iss", asset)
	d.earth = model("tierra", asset)
	d.moon = model("luna", asset)

	d.earthMoonGroup = scene.NewGroup("earthMoonGroup")
	d.earthMoonGroup.Add(scene.NewAxes(15))
	d.earthMoonGroup.Add(d.iss)
	d.earthMoonGroup.Add(d.earth)

	d.moonGroup = scene.NewGroup("moonGroup")
	d.moonGroup.Add(scene.NewAxes(7))
	d.moonGroup.Add(d.moon)
	d.moonGroup.Add(d.apollo)

	d.earthMoonGroup.Add(d.moonGroup)
	d.sun.Add(d.earthMoonGroup)
	sc.Add(d.sun)

	d.earth.SetPosition(0, 0, 0)
	d.earth.Rotation.Order = scene.OrderZYX
	d.earth.Rotation.Z = earthTilt

	d.moon.SetPosition(0, 0, 0)
	d.apollo.Rotation.Z = -math.Pi / 2

	d.addCamera("earthCam", d.earthMoonGroup, mgl64.Vec3{20, 20, 20}, mgl64.Vec3{0, 1, 0})
	d.addCamera("moonCam", d.moonGroup, mgl64.Vec3{10, 10, 10}, mgl64.Vec3{0, 1, 0})
	d.addCamera("apolloCam", d.apollo, mgl64.Vec3{0.3, 2, 0}, mgl64.Vec3{-1, 0, 0})
	d.addCamera("issCam", d.iss, mgl64.Vec3{0, -5, 0}, mgl64.Vec3{1, 0, 0})

	d.trails = []*TrackedTrail{
		d.newTrail("trailEarth", d.earth, EarthTrailHue),
		d.newTrail("trailMoon", d.moon, MoonTrailHue),
		d.newTrail("trailIss", d.iss, IssTrailHue),
	}
	return nil
}

// addCamera создает камеру, смотрящую на начало координат родителя
func (d *SistemaSolar) addCamera(name string, parent *scene.Node, pos, up mgl64.Vec3) {
	cam := scene.NewPerspectiveCamera(name, 50, 0.01, 10000)
	cam.Position = pos
	cam.Camera.Up = up
	cam.LookAt(mgl64.Vec3{})
	parent.Add(cam)
	d.cameras = append(d.cameras, cam)
}

func (d *SistemaSolar) newTrail(id string, target *scene.Node, hue float64) *TrackedTrail {
	return &TrackedTrail{
		ID:     id,
		Target: target,
		Trail:  trail.New(d.trailLength, mgl32.Vec3{}, hue),
	}
}

func (d *SistemaSolar) Animate(dt time.Duration) {
	d.t += dt.Seconds()
	t := d.t

	earthAngle := t * 0.1
	d.earthMoonGroup.SetPosition(
		EarthSunDistance*math.Cos(earthAngle),
		0,
		EarthSunDistance*math.Sin(earthAngle),
	)

	moonAngle := t * 0.5
	d.moonGroup.SetPosition(
		MoonEarthDistance*math.Cos(moonAngle),
		0,
		MoonEarthDistance*math.Sin(moonAngle),
	)
	d.moon.Rotation.Y = -moonAngle

	issAngle := t
	d.iss.SetPosition(
		IssEarthDistance*math.Cos(issAngle),
		IssEarthDistance*math.Sin(issAngle),
		0,
	)
	d.iss.Rotation.Z = issAngle + math.Pi/2

	d.earth.Rotation.Y += EarthRotationSpeed

	apolloAngle := -t * 0.2
	d.apollo.Rotation.Y = -apolloAngle
	d.apollo.SetPosition(
		ApolloMoonDistance*math.Cos(apolloAngle),
		0,
		ApolloMoonDistance*math.Sin(apolloAngle),
	)

	for _, tt := range d.trails {
		tt.Push()
	}
}
