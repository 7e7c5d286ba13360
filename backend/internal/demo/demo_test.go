package demo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery3d/backend/internal/scene"
)

func setup(t *testing.T, name string, opts Options) (Demo, *scene.Scene) {
	t.Helper()
	d, err := DefaultRegistry().New(name, opts)
	require.NoError(t, err)

	sc := scene.New()
	require.NoError(t, d.Setup(sc))
	return d, sc
}

func assertVec(t *testing.T, expected, actual mgl64.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, expected[i], actual[i], 1e-6, "component %d of %v", i, actual)
	}
}

func TestRegistry_OrderAndUnknown(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{
		TemplateName, HolaMundoName, EjercicioHolaMundoName,
		BufferGeometryName, PalaMecanicaName, SistemaSolarName,
	}, r.Names())

	_, err := r.New("nope", DefaultOptions())
	assert.True(t, errors.Is(err, ErrUnknownDemo))
}

func TestAllDemos_SetupAndAnimate(t *testing.T) {
	for _, name := range DefaultRegistry().Names() {
		t.Run(name, func(t *testing.T) {
			d, sc := setup(t, name, DefaultOptions())
			assert.Equal(t, name, d.Name())
			assert.NotEmpty(t, d.Title())
			assert.NotEmpty(t, sc.Nodes())
			require.NotNil(t, d.ActiveCamera())

			for i := 0; i < 10; i++ {
				d.Animate(16 * time.Millisecond)
			}
		})
	}
}

func TestHolaMundo_OrbitAndColor(t *testing.T) {
	d, sc := setup(t, HolaMundoName, DefaultOptions())

	const frames = 100
	for i := 0; i < frames; i++ {
		d.Animate(time.Millisecond)
	}

	tm := frames * frameTimeStep
	cube := sc.Find("cube")
	require.NotNil(t, cube)
	assertVec(t, mgl64.Vec3{4 * math.Cos(tm), 0, 4 * math.Sin(tm)}, cube.Position)
	assert.InDelta(t, frames*0.013, cube.Rotation.Y, 1e-6)

	c := cube.Material.Color
	assert.InDelta(t, math.Sin(tm)/2+0.5, c.R, 1e-5)
	assert.InDelta(t, 0.3, c.G, 1e-9)
	assert.InDelta(t, math.Cos(tm)/2+0.5, c.B, 1e-5)
	assert.InDelta(t, tm, d.(*HolaMundo).Time(), 1e-9)
}

func TestCubeColor_LongRunning(t *testing.T) {
	// После суток анимации цвет должен считаться с полной точностью
	for _, tm := range []float64{0, 1, 86400.123, 1e6 + 0.5} {
		c := CubeColor(tm)
		assert.InDelta(t, math.Sin(tm)/2+0.5, c.R, 1e-12, "t=%v", tm)
		assert.InDelta(t, math.Cos(tm)/2+0.5, c.B, 1e-12, "t=%v", tm)
		assert.True(t, c.IsValid(), "t=%v", tm)
	}
}

func TestBufferGeometry_PlaneFacesUp(t *testing.T) {
	_, sc := setup(t, BufferGeometryName, DefaultOptions())

	plane := sc.Find("plane")
	require.NotNil(t, plane)
	g := plane.Geometry
	require.Len(t, g.Vertices, 18)
	require.Len(t, g.Normals, 18)
	for i := 0; i < 18; i += 3 {
		assert.Equal(t, []float32{0, 1, 0}, g.Normals[i:i+3])
		assert.Equal(t, float32(0), g.Vertices[i+1])
	}
	assert.Equal(t, 16.0, plane.Material.Shininess)
}

func TestPalaMecanica_Layout(t *testing.T) {
	d, sc := setup(t, PalaMecanicaName, DefaultOptions())
	assert.Len(t, d.Assets(), len(ShovelPieces))

	for i, name := range ShovelPieces {
		n := sc.Find(name)
		require.NotNil(t, n, name)
		assert.Equal(t, float64(i*100-450), n.Position[0], name)
		assert.Equal(t, ModelPath(name), n.Asset)
	}
	assert.False(t, d.(*PalaMecanica).Assembled())
}

func TestPalaMecanica_AssembledHierarchy(t *testing.T) {
	d, sc := setup(t, PalaMecanicaName, Options{ShovelAssembled: true})
	pm := d.(*PalaMecanica)
	require.True(t, pm.Assembled())

	vehicle := sc.Find("vehiculo")
	require.NotNil(t, vehicle)

	// Кабина перенесена в группу машины, но осталась на высоте 25
	cabina := sc.Find("cabina")
	assert.Same(t, vehicle, cabina.Parent())
	assertVec(t, mgl64.Vec3{0, 25, 0}, cabina.WorldPosition())

	// Ковш: кабина -> стрела (повернута на -45° по Z) -> рукоять -> ковш
	pala := sc.Find("pala")
	r := -math.Pi / 4
	reach := -162.0
	expected := mgl64.Vec3{20 + reach*math.Cos(r), 45 + reach*math.Sin(r), -10}
	assertVec(t, expected, pala.WorldPosition())

	// У каждой оси по два колеса, осей две
	var wheels, axles int
	sc.Root().Walk(func(n *scene.Node) {
		switch n.Name {
		case "llanta":
			wheels++
		case "eje":
			axles++
		}
	})
	assert.Equal(t, 2, axles)
	assert.Equal(t, 4, wheels)

	// Зеркальное колесо: y смещения и масштаб по y отрицательны
	eje := sc.Find("eje")
	var mirrored *scene.Node
	for _, c := range eje.Children() {
		if c.Name == "llanta" && c.Scale[1] < 0 {
			mirrored = c
		}
	}
	require.NotNil(t, mirrored)
	assert.Equal(t, -25.0, mirrored.Position[1])
}

func TestPalaMecanica_ToggleCommands(t *testing.T) {
	d, sc := setup(t, PalaMecanicaName, DefaultOptions())
	v0 := sc.Version()

	require.NoError(t, d.HandleCommand(CommandAssemble))
	assert.NotNil(t, sc.Find("vehiculo"))
	assert.Greater(t, sc.Version(), v0)

	require.NoError(t, d.HandleCommand(CommandLayout))
	assert.Nil(t, sc.Find("vehiculo"))
	assert.Equal(t, -450.0, sc.Find("antebrazo").Position[0])

	err := d.HandleCommand("dig")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}

func TestSistemaSolar_OrbitsAndTrails(t *testing.T) {
	d, sc := setup(t, SistemaSolarName, Options{TrailLength: 50})

	for i := 0; i < 100; i++ {
		d.Animate(100 * time.Millisecond)
	}
	tm := 10.0

	earth := sc.Find("tierra")
	group := sc.Find("earthMoonGroup")
	assertVec(t, mgl64.Vec3{60 * math.Cos(tm*0.1), 0, 60 * math.Sin(tm*0.1)}, group.Position)
	assertVec(t, group.Position, earth.WorldPosition())
	assert.InDelta(t, 100*EarthRotationSpeed, earth.Rotation.Y, 1e-9)
	assert.InDelta(t, earthTilt, earth.Rotation.Z, 1e-9)

	iss := sc.Find("iss")
	assertVec(t, mgl64.Vec3{10 * math.Cos(tm), 10 * math.Sin(tm), 0}, iss.Position)

	moon := sc.Find("luna")
	expectedMoon := group.Position.Add(mgl64.Vec3{20 * math.Cos(tm*0.5), 0, 20 * math.Sin(tm*0.5)})
	assertVec(t, expectedMoon, moon.WorldPosition())

	trails := d.Trails()
	require.Len(t, trails, 3)
	for _, tt := range trails {
		assert.Equal(t, 50, tt.Trail.Len(), tt.ID)
	}

	// Последняя точка следа - текущая мировая позиция тела
	last := trails[1].Trail.At(49)
	assert.InDelta(t, expectedMoon[0], float64(last[0]), 1e-3)
	assert.InDelta(t, expectedMoon[2], float64(last[2]), 1e-3)
}

func TestSistemaSolar_CamerasAndCommands(t *testing.T) {
	d, _ := setup(t, SistemaSolarName, DefaultOptions())

	cams := d.Cameras()
	require.Len(t, cams, 5)
	names := []string{"camera", "earthCam", "moonCam", "apolloCam", "issCam"}
	for i, n := range names {
		assert.Equal(t, n, cams[i].Name)
	}

	assert.Same(t, cams[0], d.ActiveCamera())
	for i := 1; i <= 5; i++ {
		require.NoError(t, d.HandleCommand(CommandCameraKey))
		assert.Same(t, cams[i%5], d.ActiveCamera())
	}

	d.Animate(time.Second)
	require.NoError(t, d.HandleCommand(CommandResetTrails))
	for _, tt := range d.Trails() {
		assert.Equal(t, 0, tt.Trail.Len())
	}
}
