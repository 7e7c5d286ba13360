package demo

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"gallery3d/backend/internal/scene"
)

const (
	PalaMecanicaName = "palaMecanica"

	CommandAssemble = "assemble"
	CommandLayout   = "layout"

	pieceSpacing = 100
)

// ShovelPieces - детали экскаватора в порядке загрузки
var ShovelPieces = []string{
	"antebrazo",
	"brazo",
	"cabina",
	"chasis",
	"cubierta",
	"eje",
	"llanta",
	"pala",
	"tuerca",
}

// Joint - смещение детали относительно родителя в собранном экскаваторе
type Joint struct {
	Parent   string
	Child    string
	Offset   mgl64.Vec3
	Rotation scene.Euler
}

// ShovelJoints - относительные смещения деталей
var ShovelJoints = []Joint{
	{Parent: "chasis", Child: "cabina", Offset: mgl64.Vec3{0, 25, 0}},
	{Parent: "cabina", Child: "brazo", Offset: mgl64.Vec3{20, 20, -10}, Rotation: scene.Euler{Z: -math.Pi / 4}},
	{Parent: "brazo", Child: "antebrazo", Offset: mgl64.Vec3{-102, 0, 0}},
	{Parent: "antebrazo", Child: "pala", Offset: mgl64.Vec3{-60, 0, 0}},
	{Parent: "chasis", Child: "eje", Offset: mgl64.Vec3{20, 5, 0}, Rotation: scene.Euler{X: math.Pi / 2}},
	{Parent: "eje", Child: "llanta", Offset: mgl64.Vec3{0, 25, 0}},
	{Parent: "llanta", Child: "cubierta", Offset: mgl64.Vec3{0, 0, 0}},
	{Parent: "llanta", Child: "tuerca", Offset: mgl64.Vec3{0, 3, 0}},
}

// PalaMecanica - экскаватор из отдельных моделей с ручной иерархией суставов
type PalaMecanica struct {
	base

	pieces    map[string]*scene.Node
	vehicle   *scene.Node
	assembled bool
	startAsm  bool
}

func NewPalaMecanica(opts Options) Demo {
	return &PalaMecanica{
		base: base{
			name:       PalaMecanicaName,
			title:      "Pala Mecánica",
			clearColor: "#aaaaaa",
			description: "Экскаватор из девяти моделей. В режиме раскладки детали стоят " +
				"в ряд вдоль оси X, в собранном режиме они образуют иерархию " +
				"суставов. Команды: `assemble`, `layout`.",
		},
		startAsm: opts.ShovelAssembled,
	}
}

// ModelPath возвращает путь к модели детали
func ModelPath(piece string) string {
	return "/assets/" + PalaMecanicaName + "/" + piece + ".dae"
}

func (d *PalaMecanica) Assets() []string {
	paths := make([]string, len(ShovelPieces))
	for i, p := range ShovelPieces {
		paths[i] = ModelPath(p)
	}
	return paths
}

func (d *PalaMecanica) Setup(sc *scene.Scene) error {
	d.setupBase(sc, [3]float64{-700, 700, 700}, 10000)

	sc.Add(hemisphereLight())

	sun := scene.NewNode("directional", scene.KindLight)
	sun.Light = &scene.Light{Type: scene.LightDirectional, Color: scene.FromHex(0xffffff), Intensity: 1}
	sun.SetPosition(1, 1, 1)
	sc.Add(sun)

	grid := scene.NewNode("grid", scene.KindGrid)
	grid.Helper = &scene.Helper{Size: 1000, Divisions: 10, Color1: scene.FromHex(0x444444), Color2: scene.FromHex(0x888888)}
	sc.Add(grid)

	d.layout()

	if d.startAsm {
		return d.assemble()
	}
	return nil
}

// layout расставляет свежие детали в ряд вдоль оси X, каждую со своими осями
func (d *PalaMecanica) layout() {
	if d.vehicle != nil {
		d.scene.Remove(d.vehicle)
		d.vehicle = nil
	}
	for _, n := range d.pieces {
		if p := n.Parent(); p != nil {
			p.Remove(n)
		}
	}

	d.pieces = make(map[string]*scene.Node, len(ShovelPieces))
	for i, name := range ShovelPieces {
		model := scene.NewNode(name, scene.KindModel)
		model.Asset = ModelPath(name)
		model.Add(scene.NewAxes(20))
		model.SetPosition(float64(i*pieceSpacing-len(ShovelPieces)*pieceSpacing/2), 0, 0)

		d.pieces[name] = model
		d.scene.Add(model)
	}
	d.assembled = false
}

// assemble собирает экскаватор по таблице суставов и добавляет второе
// колесо и вторую ось зеркальными копиями
func (d *PalaMecanica) assemble() error {
	if d.assembled {
		return nil
	}

	chasis := d.pieces["chasis"]
	chasis.SetPosition(0, 0, 0)

	for _, j := range ShovelJoints {
		parent, child := d.pieces[j.Parent], d.pieces[j.Child]
		if parent == nil || child == nil {
			return fmt.Errorf("сустав %s > %s: деталь не найдена", j.Parent, j.Child)
		}
		parent.Add(child)
		child.Position = j.Offset
		child.Rotation = j.Rotation
		child.Rotation.Order = scene.OrderXYZ
	}

	llanta := d.pieces["llanta"]
	eje := d.pieces["eje"]

	llanta2 := llanta.Clone()
	llanta2.Position[1] *= -1
	llanta2.Scale[1] *= -1
	eje.Add(llanta2)

	eje2 := eje.Clone()
	eje2.Position[0] *= -1
	chasis.Add(eje2)

	d.vehicle = scene.NewGroup("vehiculo")
	d.vehicle.Add(d.pieces["cabina"])
	d.vehicle.Add(chasis)
	d.scene.Add(d.vehicle)

	d.assembled = true
	return nil
}

// Assembled сообщает, собран ли экскаватор
func (d *PalaMecanica) Assembled() bool { return d.assembled }

func (d *PalaMecanica) Animate(time.Duration) {}

func (d *PalaMecanica) HandleCommand(cmd string) error {
	switch cmd {
	case CommandAssemble:
		return d.assemble()
	case CommandLayout:
		if d.assembled {
			d.layout()
		}
		return nil
	}
	return d.base.HandleCommand(cmd)
}
