package scene

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

var nodeSeq atomic.Uint64

func nextID() string {
	return fmt.Sprintf("node_%d", nodeSeq.Add(1))
}

// Node - узел иерархии трансформаций
type Node struct {
	ID      string
	Name    string
	Kind    Kind
	Visible bool

	Position mgl64.Vec3
	Rotation Euler
	Scale    mgl64.Vec3

	// Параметры, зависящие от типа узла
	Geometry *Geometry
	Material *Material
	Light    *Light
	Camera   *Camera
	Helper   *Helper
	Asset    string // путь к модели для KindModel

	parent   *Node
	children []*Node
	scene    *Scene
}

// NewNode создает узел с единичным масштабом и нулевым поворотом
func NewNode(name string, kind Kind) *Node {
	return &Node{
		ID:       nextID(),
		Name:     name,
		Kind:     kind,
		Visible:  true,
		Scale:    mgl64.Vec3{1, 1, 1},
		Rotation: Euler{Order: OrderXYZ},
	}
}

// NewGroup создает пустую группу
func NewGroup(name string) *Node {
	return NewNode(name, KindGroup)
}

// NewAxes создает помощник-оси заданного размера
func NewAxes(size float64) *Node {
	n := NewNode("axes", KindAxes)
	n.Helper = &Helper{Size: size}
	return n
}

// NewPerspectiveCamera создает камеру с вектором up по оси Y
func NewPerspectiveCamera(name string, fov, near, far float64) *Node {
	n := NewNode(name, KindCamera)
	n.Camera = &Camera{Fov: fov, Near: near, Far: far, Up: mgl64.Vec3{0, 1, 0}}
	return n
}

// Parent возвращает родительский узел или nil
func (n *Node) Parent() *Node { return n.parent }

// Children возвращает копию списка дочерних узлов
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Add делает child дочерним узлом n. Если у child уже был родитель,
// узел сначала удаляется из него.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	n.touch()
}

// Remove убирает child из дочерних узлов n
func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			n.touch()
			return
		}
	}
}

// touch отмечает изменение структуры сцены
func (n *Node) touch() {
	for p := n; p != nil; p = p.parent {
		if p.scene != nil {
			p.scene.version++
			return
		}
	}
}

// Clone возвращает глубокую копию поддерева с новыми идентификаторами.
// Копия не имеет родителя.
func (n *Node) Clone() *Node {
	c := *n
	c.ID = nextID()
	c.parent = nil
	c.scene = nil
	c.children = nil

	if n.Geometry != nil {
		g := *n.Geometry
		g.Vertices = append([]float32(nil), n.Geometry.Vertices...)
		g.Normals = append([]float32(nil), n.Geometry.Normals...)
		c.Geometry = &g
	}
	if n.Material != nil {
		m := *n.Material
		c.Material = &m
	}
	if n.Light != nil {
		l := *n.Light
		c.Light = &l
	}
	if n.Camera != nil {
		cam := *n.Camera
		c.Camera = &cam
	}
	if n.Helper != nil {
		h := *n.Helper
		c.Helper = &h
	}

	for _, child := range n.children {
		cc := child.Clone()
		cc.parent = &c
		c.children = append(c.children, cc)
	}
	return &c
}

// Find ищет узел по имени в глубину, включая сам узел
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Walk обходит поддерево в прямом порядке
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// SetPosition задает позицию относительно родителя
func (n *Node) SetPosition(x, y, z float64) {
	n.Position = mgl64.Vec3{x, y, z}
}

// RotateY поворачивает узел вокруг его локальной оси Y
func (n *Node) RotateY(angle float64) {
	m := n.Rotation.Matrix().Mul4(mgl64.HomogRotate3DY(angle))
	n.Rotation = EulerFromMatrix(m, n.Rotation.Order)
}

// Quaternion возвращает поворот узла относительно родителя
func (n *Node) Quaternion() mgl64.Quat {
	return n.Rotation.Quat()
}

// LocalMatrix возвращает T*R*S
func (n *Node) LocalMatrix() mgl64.Mat4 {
	t := mgl64.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	s := mgl64.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(n.Rotation.Matrix()).Mul4(s)
}

// WorldMatrix возвращает матрицу перехода из локальных координат узла в мировые
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// LocalToWorld переводит точку из локальных координат узла в мировые
func (n *Node) LocalToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, n.WorldMatrix())
}

// WorldPosition возвращает положение начала координат узла в мире
func (n *Node) WorldPosition() mgl64.Vec3 {
	return n.LocalToWorld(mgl64.Vec3{})
}

// LookAt поворачивает камеру так, чтобы ее ось -Z смотрела на target.
// target задается в системе координат родителя.
func (n *Node) LookAt(target mgl64.Vec3) {
	up := mgl64.Vec3{0, 1, 0}
	if n.Camera != nil {
		up = n.Camera.Up
	}

	z := n.Position.Sub(target)
	if z.Len() == 0 {
		z = mgl64.Vec3{0, 0, 1}
	}
	z = z.Normalize()

	x := up.Cross(z)
	if x.Len() < 1e-9 {
		// up параллелен направлению взгляда, слегка сдвигаем z
		if math.Abs(up[2]) == 1 {
			z[0] += 0.0001
		} else {
			z[2] += 0.0001
		}
		z = z.Normalize()
		x = up.Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)

	m := mgl64.Ident4()
	m.SetCol(0, x.Vec4(0))
	m.SetCol(1, y.Vec4(0))
	m.SetCol(2, z.Vec4(0))
	n.Rotation = EulerFromMatrix(m, n.Rotation.Order)
}
