package scene

// Scene - корень иерархии, которую демо строит и анимирует
type Scene struct {
	root    *Node
	version uint64 // растет при каждом изменении структуры
}

// New создает пустую сцену
func New() *Scene {
	s := &Scene{root: NewGroup("scene")}
	s.root.scene = s
	return s
}

// Root возвращает корневой узел
func (s *Scene) Root() *Node { return s.root }

// Add добавляет узел в корень сцены
func (s *Scene) Add(n *Node) { s.root.Add(n) }

// Remove убирает узел из корня сцены
func (s *Scene) Remove(n *Node) { s.root.Remove(n) }

// Find ищет узел по имени
func (s *Scene) Find(name string) *Node {
	for _, c := range s.root.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Nodes возвращает все узлы сцены (без корня) в прямом порядке обхода,
// так что родитель всегда идет раньше своих детей
func (s *Scene) Nodes() []*Node {
	var out []*Node
	for _, c := range s.root.children {
		c.Walk(func(n *Node) { out = append(out, n) })
	}
	return out
}

// Version возвращает номер версии структуры сцены
func (s *Scene) Version() uint64 { return s.version }
