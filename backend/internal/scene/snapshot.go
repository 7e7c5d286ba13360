package scene

// NodeState - неизменяемый снимок узла для отправки клиентам
type NodeState struct {
	ID       string     `json:"id"`
	Parent   string     `json:"parent,omitempty"`
	Name     string     `json:"name"`
	Kind     Kind       `json:"kind"`
	Visible  bool       `json:"visible"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // кватернион x, y, z, w
	Scale    [3]float64 `json:"scale"`
	World    [3]float64 `json:"world"` // мировая позиция
	Color    string     `json:"color,omitempty"`
}

// NodeDescriptor - полное описание узла, отправляется один раз при создании
type NodeDescriptor struct {
	NodeState

	Geometry *GeometryDescriptor `json:"geometry,omitempty"`
	Material *MaterialDescriptor `json:"material,omitempty"`
	Light    *LightDescriptor    `json:"light,omitempty"`
	Camera   *CameraDescriptor   `json:"camera,omitempty"`
	Helper   *HelperDescriptor   `json:"helper,omitempty"`
	Asset    string              `json:"asset,omitempty"`
}

type GeometryDescriptor struct {
	Type     GeometryType `json:"type"`
	Width    float64      `json:"width,omitempty"`
	Height   float64      `json:"height,omitempty"`
	Depth    float64      `json:"depth,omitempty"`
	Vertices []float32    `json:"vertices,omitempty"`
	Normals  []float32    `json:"normals,omitempty"`
}

type MaterialDescriptor struct {
	Type      string  `json:"type"`
	Color     string  `json:"color"`
	Specular  string  `json:"specular,omitempty"`
	Shininess float64 `json:"shininess,omitempty"`
}

type LightDescriptor struct {
	Type        LightType `json:"type"`
	Color       string    `json:"color"`
	GroundColor string    `json:"ground_color,omitempty"`
	Intensity   float64   `json:"intensity"`
}

type CameraDescriptor struct {
	Fov  float64    `json:"fov"`
	Near float64    `json:"near"`
	Far  float64    `json:"far"`
	Up   [3]float64 `json:"up"`
}

type HelperDescriptor struct {
	Size      float64 `json:"size"`
	Divisions int     `json:"divisions,omitempty"`
	Color1    string  `json:"color1,omitempty"`
	Color2    string  `json:"color2,omitempty"`
}

// State возвращает снимок трансформации узла
func (n *Node) State() NodeState {
	q := n.Quaternion()
	w := n.WorldPosition()

	st := NodeState{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind,
		Visible:  n.Visible,
		Position: [3]float64{n.Position[0], n.Position[1], n.Position[2]},
		Rotation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		Scale:    [3]float64{n.Scale[0], n.Scale[1], n.Scale[2]},
		World:    [3]float64{w[0], w[1], w[2]},
	}
	if n.parent != nil && n.parent.scene == nil {
		st.Parent = n.parent.ID
	}
	if n.Material != nil {
		st.Color = Hex(n.Material.Color)
	}
	return st
}

// Describe возвращает полное описание узла
func (n *Node) Describe() NodeDescriptor {
	d := NodeDescriptor{NodeState: n.State(), Asset: n.Asset}

	if g := n.Geometry; g != nil {
		d.Geometry = &GeometryDescriptor{
			Type:     g.Type,
			Width:    g.Width,
			Height:   g.Height,
			Depth:    g.Depth,
			Vertices: g.Vertices,
			Normals:  g.Normals,
		}
	}
	if m := n.Material; m != nil {
		d.Material = &MaterialDescriptor{
			Type:      m.Type,
			Color:     Hex(m.Color),
			Shininess: m.Shininess,
		}
		if m.Shininess > 0 {
			d.Material.Specular = Hex(m.Specular)
		}
	}
	if l := n.Light; l != nil {
		d.Light = &LightDescriptor{
			Type:      l.Type,
			Color:     Hex(l.Color),
			Intensity: l.Intensity,
		}
		if l.Type == LightHemisphere {
			d.Light.GroundColor = Hex(l.GroundColor)
		}
	}
	if c := n.Camera; c != nil {
		d.Camera = &CameraDescriptor{
			Fov:  c.Fov,
			Near: c.Near,
			Far:  c.Far,
			Up:   [3]float64{c.Up[0], c.Up[1], c.Up[2]},
		}
	}
	if h := n.Helper; h != nil {
		d.Helper = &HelperDescriptor{Size: h.Size, Divisions: h.Divisions}
		if h.Divisions > 0 {
			d.Helper.Color1 = Hex(h.Color1)
			d.Helper.Color2 = Hex(h.Color2)
		}
	}
	return d
}

// Snapshot возвращает состояния всех узлов сцены
func (s *Scene) Snapshot() []NodeState {
	nodes := s.Nodes()
	out := make([]NodeState, len(nodes))
	for i, n := range nodes {
		out[i] = n.State()
	}
	return out
}

// Describe возвращает полные описания всех узлов сцены
func (s *Scene) Describe() []NodeDescriptor {
	nodes := s.Nodes()
	out := make([]NodeDescriptor, len(nodes))
	for i, n := range nodes {
		out[i] = n.Describe()
	}
	return out
}
