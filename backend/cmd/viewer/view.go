package main

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/scene"
)

// wireMessage - сообщение сервера в том виде, в каком его читает viewer
type wireMessage struct {
	Type         string                `json:"type"`
	Demo         *gallery.Info         `json:"demo,omitempty"`
	Node         *scene.NodeDescriptor `json:"node,omitempty"`
	Nodes        []scene.NodeState     `json:"nodes,omitempty"`
	Trails       []gallery.TrailState  `json:"trails,omitempty"`
	ActiveCamera string                `json:"active_camera,omitempty"`
	CameraName   string                `json:"active_camera_name,omitempty"`
	Seq          uint64                `json:"seq,omitempty"`
	Cmd          string                `json:"cmd,omitempty"`
	Message      string                `json:"message,omitempty"`
	ClientTime   float64               `json:"client_time,omitempty"`
	ServerTime   float64               `json:"server_time,omitempty"`
}

type viewNode struct {
	name  string
	kind  scene.Kind
	state scene.NodeState
}

// view хранит последнее известное состояние сцены и рисует его сверху (X-Z)
type view struct {
	mu sync.Mutex

	info   gallery.Info
	nodes  map[string]*viewNode
	trails map[string]gallery.TrailState
	camera string
	seq    uint64
	rtt    float64
	status string
	zoom   float64
}

func newView() *view {
	return &view{
		nodes:  make(map[string]*viewNode),
		trails: make(map[string]gallery.TrailState),
		zoom:   1,
	}
}

// apply применяет сообщение сервера к модели
func (v *view) apply(msg wireMessage, nowMs float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch msg.Type {
	case "info":
		if msg.Demo != nil {
			v.info = *msg.Demo
		}
	case "clear":
		v.nodes = make(map[string]*viewNode)
	case "create":
		if msg.Node != nil {
			v.nodes[msg.Node.ID] = &viewNode{
				name:  msg.Node.Name,
				kind:  msg.Node.Kind,
				state: msg.Node.NodeState,
			}
		}
	case "update":
		v.seq = msg.Seq
		v.camera = msg.CameraName
		if v.camera == "" {
			v.camera = msg.ActiveCamera
		}
		for _, s := range msg.Nodes {
			if n, ok := v.nodes[s.ID]; ok {
				color := n.state.Color
				n.state = s
				if s.Color == "" {
					n.state.Color = color
				}
			}
		}
		for _, t := range msg.Trails {
			v.trails[t.ID] = t
		}
	case "pong":
		if msg.ClientTime > 0 {
			v.rtt = nowMs - msg.ClientTime
		}
	case "cmd_ack":
		v.status = "ok: " + msg.Cmd
	case "error":
		v.status = "error: " + msg.Message
	}
}

func (v *view) setZoom(factor float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = math.Min(math.Max(v.zoom*factor, 0.05), 50)
}

// bounds - прямоугольник мира в плоскости X-Z
type bounds struct {
	minX, maxX, minZ, maxZ float64
}

func (b *bounds) extend(x, z float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minZ, b.maxZ = math.Min(b.minZ, z), math.Max(b.maxZ, z)
}

func emptyBounds() bounds {
	return bounds{minX: math.Inf(1), maxX: math.Inf(-1), minZ: math.Inf(1), maxZ: math.Inf(-1)}
}

// project переводит мировые X-Z в ячейку экрана w x h. Масштаб одинаков по
// обеим осям с поправкой на то, что ячейка терминала вдвое выше своей ширины.
func project(x, z float64, b bounds, zoom float64, w, h int) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	cx, cz := (b.minX+b.maxX)/2, (b.minZ+b.maxZ)/2
	spanX := math.Max(b.maxX-b.minX, 1e-9)
	spanZ := math.Max(b.maxZ-b.minZ, 1e-9)

	scale := math.Min(float64(w-1)/spanX, float64(h-1)*2/spanZ) * zoom
	col := int(math.Round(float64(w-1)/2 + (x-cx)*scale))
	row := int(math.Round(float64(h-1)/2 + (z-cz)*scale/2))
	if col < 0 || col >= w || row < 0 || row >= h {
		return 0, 0, false
	}
	return col, row, true
}

func drawable(k scene.Kind) bool {
	return k == scene.KindMesh || k == scene.KindModel || k == scene.KindGroup
}

func tcellColor(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// draw рисует следы, узлы и строку состояния
func (v *view) draw(screen tcell.Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()

	screen.Clear()
	w, h := screen.Size()
	if h < 2 {
		return
	}
	plotH := h - 1

	b := emptyBounds()
	for _, n := range v.nodes {
		if drawable(n.kind) {
			b.extend(n.state.World[0], n.state.World[2])
		}
	}
	for _, t := range v.trails {
		for i := 0; i+2 < len(t.Positions); i += 3 {
			b.extend(float64(t.Positions[i]), float64(t.Positions[i+2]))
		}
	}

	if !math.IsInf(b.minX, 1) {
		ids := make([]string, 0, len(v.trails))
		for id := range v.trails {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			t := v.trails[id]
			for i := 0; i+2 < len(t.Positions) && i+2 < len(t.Colors); i += 3 {
				col, row, ok := project(float64(t.Positions[i]), float64(t.Positions[i+2]), b, v.zoom, w, plotH)
				if !ok {
					continue
				}
				c := colorful.Color{R: float64(t.Colors[i]), G: float64(t.Colors[i+1]), B: float64(t.Colors[i+2])}
				screen.SetContent(col, row, '·', nil, tcell.StyleDefault.Foreground(tcellColor(c)))
			}
		}

		for _, n := range v.nodes {
			if !drawable(n.kind) || !n.state.Visible || n.kind == scene.KindGroup {
				continue
			}
			col, row, ok := project(n.state.World[0], n.state.World[2], b, v.zoom, w, plotH)
			if !ok {
				continue
			}
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
			if c, err := colorful.Hex(n.state.Color); err == nil {
				style = style.Foreground(tcellColor(c))
			}
			glyph := '*'
			if n.name != "" {
				glyph = []rune(n.name)[0]
			}
			screen.SetContent(col, row, glyph, nil, style)
		}
	}

	title := v.info.Title
	if title == "" {
		title = v.info.Name
	}
	line := fmt.Sprintf(" %s | кадр %d | камера %s | rtt %.0f мс | x%.2f | %s | c камера, r следы, a/l сборка, +/- масштаб, q выход",
		title, v.seq, v.camera, v.rtt, v.zoom, v.status)
	statusStyle := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		screen.SetContent(x, h-1, ' ', nil, statusStyle)
	}
	for i, r := range []rune(line) {
		if i >= w {
			break
		}
		screen.SetContent(i, h-1, r, nil, statusStyle)
	}
	screen.Show()
}
