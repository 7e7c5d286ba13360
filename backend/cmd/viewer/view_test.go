package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery3d/backend/internal/gallery"
	"gallery3d/backend/internal/scene"
)

func TestProject(t *testing.T) {
	b := bounds{minX: -10, maxX: 10, minZ: -10, maxZ: 10}

	col, row, ok := project(0, 0, b, 1, 41, 21)
	require.True(t, ok)
	assert.Equal(t, 20, col)
	assert.Equal(t, 10, row)

	col, _, ok = project(10, 0, b, 1, 41, 21)
	require.True(t, ok)
	assert.Equal(t, 40, col)

	_, _, ok = project(10, 0, b, 2, 41, 21)
	assert.False(t, ok, "при увеличении край мира уходит за экран")

	_, _, ok = project(0, 0, b, 1, 0, 0)
	assert.False(t, ok)
}

func TestView_Apply(t *testing.T) {
	v := newView()
	v.apply(wireMessage{Type: "info", Demo: &gallery.Info{Name: "sistemaSolar", Title: "Sistema Solar"}}, 0)
	v.apply(wireMessage{Type: "create", Node: &scene.NodeDescriptor{NodeState: scene.NodeState{
		ID: "n1", Name: "tierra", Kind: scene.KindMesh, Visible: true, Color: "#0000ff",
	}}}, 0)
	v.apply(wireMessage{Type: "update", Seq: 7, ActiveCamera: "node_3", CameraName: "earthCam", Nodes: []scene.NodeState{
		{ID: "n1", Visible: true, World: [3]float64{5, 0, 3}},
		{ID: "unknown"},
	}, Trails: []gallery.TrailState{{ID: "moon", Positions: []float32{1, 0, 1}, Colors: []float32{1, 1, 1}}}}, 0)
	v.apply(wireMessage{Type: "pong", ClientTime: 1000}, 1042)
	v.apply(wireMessage{Type: "error", Message: "unknown command"}, 0)

	assert.Equal(t, "Sistema Solar", v.info.Title)
	assert.Equal(t, uint64(7), v.seq)
	assert.Equal(t, "earthCam", v.camera)
	require.Contains(t, v.nodes, "n1")
	assert.NotContains(t, v.nodes, "unknown")
	assert.Equal(t, [3]float64{5, 0, 3}, v.nodes["n1"].state.World)
	assert.Equal(t, "#0000ff", v.nodes["n1"].state.Color, "цвет из create сохраняется, если update его не несет")
	assert.Len(t, v.trails, 1)
	assert.Equal(t, 42.0, v.rtt)
	assert.Contains(t, v.status, "unknown command")

	v.apply(wireMessage{Type: "clear"}, 0)
	assert.Empty(t, v.nodes)
}

func TestView_Draw(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(40, 12)

	v := newView()
	v.apply(wireMessage{Type: "create", Node: &scene.NodeDescriptor{NodeState: scene.NodeState{
		ID: "sun", Name: "sol", Kind: scene.KindMesh, Visible: true,
	}}}, 0)
	v.apply(wireMessage{Type: "create", Node: &scene.NodeDescriptor{NodeState: scene.NodeState{
		ID: "earth", Name: "tierra", Kind: scene.KindMesh, Visible: true, World: [3]float64{10, 0, 0},
	}}}, 0)
	v.apply(wireMessage{Type: "info", Demo: &gallery.Info{Title: "Sistema Solar"}}, 0)
	v.draw(screen)

	cells, w, h := screen.GetContents()
	require.Equal(t, 40*12, len(cells))

	var glyphs string
	for _, c := range cells[:w*(h-1)] {
		if len(c.Runes) > 0 && c.Runes[0] != ' ' {
			glyphs += string(c.Runes[0])
		}
	}
	assert.Contains(t, glyphs, "s")
	assert.Contains(t, glyphs, "t")

	var status string
	for _, c := range cells[w*(h-1):] {
		if len(c.Runes) > 0 {
			status += string(c.Runes[0])
		}
	}
	assert.Contains(t, status, "Sistema Solar")
}
