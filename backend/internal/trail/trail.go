package trail

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Уровни яркости для затухания следа
	prefillBase  = 0.5
	prefillRange = 0.5
	fadeBase     = 0.1
	fadeRange    = 0.5
)

// Trail хранит последние позиции движущегося тела и цвета вершин линии,
// которая рисуется за ним. Точки лежат в кольцевом буфере фиксированного
// размера: при переполнении вытесняется самая старая.
//
// Trail не потокобезопасен: писать в него должен только шаг анимации демо.
type Trail struct {
	hue float64

	// Кольцевой буфер точек
	points []mgl32.Vec3
	head   int // индекс самой старой точки
	count  int

	// Буферы вершин для линии (по 3 float на вершину)
	positions []float32
	colors    []float32

	version uint64 // растет при каждом изменении буферов
}

// New создает след на capacity точек. Буфер вершин сразу заполняется
// начальной позицией, чтобы линия имела полную длину с первого кадра.
func New(capacity int, initial mgl32.Vec3, hue float64) *Trail {
	if capacity < 1 {
		capacity = 1
	}

	t := &Trail{
		hue:       clampUnit(hue),
		points:    make([]mgl32.Vec3, capacity),
		positions: make([]float32, capacity*3),
		colors:    make([]float32, capacity*3),
	}

	for i := 0; i < capacity; i++ {
		t.setVertex(i, initial, prefillBase+prefillRange*float64(i)/float64(capacity))
	}

	return t
}

// PushPosition добавляет позицию в конец истории и перестраивает буферы
// вершин и цветов. Нечисловые координаты заменяются координатами
// самой новой точки, а в пустой истории нулем.
func (t *Trail) PushPosition(p mgl32.Vec3) {
	capacity := len(t.points)
	p = t.finite(p)

	if t.count < capacity {
		t.points[(t.head+t.count)%capacity] = p
		t.count++
	} else {
		// Буфер полон: перезаписываем самую старую точку
		t.points[t.head] = p
		t.head = (t.head + 1) % capacity
	}

	t.rebuild()
}

// Reset забывает все накопленные точки. Буферы вершин не трогаем:
// линия остается как была до следующего PushPosition.
func (t *Trail) Reset() {
	t.head = 0
	t.count = 0
}

func (t *Trail) finite(p mgl32.Vec3) mgl32.Vec3 {
	for k, v := range p {
		if !math32.IsNaN(v) && !math32.IsInf(v, 0) {
			continue
		}
		p[k] = 0
		if t.count > 0 {
			p[k] = t.At(t.count - 1)[k]
		}
	}
	return p
}

// rebuild переписывает все вершины линии. Вершины за пределами
// накопленной истории повторяют самую новую точку.
func (t *Trail) rebuild() {
	if t.count == 0 {
		return
	}

	last := t.count - 1
	for i := range t.points {
		j := i
		if j > last {
			j = last
		}
		t.setVertex(i, t.At(j), Level(j, t.count))
	}
	t.version++
}

func (t *Trail) setVertex(i int, p mgl32.Vec3, level float64) {
	t.positions[i*3] = p[0]
	t.positions[i*3+1] = p[1]
	t.positions[i*3+2] = p[2]

	c := colorful.Hsl(t.hue*360, 1, level).Clamped()
	t.colors[i*3] = float32(c.R)
	t.colors[i*3+1] = float32(c.G)
	t.colors[i*3+2] = float32(c.B)
}

// Level возвращает уровень цвета точки с индексом j в истории из n точек.
// Чем новее точка, тем выше уровень.
func Level(j, n int) float64 {
	if n <= 0 {
		return fadeBase
	}
	return fadeBase + fadeRange*float64(j)/float64(n)
}

// At возвращает i-ю точку истории, считая от самой старой.
func (t *Trail) At(i int) mgl32.Vec3 {
	if i < 0 || i >= t.count {
		panic("trail: index out of range")
	}
	return t.points[(t.head+i)%len(t.points)]
}

// Points возвращает копию истории от самой старой точки к самой новой.
func (t *Trail) Points() []mgl32.Vec3 {
	result := make([]mgl32.Vec3, t.count)
	for i := range result {
		result[i] = t.At(i)
	}
	return result
}

// Saturation возвращает уровень цвета, назначенный i-й точке истории.
func (t *Trail) Saturation(i int) float64 {
	return Level(i, t.count)
}

// Len возвращает количество накопленных точек
func (t *Trail) Len() int { return t.count }

// Cap возвращает максимальное количество точек
func (t *Trail) Cap() int { return len(t.points) }

// Hue возвращает тон следа в диапазоне [0,1]
func (t *Trail) Hue() float64 { return t.hue }

// Version меняется каждый раз, когда буферы вершин перестроены
func (t *Trail) Version() uint64 { return t.version }

// Positions возвращает буфер координат вершин (только для чтения)
func (t *Trail) Positions() []float32 { return t.positions }

// Colors возвращает буфер цветов вершин (только для чтения)
func (t *Trail) Colors() []float32 { return t.colors }

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
