package trail

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vx(x float32) mgl32.Vec3 { return mgl32.Vec3{x, 0, 0} }

func TestTrail_PushBelowCapacity(t *testing.T) {
	tr := New(5, mgl32.Vec3{}, 0.15)

	for i := 1; i <= 4; i++ {
		tr.PushPosition(vx(float32(i)))
	}

	require.Equal(t, 4, tr.Len())
	assert.Equal(t, []mgl32.Vec3{vx(1), vx(2), vx(3), vx(4)}, tr.Points())
}

func TestTrail_EvictsOldest(t *testing.T) {
	tr := New(3, mgl32.Vec3{}, 0.45)

	for i := 1; i <= 4; i++ {
		tr.PushPosition(vx(float32(i)))
	}

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []mgl32.Vec3{vx(2), vx(3), vx(4)}, tr.Points())
}

func TestTrail_KeepsMostRecent(t *testing.T) {
	const capacity = 7
	for _, n := range []int{capacity + 1, 2 * capacity, 3*capacity + 2} {
		tr := New(capacity, mgl32.Vec3{}, 0.75)
		for i := 1; i <= n; i++ {
			tr.PushPosition(vx(float32(i)))
		}

		points := tr.Points()
		require.Len(t, points, capacity)
		for k, p := range points {
			// самая старая оставшаяся точка - push номер n-capacity+1
			assert.Equal(t, float32(n-capacity+1+k), p[0], "n=%d k=%d", n, k)
		}
	}
}

func TestTrail_Reset(t *testing.T) {
	tr := New(4, mgl32.Vec3{}, 0.1)
	for i := 0; i < 10; i++ {
		tr.PushPosition(vx(float32(i)))
	}
	version := tr.Version()
	positions := append([]float32(nil), tr.Positions()...)

	tr.Reset()

	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Points())
	assert.Equal(t, 4, tr.Cap())
	assert.Equal(t, version, tr.Version())
	assert.Equal(t, positions, tr.Positions())

	tr.PushPosition(vx(42))
	assert.Equal(t, []mgl32.Vec3{vx(42)}, tr.Points())
}

func TestTrail_ReplacesNonFinite(t *testing.T) {
	tr := New(3, mgl32.Vec3{}, 0.5)

	tr.PushPosition(mgl32.Vec3{math32.NaN(), 1, 2})
	assert.Equal(t, mgl32.Vec3{0, 1, 2}, tr.At(0), "В пустой истории NaN становится нулем")

	tr.PushPosition(mgl32.Vec3{5, math32.Inf(1), math32.Inf(-1)})
	assert.Equal(t, mgl32.Vec3{5, 1, 2}, tr.At(1), "Бесконечности заменяются координатами предыдущей точки")

	for _, v := range tr.Positions() {
		assert.False(t, math32.IsNaN(v) || math32.IsInf(v, 0), "Буфер вершин должен быть конечным")
	}
}

func TestTrail_PrefillsWithInitialPosition(t *testing.T) {
	initial := mgl32.Vec3{1, 2, 3}
	tr := New(10, initial, 0.5)

	assert.Equal(t, 0, tr.Len())
	positions := tr.Positions()
	require.Len(t, positions, 30)
	for i := 0; i < 10; i++ {
		assert.Equal(t, []float32{1, 2, 3}, positions[i*3:i*3+3])
	}
	assert.Len(t, tr.Colors(), 30)
}

func TestTrail_PadsVerticesWithNewestPoint(t *testing.T) {
	tr := New(6, mgl32.Vec3{}, 0.3)
	tr.PushPosition(vx(1))
	tr.PushPosition(vx(2))

	positions := tr.Positions()
	assert.Equal(t, float32(1), positions[0])
	for i := 1; i < 6; i++ {
		assert.Equal(t, float32(2), positions[i*3], "vertex %d", i)
	}
}

func TestTrail_SaturationFadesWithAge(t *testing.T) {
	tr := New(50, mgl32.Vec3{}, 0.15)
	for i := 0; i < 80; i++ {
		tr.PushPosition(vx(float32(i)))

		newest := tr.Saturation(tr.Len() - 1)
		for j := 0; j < tr.Len()-1; j++ {
			if tr.Saturation(j) > newest {
				t.Fatalf("point %d is brighter than the newest one after %d pushes", j, i+1)
			}
		}
	}
}

func TestTrail_ColorsAreBrighterTowardsHead(t *testing.T) {
	tr := New(20, mgl32.Vec3{}, 0)
	for i := 0; i < 20; i++ {
		tr.PushPosition(vx(float32(i)))
	}

	// При тоне 0 (красный) и насыщенности 1 красный канал растет с уровнем
	colors := tr.Colors()
	for i := 1; i < 20; i++ {
		assert.GreaterOrEqual(t, colors[i*3], colors[(i-1)*3])
	}
	for _, c := range colors {
		assert.True(t, c >= 0 && c <= 1)
	}
}

func TestTrail_ClampsArguments(t *testing.T) {
	tr := New(0, mgl32.Vec3{}, 3)
	assert.Equal(t, 1, tr.Cap())
	assert.Equal(t, 1.0, tr.Hue())

	tr.PushPosition(vx(1))
	tr.PushPosition(vx(2))
	assert.Equal(t, []mgl32.Vec3{vx(2)}, tr.Points())
}

func TestLevel(t *testing.T) {
	assert.InDelta(t, 0.1, Level(0, 10), 1e-9)
	assert.InDelta(t, 0.55, Level(9, 10), 1e-9)
	assert.InDelta(t, 0.1, Level(0, 0), 1e-9)
}
