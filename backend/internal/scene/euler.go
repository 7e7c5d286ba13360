package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationOrder - порядок применения углов Эйлера
type RotationOrder string

const (
	OrderXYZ RotationOrder = "XYZ"
	OrderZYX RotationOrder = "ZYX"
)

// Euler - углы поворота в радианах с порядком применения.
// Для OrderXYZ матрица поворота равна Rx*Ry*Rz, для OrderZYX - Rz*Ry*Rx.
type Euler struct {
	X, Y, Z float64
	Order   RotationOrder
}

// Matrix возвращает однородную матрицу поворота
func (e Euler) Matrix() mgl64.Mat4 {
	rx := mgl64.HomogRotate3DX(e.X)
	ry := mgl64.HomogRotate3DY(e.Y)
	rz := mgl64.HomogRotate3DZ(e.Z)

	if e.Order == OrderZYX {
		return rz.Mul4(ry).Mul4(rx)
	}
	return rx.Mul4(ry).Mul4(rz)
}

// Quat возвращает поворот в виде кватерниона
func (e Euler) Quat() mgl64.Quat {
	return mgl64.Mat4ToQuat(e.Matrix()).Normalize()
}

// EulerFromMatrix раскладывает матрицу поворота на углы в заданном порядке
func EulerFromMatrix(m mgl64.Mat4, order RotationOrder) Euler {
	e := Euler{Order: order}

	if order == OrderZYX {
		m31 := m.At(2, 0)
		e.Y = math.Asin(-clamp(m31, -1, 1))
		if math.Abs(m31) < 0.9999999 {
			e.X = math.Atan2(m.At(2, 1), m.At(2, 2))
			e.Z = math.Atan2(m.At(1, 0), m.At(0, 0))
		} else {
			e.Z = math.Atan2(-m.At(0, 1), m.At(1, 1))
		}
		return e
	}

	e.Order = OrderXYZ
	m13 := m.At(0, 2)
	e.Y = math.Asin(clamp(m13, -1, 1))
	if math.Abs(m13) < 0.9999999 {
		e.X = math.Atan2(-m.At(1, 2), m.At(2, 2))
		e.Z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		e.X = math.Atan2(m.At(2, 1), m.At(1, 1))
	}
	return e
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
